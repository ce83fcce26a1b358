package domain

// Advance returns the ID of the next connected player after currentID in join
// order, wrapping around. If currentID is unknown the search starts from the
// front. It returns "" when nobody is connected.
func Advance(order []*Player, currentID string) string {
	n := len(order)
	if n == 0 {
		return ""
	}

	start := 0
	for i, p := range order {
		if p.ID == currentID {
			start = i + 1
			break
		}
	}

	for i := 0; i < n; i++ {
		p := order[(start+i)%n]
		if p.IsConnected() {
			return p.ID
		}
	}
	return ""
}

// FirstConnected returns the earliest-joined connected player
func FirstConnected(order []*Player) string {
	for _, p := range order {
		if p.IsConnected() {
			return p.ID
		}
	}
	return ""
}
