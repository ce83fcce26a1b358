package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/marcypotter16/Variance/internal/domain"
)

// QR code edge length bounds, in pixels
const (
	defaultQRSize = 320
	minQRSize     = 128
	maxQRSize     = 1024
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetRoomResponse is the response for getting room info
type GetRoomResponse struct {
	Room       domain.RoomInfo  `json:"room"`
	Players    []*domain.Player `json:"players"`
	CanJoin    bool             `json:"canJoin"`
	InviteLink string           `json:"inviteLink"`
}

// ListRoomsResponse is the response for the lobby listing
type ListRoomsResponse struct {
	Rooms []domain.RoomInfo `json:"rooms"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	OpenLobbies  int `json:"openLobbies"`
	TotalPlayers int `json:"totalPlayers"`
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &StatsResponse{
		ActiveRooms:  s.hub.GetSessionCount(),
		OpenLobbies:  len(s.hub.ListRooms()),
		TotalPlayers: s.hub.GetTotalPlayerCount(),
	})
}

// handleListRooms handles GET /api/rooms
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &ListRoomsResponse{
		Rooms: s.hub.ListRooms(),
	})
}

// handleGetRoom handles GET /api/rooms/:roomCode
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.hub.GetSession(ps.ByName("roomCode"))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	info := session.Info()
	s.sendSuccess(w, &GetRoomResponse{
		Room:       info,
		Players:    session.Players(),
		CanJoin:    info.State == domain.RoomStateLobby && info.PlayerCount < info.MaxPlayers,
		InviteLink: s.inviteLink(r, session.ID()),
	})
}

// handleRoomQR handles GET /api/rooms/:roomCode/qr with an optional ?size=
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.hub.GetSession(ps.ByName("roomCode"))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			s.sendError(w, http.StatusBadRequest, "INVALID_SIZE", "size must be between 128 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(s.inviteLink(r, session.ID()), qrcode.Medium, size)
	if err != nil {
		s.logger.Error("qr generation failed", "roomId", session.ID(), "error", err)
		s.sendError(w, http.StatusInternalServerError, "QR_FAILED", "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// inviteLink builds the join URL for a room. The configured public URL wins
// over the request's own scheme and host.
func (s *Server) inviteLink(r *http.Request, roomCode string) string {
	base := strings.TrimSuffix(s.config.Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + roomCode
}

// sendDomainError maps domain errors onto HTTP responses
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
