package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/marcypotter16/Variance/internal/app"
	"github.com/marcypotter16/Variance/internal/domain"
)

// EnvPrefix is prepended to every environment variable the server reads
const EnvPrefix = "VARIANCE"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string
	Port      int
	Env       string // "development" or "production"
	Profile   bool
	PublicURL string // Base URL used in invite links; derived from the request when empty
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MaxPlayers       int
	VotingDuration   time.Duration
	ResultsDisplay   time.Duration
	RoomCodeLength   int
	CleanupInterval  time.Duration
	StaleRoomTimeout time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	game := domain.DefaultGameSettings()
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Env:  "development",
		},
		Game: GameConfig{
			MaxPlayers:       domain.DefaultRoomPlayers,
			VotingDuration:   game.VotingDuration,
			ResultsDisplay:   game.ResultsDisplay,
			RoomCodeLength:   app.DefaultRoomCodeLength,
			CleanupInterval:  app.DefaultCleanupInterval,
			StaleRoomTimeout: app.DefaultStaleRoomTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// RegisterFlags binds every configuration field to a flag on fs, using the
// current values as defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.Server.Host, "host", "b", c.Server.Host, "address to bind to (env: VARIANCE_HOST)")
	fs.IntVarP(&c.Server.Port, "port", "p", c.Server.Port, "port to listen on (env: VARIANCE_PORT)")
	fs.StringVar(&c.Server.Env, "env", c.Server.Env, "runtime environment, development or production (env: VARIANCE_ENV)")
	fs.BoolVar(&c.Server.Profile, "profile", c.Server.Profile, "register net/http/pprof handlers (env: VARIANCE_PROFILE)")
	fs.StringVar(&c.Server.PublicURL, "public-url", c.Server.PublicURL, "base URL of the web client for invite links (env: VARIANCE_PUBLIC_URL)")

	fs.IntVar(&c.Game.MaxPlayers, "max-players", c.Game.MaxPlayers, "default room capacity (env: VARIANCE_MAX_PLAYERS)")
	fs.DurationVar(&c.Game.VotingDuration, "voting-duration", c.Game.VotingDuration, "time allowed for each voting round (env: VARIANCE_VOTING_DURATION)")
	fs.DurationVar(&c.Game.ResultsDisplay, "results-display", c.Game.ResultsDisplay, "time round results stay on screen (env: VARIANCE_RESULTS_DISPLAY)")
	fs.IntVar(&c.Game.RoomCodeLength, "room-code-length", c.Game.RoomCodeLength, "length of generated room codes (env: VARIANCE_ROOM_CODE_LENGTH)")
	fs.DurationVar(&c.Game.CleanupInterval, "cleanup-interval", c.Game.CleanupInterval, "how often stale rooms are reaped (env: VARIANCE_CLEANUP_INTERVAL)")
	fs.DurationVar(&c.Game.StaleRoomTimeout, "stale-room-timeout", c.Game.StaleRoomTimeout, "idle time before a room is reaped (env: VARIANCE_STALE_ROOM_TIMEOUT)")

	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "debug, info, warn or error (env: VARIANCE_LOG_LEVEL)")
	fs.StringVar(&c.Logging.Format, "log-format", c.Logging.Format, "text or json (env: VARIANCE_LOG_FORMAT)")
}

// NewViper returns a viper instance that reads VARIANCE_* variables
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnv copies environment values onto flags that were not set on the
// command line.
func ApplyEnv(fs *pflag.FlagSet, v *viper.Viper) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})
	return errors.Join(errs...)
}

// LoadDotEnv loads variables from the given files (".env" when none are
// named). Missing files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Server.Env != "development" && c.Server.Env != "production" {
		return fmt.Errorf("invalid env %q (must be development or production)", c.Server.Env)
	}
	if err := (domain.RoomSettings{MaxPlayers: c.Game.MaxPlayers}).Validate(); err != nil {
		return fmt.Errorf("invalid max-players %d: %w", c.Game.MaxPlayers, err)
	}
	if c.Game.VotingDuration <= 0 {
		return fmt.Errorf("voting-duration must be positive: %s", c.Game.VotingDuration)
	}
	if c.Game.ResultsDisplay <= 0 {
		return fmt.Errorf("results-display must be positive: %s", c.Game.ResultsDisplay)
	}
	if c.Game.RoomCodeLength < 4 || c.Game.RoomCodeLength > 12 {
		return fmt.Errorf("invalid room-code-length (must be between 4-12 inclusive): %d", c.Game.RoomCodeLength)
	}
	if c.Game.StaleRoomTimeout <= 0 {
		return fmt.Errorf("stale-room-timeout must be positive: %s", c.Game.StaleRoomTimeout)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format %q (must be text or json)", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level %q", c.Logging.Level)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Addr returns the server address in host:port format
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GameSettings returns the per-game timing parameters
func (c *Config) GameSettings() domain.GameSettings {
	return domain.GameSettings{
		VotingDuration: c.Game.VotingDuration,
		ResultsDisplay: c.Game.ResultsDisplay,
	}
}

// HubOptions returns the room manager options derived from the configuration.
// A zero cleanup interval disables the background reaper.
func (c *Config) HubOptions() app.HubOptions {
	interval := c.Game.CleanupInterval
	if interval == 0 {
		interval = -1
	}
	return app.HubOptions{
		Game:              c.GameSettings(),
		DefaultMaxPlayers: c.Game.MaxPlayers,
		RoomCodeLength:    c.Game.RoomCodeLength,
		CleanupInterval:   interval,
		StaleRoomTimeout:  c.Game.StaleRoomTimeout,
	}
}
