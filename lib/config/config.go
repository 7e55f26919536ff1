// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the port the companion plugin connects to.
const DefaultPort = 6888

// DefaultCDNTemplate resolves avatar hashes to image URLs. {user_id}
// and {avatar} are substituted.
const DefaultCDNTemplate = "https://cdn.discordapp.com/avatars/{user_id}/{avatar}.png?size=64"

// Config is the complete chotop configuration.
type Config struct {
	// Ingest configures the websocket listener the plugin connects to.
	Ingest IngestConfig `yaml:"ingest" toml:"ingest" json:"ingest"`

	// Avatar configures the avatar download cache.
	Avatar AvatarConfig `yaml:"avatar" toml:"avatar" json:"avatar"`

	// Notifications configures the transient notification list.
	Notifications NotificationsConfig `yaml:"notifications" toml:"notifications" json:"notifications"`

	// Control configures the local control socket.
	Control ControlConfig `yaml:"control" toml:"control" json:"control"`

	// Bus sizes the three delivery channels.
	Bus BusConfig `yaml:"bus" toml:"bus" json:"bus"`

	// Overlay holds presentation hints. chotop does not interpret
	// them; they are handed to the presenter as-is.
	Overlay OverlayConfig `yaml:"overlay" toml:"overlay" json:"overlay"`

	// Action configures what happens when a notification is activated.
	Action ActionConfig `yaml:"action" toml:"action" json:"action"`

	// Log configures the daemon's structured logger.
	Log LogConfig `yaml:"log" toml:"log" json:"log"`
}

// IngestConfig configures the websocket listener.
type IngestConfig struct {
	// Host is the listen address. Must be a loopback address: the
	// protocol carries no authentication.
	// Default: 127.0.0.1
	Host string `yaml:"host" toml:"host" json:"host"`

	// Port is the TCP port. 0 picks a free port (tests).
	// Default: 6888
	Port int `yaml:"port" toml:"port" json:"port"`

	// PingInterval is how often the server pings an idle client.
	// Default: 20s
	PingInterval Duration `yaml:"ping_interval" toml:"ping_interval" json:"ping_interval"`

	// IdleTimeout closes a connection that has sent neither a frame
	// nor a pong for this long. 0 disables the deadline.
	// Default: 60s
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout" json:"idle_timeout"`
}

// Address returns host:port.
func (c IngestConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// AvatarConfig configures the avatar cache.
type AvatarConfig struct {
	// CacheDir holds downloaded images.
	// Default: $XDG_CACHE_HOME/discord-overlay/avatars
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`

	// CDNTemplate builds a URL from a user ID and avatar hash.
	CDNTemplate string `yaml:"cdn_template" toml:"cdn_template" json:"cdn_template"`

	// Timeout bounds each download attempt.
	// Default: 10s
	Timeout Duration `yaml:"timeout" toml:"timeout" json:"timeout"`

	// MaxAttempts bounds the attempts per fetch, first one included.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`

	// Backoff is the first retry delay; it doubles per attempt.
	// Default: 250ms
	Backoff Duration `yaml:"backoff" toml:"backoff" json:"backoff"`

	// QueueSize bounds pending download requests.
	// Default: 100
	QueueSize int `yaml:"queue_size" toml:"queue_size" json:"queue_size"`
}

// NotificationsConfig configures the notification list.
type NotificationsConfig struct {
	// TTL is how long a notification stays visible.
	// Default: 7s
	TTL Duration `yaml:"ttl" toml:"ttl" json:"ttl"`

	// MaxItems caps the list; the oldest item is dropped to make room.
	// 0 means unbounded.
	// Default: 16
	MaxItems int `yaml:"max_items" toml:"max_items" json:"max_items"`
}

// ControlConfig configures the control socket.
type ControlConfig struct {
	// SocketPath is the unix socket chotopctl connects to.
	// Default: $XDG_RUNTIME_DIR/chotop-control.sock (or /tmp)
	SocketPath string `yaml:"socket_path" toml:"socket_path" json:"socket_path"`
}

// BusConfig sizes the delivery channels.
type BusConfig struct {
	EventCapacity   int `yaml:"event_capacity" toml:"event_capacity" json:"event_capacity"`
	AvatarCapacity  int `yaml:"avatar_capacity" toml:"avatar_capacity" json:"avatar_capacity"`
	ControlCapacity int `yaml:"control_capacity" toml:"control_capacity" json:"control_capacity"`
}

// Position is the screen corner the overlay anchors to.
type Position string

const (
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"
	BottomRight Position = "bottom-right"
	BottomLeft  Position = "bottom-left"
)

// OverlayConfig holds presentation hints.
type OverlayConfig struct {
	Position     Position `yaml:"position" toml:"position" json:"position"`
	Margin       int      `yaml:"margin" toml:"margin" json:"margin"`
	Opacity      float64  `yaml:"opacity" toml:"opacity" json:"opacity"`
	ShowHeader   bool     `yaml:"show_header" toml:"show_header" json:"show_header"`
	AvatarSize   int      `yaml:"avatar_size" toml:"avatar_size" json:"avatar_size"`
	ClickThrough bool     `yaml:"click_through" toml:"click_through" json:"click_through"`
}

// ActionConfig configures notification activation.
type ActionConfig struct {
	// Command is run when a notification is activated. Empty disables
	// activation (it is only logged).
	// Default: equibop
	Command string `yaml:"command" toml:"command" json:"command"`

	// PassTarget appends the notification's target channel ID to the
	// command's arguments.
	PassTarget bool `yaml:"pass_target" toml:"pass_target" json:"pass_target"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level" toml:"level" json:"level"`

	// File, when set, receives log records through a rotating writer.
	File string `yaml:"file" toml:"file" json:"file"`

	// MaxSizeMB rotates the log file at this size.
	// Default: 10
	MaxSizeMB int `yaml:"max_size_mb" toml:"max_size_mb" json:"max_size_mb"`

	// MaxBackups is how many rotated files are kept.
	// Default: 3
	MaxBackups int `yaml:"max_backups" toml:"max_backups" json:"max_backups"`
}

// Default returns a configuration with every field set.
func Default() *Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}

	return &Config{
		Ingest: IngestConfig{
			Host:         "127.0.0.1",
			Port:         DefaultPort,
			PingInterval: Duration(20 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Avatar: AvatarConfig{
			CacheDir:    filepath.Join(cacheRoot, "discord-overlay", "avatars"),
			CDNTemplate: DefaultCDNTemplate,
			Timeout:     Duration(10 * time.Second),
			MaxAttempts: 3,
			Backoff:     Duration(250 * time.Millisecond),
			QueueSize:   100,
		},
		Notifications: NotificationsConfig{
			TTL:      Duration(7 * time.Second),
			MaxItems: 16,
		},
		Control: ControlConfig{
			SocketPath: filepath.Join(runtimeDir, "chotop-control.sock"),
		},
		Bus: BusConfig{
			EventCapacity:   100,
			AvatarCapacity:  100,
			ControlCapacity: 100,
		},
		Overlay: OverlayConfig{
			Position:   TopRight,
			Margin:     20,
			Opacity:    0.9,
			ShowHeader: true,
			AvatarSize: 32,
		},
		Action: ActionConfig{
			Command: "equibop",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load loads the file named by CHOTOP_CONFIG. When the variable is
// unset the defaults are returned; chotop is usable without a file.
func Load() (*Config, error) {
	path := os.Getenv("CHOTOP_CONFIG")
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes path into c, choosing the decoder by extension.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".toml":
		return toml.Unmarshal(data, c)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("unsupported config extension %q (want .yaml, .toml or .json)", extension)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.Avatar.CacheDir = expandVars(c.Avatar.CacheDir)
	c.Control.SocketPath = expandVars(c.Control.SocketPath)
	c.Log.File = expandVars(c.Log.File)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if !isLoopback(c.Ingest.Host) {
		errs = append(errs, fmt.Errorf("ingest.host must be a loopback address, got %q", c.Ingest.Host))
	}
	if c.Ingest.Port < 0 || c.Ingest.Port > 65535 {
		errs = append(errs, fmt.Errorf("ingest.port out of range: %d", c.Ingest.Port))
	}
	if c.Ingest.PingInterval <= 0 {
		errs = append(errs, errors.New("ingest.ping_interval must be positive"))
	}
	if c.Ingest.IdleTimeout < 0 {
		errs = append(errs, errors.New("ingest.idle_timeout must not be negative"))
	}
	if c.Ingest.IdleTimeout > 0 && c.Ingest.IdleTimeout <= c.Ingest.PingInterval {
		errs = append(errs, fmt.Errorf("ingest.idle_timeout (%s) must exceed ingest.ping_interval (%s)",
			c.Ingest.IdleTimeout, c.Ingest.PingInterval))
	}

	if c.Avatar.CacheDir == "" {
		errs = append(errs, errors.New("avatar.cache_dir is required"))
	}
	if !strings.Contains(c.Avatar.CDNTemplate, "{avatar}") {
		errs = append(errs, errors.New("avatar.cdn_template must contain {avatar}"))
	}
	if c.Avatar.Timeout <= 0 {
		errs = append(errs, errors.New("avatar.timeout must be positive"))
	}
	if c.Avatar.MaxAttempts < 1 {
		errs = append(errs, errors.New("avatar.max_attempts must be at least 1"))
	}
	if c.Avatar.Backoff <= 0 {
		errs = append(errs, errors.New("avatar.backoff must be positive"))
	}
	if c.Avatar.QueueSize < 1 {
		errs = append(errs, errors.New("avatar.queue_size must be at least 1"))
	}

	if c.Notifications.TTL <= 0 {
		errs = append(errs, errors.New("notifications.ttl must be positive"))
	}
	if c.Notifications.MaxItems < 0 {
		errs = append(errs, errors.New("notifications.max_items must not be negative"))
	}

	if c.Control.SocketPath == "" {
		errs = append(errs, errors.New("control.socket_path is required"))
	}

	if c.Bus.EventCapacity < 1 || c.Bus.AvatarCapacity < 1 || c.Bus.ControlCapacity < 1 {
		errs = append(errs, errors.New("bus capacities must be at least 1"))
	}

	switch c.Overlay.Position {
	case TopRight, TopLeft, BottomRight, BottomLeft:
	default:
		errs = append(errs, fmt.Errorf("overlay.position must be one of top-right, top-left, bottom-right, bottom-left, got %q", c.Overlay.Position))
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		errs = append(errs, fmt.Errorf("overlay.opacity must be within [0, 1], got %v", c.Overlay.Opacity))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
