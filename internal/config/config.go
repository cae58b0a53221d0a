package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/layout"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

// FileNames are the config files Load looks for, in order.
var FileNames = []string{"orbit.yaml", "orbit.yml", "orbit.toml"}

// Config represents the orbit configuration
type Config struct {
	// Env selects the logger preset: "development" or "production"
	Env string `yaml:"env" toml:"env" json:"env"`

	Data   DataConfig   `yaml:"data" toml:"data" json:"data"`
	Search SearchConfig `yaml:"search" toml:"search" json:"search"`

	Layout layout.Params  `yaml:"layout" toml:"layout" json:"layout"`
	Rings  graph.Rings    `yaml:"rings" toml:"rings" json:"rings"`
	Camera CameraConfig   `yaml:"camera" toml:"camera" json:"camera"`
	Render render.Options `yaml:"render" toml:"render" json:"render"`

	Server ServerConfig `yaml:"server" toml:"server" json:"server"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache" json:"cache"`
}

// DataConfig selects where the graph comes from
type DataConfig struct {
	// Source is one of "synthetic", "file", "http" or "neo4j"
	Source string `yaml:"source" toml:"source" json:"source"`

	// Path of a JSON or YAML dataset (file source)
	Path string `yaml:"path,omitempty" toml:"path" json:"path,omitempty"`

	// Endpoint of the graph service (http source)
	Endpoint   string `yaml:"endpoint,omitempty" toml:"endpoint" json:"endpoint,omitempty"`
	TeamID     string `yaml:"team,omitempty" toml:"team" json:"team,omitempty"`
	Credential string `yaml:"-" toml:"-" json:"-"`

	// IncludeSynthetic merges the demo dataset into whatever was fetched
	IncludeSynthetic bool `yaml:"includeSynthetic" toml:"include_synthetic" json:"includeSynthetic"`

	Neo4jURI      string `yaml:"neo4jURI,omitempty" toml:"neo4j_uri" json:"neo4jURI,omitempty"`
	Neo4jUser     string `yaml:"neo4jUser,omitempty" toml:"neo4j_user" json:"neo4jUser,omitempty"`
	Neo4jPassword string `yaml:"-" toml:"-" json:"-"`
	Neo4jDatabase string `yaml:"neo4jDatabase,omitempty" toml:"neo4j_database" json:"neo4jDatabase,omitempty"`
}

// SearchConfig selects the search backend
type SearchConfig struct {
	// Backend is one of "local", "http" or "nats"
	Backend  string `yaml:"backend" toml:"backend" json:"backend"`
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint" json:"endpoint,omitempty"`

	NATSURL string `yaml:"natsURL,omitempty" toml:"nats_url" json:"natsURL,omitempty"`
	Subject string `yaml:"subject,omitempty" toml:"subject" json:"subject,omitempty"`

	TimeoutMS     int     `yaml:"timeoutMS" toml:"timeout_ms" json:"timeoutMS"`
	RatePerSecond float64 `yaml:"ratePerSecond" toml:"rate_per_second" json:"ratePerSecond"`
	Burst         int     `yaml:"burst" toml:"burst" json:"burst"`
}

// Timeout returns TimeoutMS as a duration.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// CameraConfig mirrors camera.Options with durations in milliseconds
type CameraConfig struct {
	Width  float64 `yaml:"width" toml:"width" json:"width"`
	Height float64 `yaml:"height" toml:"height" json:"height"`

	ZoomFactor     float64 `yaml:"zoomFactor" toml:"zoom_factor" json:"zoomFactor"`
	ZoomDurationMS int     `yaml:"zoomDurationMS" toml:"zoom_duration_ms" json:"zoomDurationMS"`

	FitDurationMS int     `yaml:"fitDurationMS" toml:"fit_duration_ms" json:"fitDurationMS"`
	FitPadding    float64 `yaml:"fitPadding" toml:"fit_padding" json:"fitPadding"`
	ResetZoomOut  float64 `yaml:"resetZoomOut" toml:"reset_zoom_out" json:"resetZoomOut"`

	FocusDurationMS int     `yaml:"focusDurationMS" toml:"focus_duration_ms" json:"focusDurationMS"`
	InspectZoom     float64 `yaml:"inspectZoom" toml:"inspect_zoom" json:"inspectZoom"`

	MinZoom float64 `yaml:"minZoom" toml:"min_zoom" json:"minZoom"`
	MaxZoom float64 `yaml:"maxZoom" toml:"max_zoom" json:"maxZoom"`

	// AutoFitDelayMS is the pause between a rebuild and the automatic fit
	AutoFitDelayMS int `yaml:"autoFitDelayMS" toml:"auto_fit_delay_ms" json:"autoFitDelayMS"`
}

// Options converts c to camera options. Zero fields keep the camera defaults.
func (c CameraConfig) Options() *camera.Options {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return &camera.Options{
		Width:         c.Width,
		Height:        c.Height,
		ZoomFactor:    c.ZoomFactor,
		ZoomDuration:  ms(c.ZoomDurationMS),
		FitDuration:   ms(c.FitDurationMS),
		FitPadding:    c.FitPadding,
		ResetZoomOut:  c.ResetZoomOut,
		FocusDuration: ms(c.FocusDurationMS),
		InspectZoom:   c.InspectZoom,
		MinZoom:       c.MinZoom,
		MaxZoom:       c.MaxZoom,
	}
}

// AutoFitDelay returns AutoFitDelayMS as a duration.
func (c CameraConfig) AutoFitDelay() time.Duration {
	return time.Duration(c.AutoFitDelayMS) * time.Millisecond
}

// ServerConfig contains live server configuration
type ServerConfig struct {
	Addr            string `yaml:"addr" toml:"addr" json:"addr"`
	FrameIntervalMS int    `yaml:"frameIntervalMS" toml:"frame_interval_ms" json:"frameIntervalMS"`
	// Watch reloads a file dataset when it changes
	Watch bool `yaml:"watch" toml:"watch" json:"watch"`
}

// FrameInterval returns FrameIntervalMS as a duration.
func (s ServerConfig) FrameInterval() time.Duration {
	return time.Duration(s.FrameIntervalMS) * time.Millisecond
}

// CacheConfig controls the layout position cache
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Dir        string `yaml:"dir" toml:"dir" json:"dir"`
	MaxEntries int    `yaml:"maxEntries" toml:"max_entries" json:"maxEntries"`
}

// Load reads the first config file found in dir, falls back to defaults when
// there is none, then applies .env and ORBIT_* environment overrides.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		break
	}

	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a single YAML or TOML config file. Missing values take
// their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported config format", path)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path as YAML or TOML depending on the extension.
func Save(cfg *Config, path string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		data = out
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Data: DataConfig{
			Source:           "synthetic",
			IncludeSynthetic: true,
			Neo4jURI:         "bolt://localhost:7687",
			Neo4jUser:        "neo4j",
			Neo4jDatabase:    "neo4j",
		},
		Search: SearchConfig{
			Backend:       "local",
			Subject:       "orbit.search",
			TimeoutMS:     5000,
			RatePerSecond: 5,
			Burst:         2,
		},
		Layout: layout.DefaultParams(),
		Rings:  graph.DefaultRings(),
		Camera: CameraConfig{
			Width:          960,
			Height:         640,
			AutoFitDelayMS: 1200,
		},
		Render: render.DefaultOptions(),
		Server: ServerConfig{
			Addr:            ":8080",
			FrameIntervalMS: 50,
		},
		Cache: CacheConfig{
			Dir:        ".orbit/cache",
			MaxEntries: 32,
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Env == "" {
		cfg.Env = defaults.Env
	}
	if cfg.Data.Source == "" {
		cfg.Data.Source = defaults.Data.Source
	}
	if cfg.Data.Neo4jURI == "" {
		cfg.Data.Neo4jURI = defaults.Data.Neo4jURI
	}
	if cfg.Data.Neo4jUser == "" {
		cfg.Data.Neo4jUser = defaults.Data.Neo4jUser
	}
	if cfg.Data.Neo4jDatabase == "" {
		cfg.Data.Neo4jDatabase = defaults.Data.Neo4jDatabase
	}

	if cfg.Search.Backend == "" {
		cfg.Search.Backend = defaults.Search.Backend
	}
	if cfg.Search.Subject == "" {
		cfg.Search.Subject = defaults.Search.Subject
	}
	if cfg.Search.TimeoutMS <= 0 {
		cfg.Search.TimeoutMS = defaults.Search.TimeoutMS
	}
	if cfg.Search.RatePerSecond <= 0 {
		cfg.Search.RatePerSecond = defaults.Search.RatePerSecond
	}
	if cfg.Search.Burst <= 0 {
		cfg.Search.Burst = defaults.Search.Burst
	}

	cfg.Layout = cfg.Layout.WithDefaults()
	if cfg.Rings.Hub <= 0 {
		cfg.Rings.Hub = defaults.Rings.Hub
	}
	if cfg.Rings.Category <= 0 {
		cfg.Rings.Category = defaults.Rings.Category
	}
	if cfg.Rings.Leaf <= 0 {
		cfg.Rings.Leaf = defaults.Rings.Leaf
	}

	if cfg.Camera.Width <= 0 {
		cfg.Camera.Width = defaults.Camera.Width
	}
	if cfg.Camera.Height <= 0 {
		cfg.Camera.Height = defaults.Camera.Height
	}
	if cfg.Camera.AutoFitDelayMS <= 0 {
		cfg.Camera.AutoFitDelayMS = defaults.Camera.AutoFitDelayMS
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.FrameIntervalMS <= 0 {
		cfg.Server.FrameIntervalMS = defaults.Server.FrameIntervalMS
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaults.Cache.Dir
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("ORBIT_ENV", cfg.Env)
	cfg.Data.Source = getEnv("ORBIT_DATA_SOURCE", cfg.Data.Source)
	cfg.Data.Path = getEnv("ORBIT_DATA_PATH", cfg.Data.Path)
	cfg.Data.Endpoint = getEnv("ORBIT_DATA_ENDPOINT", cfg.Data.Endpoint)
	cfg.Data.TeamID = getEnv("ORBIT_TEAM", cfg.Data.TeamID)
	cfg.Data.Credential = getEnv("ORBIT_CREDENTIAL", cfg.Data.Credential)
	cfg.Data.IncludeSynthetic = getEnvBool("ORBIT_INCLUDE_SYNTHETIC", cfg.Data.IncludeSynthetic)
	cfg.Data.Neo4jURI = getEnv("ORBIT_NEO4J_URI", cfg.Data.Neo4jURI)
	cfg.Data.Neo4jUser = getEnv("ORBIT_NEO4J_USER", cfg.Data.Neo4jUser)
	cfg.Data.Neo4jPassword = getEnv("ORBIT_NEO4J_PASSWORD", cfg.Data.Neo4jPassword)
	cfg.Search.Backend = getEnv("ORBIT_SEARCH_BACKEND", cfg.Search.Backend)
	cfg.Search.Endpoint = getEnv("ORBIT_SEARCH_ENDPOINT", cfg.Search.Endpoint)
	cfg.Search.NATSURL = getEnv("ORBIT_NATS_URL", cfg.Search.NATSURL)
	cfg.Server.Addr = getEnv("ORBIT_ADDR", cfg.Server.Addr)
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "synthetic":
	case "file":
		if c.Data.Path == "" {
			return orbiterrors.NewConfigValidationFailed("data.path", "required for the file source")
		}
	case "http":
		if c.Data.Endpoint == "" {
			return orbiterrors.NewConfigValidationFailed("data.endpoint", "required for the http source")
		}
	case "neo4j":
		if c.Data.Neo4jURI == "" {
			return orbiterrors.NewConfigValidationFailed("data.neo4jURI", "required for the neo4j source")
		}
	default:
		return orbiterrors.NewConfigValidationFailed("data.source", fmt.Sprintf("unknown source %q", c.Data.Source))
	}

	switch c.Search.Backend {
	case "local":
	case "http":
		if c.Search.Endpoint == "" {
			return orbiterrors.NewConfigValidationFailed("search.endpoint", "required for the http backend")
		}
	case "nats":
		if c.Search.NATSURL == "" {
			return orbiterrors.NewConfigValidationFailed("search.natsURL", "required for the nats backend")
		}
	default:
		return orbiterrors.NewConfigValidationFailed("search.backend", fmt.Sprintf("unknown backend %q", c.Search.Backend))
	}

	if !(c.Rings.Hub < c.Rings.Category && c.Rings.Category < c.Rings.Leaf) {
		return orbiterrors.NewConfigValidationFailed("rings", "must satisfy hub < category < leaf")
	}
	if c.Layout.Link.HubCategory >= c.Layout.Link.CategoryLeaf {
		return orbiterrors.NewConfigValidationFailed("layout.link", "hubCategory must be shorter than categoryLeaf")
	}
	if c.Camera.MinZoom > 0 && c.Camera.MaxZoom > 0 && c.Camera.MinZoom >= c.Camera.MaxZoom {
		return orbiterrors.NewConfigValidationFailed("camera", "minZoom must be below maxZoom")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
