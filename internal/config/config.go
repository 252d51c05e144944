// Package config loads and saves the reader's YAML settings file.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/metcalfc/rsvp/internal/fsutil"
)

const (
	DefaultSpeedMS  = 2000
	DefaultTextSize = 20

	BackendFiles = "files"
	BackendBolt  = "bolt"
)

// Theme holds the six colors used by the hosts, as "#RRGGBB" strings.
type Theme struct {
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Primary    string `yaml:"primary"`
	Success    string `yaml:"success"`
	Warning    string `yaml:"warning"`
	Danger     string `yaml:"danger"`
}

// Cache selects the text cache backend.
type Cache struct {
	Backend string `yaml:"backend"`
}

// Config mirrors config.yaml.
type Config struct {
	// Font is a file name under the fonts directory; empty uses the host default.
	Font     string         `yaml:"font"`
	TextSize float32        `yaml:"text_size"`
	SpeedMS  int            `yaml:"speed_ms"`
	Theme    Theme          `yaml:"theme"`
	Cache    Cache          `yaml:"cache"`
	History  map[string]int `yaml:"history"`
}

// DefaultTheme returns the built-in color theme.
func DefaultTheme() Theme {
	return Theme{
		Background: "#FFFEF9",
		Text:       "#15161B",
		Primary:    "#C17F5A",
		Success:    "#809C6C",
		Warning:    "#AE363F",
		Danger:     "#DF3535",
	}
}

// Default returns the configuration written on first start.
func Default() Config {
	return Config{
		TextSize: DefaultTextSize,
		SpeedMS:  DefaultSpeedMS,
		Theme:    DefaultTheme(),
		Cache:    Cache{Backend: BackendFiles},
		History:  map[string]int{},
	}
}

func (c *Config) normalize() {
	def := Default()
	if c.TextSize <= 0 {
		c.TextSize = def.TextSize
	}
	if c.SpeedMS <= 0 {
		c.SpeedMS = def.SpeedMS
	}
	fill := func(v *string, d string) {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			*v = d
		}
	}
	fill(&c.Theme.Background, def.Theme.Background)
	fill(&c.Theme.Text, def.Theme.Text)
	fill(&c.Theme.Primary, def.Theme.Primary)
	fill(&c.Theme.Success, def.Theme.Success)
	fill(&c.Theme.Warning, def.Theme.Warning)
	fill(&c.Theme.Danger, def.Theme.Danger)

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend != BackendBolt {
		c.Cache.Backend = BackendFiles
	}
	if c.History == nil {
		c.History = map[string]int{}
	}
	for title, index := range c.History {
		if index < 0 {
			c.History[title] = 0
		}
	}
}

// Store owns the config file. Saves rewrite the whole file atomically.
type Store struct {
	path string
	cfg  Config
	mu   sync.Mutex
}

// Open loads the config at path, writing defaults if the file does not exist.
// A file that cannot be parsed is an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.cfg = Default()
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("failed to write default config %s: %w", path, err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.normalize()
	s.cfg = cfg
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// Config returns a copy of the current settings.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cfg
	c.History = maps.Clone(s.cfg.History)
	return c
}

// SaveHistory replaces the stored history and writes the file.
func (s *Store) SaveHistory(history map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.History = maps.Clone(history)
	if s.cfg.History == nil {
		s.cfg.History = map[string]int{}
	}
	return s.save()
}

// SaveSpeed stores the word interval and writes the file.
func (s *Store) SaveSpeed(ms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SpeedMS = ms
	return s.save()
}

// SaveTextSize stores the font size and writes the file.
func (s *Store) SaveTextSize(size float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.TextSize = size
	return s.save()
}

// save must be called with s.mu held, or before s is shared.
func (s *Store) save() error {
	data, err := yaml.Marshal(&s.cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o644)
}
