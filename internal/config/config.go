package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CatalogConfig points at the precomputed artifacts loaded at startup.
type CatalogConfig struct {
	MoviesPath     string `yaml:"movies_path"`
	SimilarityPath string `yaml:"similarity_path"`
}

// RecommenderConfig configures ranking.
type RecommenderConfig struct {
	TopN int `yaml:"top_n"`
}

// ResolverConfig configures fuzzy title matching.
type ResolverConfig struct {
	Cutoff float64 `yaml:"cutoff"`
}

// TMDBConfig holds connection details for the poster metadata service.
type TMDBConfig struct {
	BaseURL        string `yaml:"base_url"`
	ImageBaseURL   string `yaml:"image_base_url"`
	PlaceholderURL string `yaml:"placeholder_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Language       string `yaml:"language"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	Concurrency    int    `yaml:"concurrency"`
	CircuitBreaker bool   `yaml:"circuit_breaker"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// MaxSessions caps live chat sessions; the least recently used is dropped.
	MaxSessions int `yaml:"max_sessions"`
}

// LoggingConfig configures the zerolog logger. File is used by the TUI so
// log lines do not draw over the screen.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Catalog     CatalogConfig     `yaml:"catalog"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	TMDB        TMDBConfig        `yaml:"tmdb"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

const (
	appName        = "movierec"
	configFileName = "config.yaml"
)

// LoadDefault loads the first config found among SearchPaths. When none exists
// the built-in defaults are written to the per-user path and returned.
func LoadDefault() (*AppConfig, string, error) {
	paths, err := SearchPaths()
	if err != nil {
		return nil, "", err
	}
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr != nil {
			continue
		}
		cfg, err := Load(p)
		return cfg, p, err
	}
	userPath := paths[len(paths)-1]
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// SearchPaths lists config locations in lookup order: the working directory,
// then the user config dir (~/.config/movierec on Linux).
func SearchPaths() ([]string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "locate user config dir")
	}
	return []string{configFileName, filepath.Join(dir, appName, configFileName)}, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create config dir for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write config %s", path)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Catalog: CatalogConfig{
			MoviesPath:     "movie_list.json",
			SimilarityPath: "similarity.json",
		},
		TMDB: TMDBConfig{CircuitBreaker: true},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Recommender.TopN <= 0 {
		cfg.Recommender.TopN = 5
	}
	if cfg.Resolver.Cutoff <= 0 || cfg.Resolver.Cutoff > 1 {
		cfg.Resolver.Cutoff = 0.6
	}
	t := &cfg.TMDB
	if t.BaseURL == "" {
		t.BaseURL = "https://api.themoviedb.org/3"
	}
	if t.ImageBaseURL == "" {
		t.ImageBaseURL = "https://image.tmdb.org/t/p/w500"
	}
	if t.PlaceholderURL == "" {
		t.PlaceholderURL = "https://via.placeholder.com/500x750?text=No+Poster"
	}
	if t.APIKeyEnv == "" {
		t.APIKeyEnv = "TMDB_API_KEY"
	}
	if t.Language == "" {
		t.Language = "en-US"
	}
	if t.TimeoutSecs <= 0 {
		t.TimeoutSecs = 10
	}
	if t.Concurrency <= 0 {
		t.Concurrency = 1
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxSessions <= 0 {
		cfg.Server.MaxSessions = 1000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
