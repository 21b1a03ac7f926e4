package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved build configuration. Values come from, in order of
// precedence, command-line flags, PRESSROOM_* environment variables, the
// config file and the defaults registered by SetDefaults.
type Config struct {
	SiteTitle string                 `mapstructure:"siteTitle"`
	BaseURL   string                 `mapstructure:"baseURL"`
	Params    map[string]interface{} `mapstructure:"params"`

	ContentDir string `mapstructure:"contentDir"`
	LayoutsDir string `mapstructure:"layoutsDir"`
	StaticDir  string `mapstructure:"staticDir"`
	OutputDir  string `mapstructure:"outputDir"`

	// Strict fails the whole build on the first malformed document instead
	// of skipping it with a warning.
	Strict bool `mapstructure:"strict"`
	// RequireDocuments turns an empty content collection into an error.
	RequireDocuments bool `mapstructure:"requireDocuments"`
	BuildDrafts      bool `mapstructure:"buildDrafts"`
	Workers          int  `mapstructure:"workers"`
	FeedLimit        int  `mapstructure:"feedLimit"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("siteTitle", "Pressroom")
	v.SetDefault("baseURL", "")
	v.SetDefault("contentDir", "content")
	v.SetDefault("layoutsDir", "")
	v.SetDefault("staticDir", "static")
	v.SetDefault("outputDir", "public")
	v.SetDefault("strict", false)
	v.SetDefault("requireDocuments", false)
	v.SetDefault("buildDrafts", false)
	v.SetDefault("workers", 8)
	v.SetDefault("feedLimit", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise surface as confusing
// failures half way through a build.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ContentDir) == "" {
		errs = append(errs, errors.New("contentDir must not be empty"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("outputDir must not be empty"))
	} else if filepath.Clean(c.OutputDir) == "." || filepath.Clean(c.OutputDir) == "/" {
		errs = append(errs, fmt.Errorf("outputDir %q would replace the working tree", c.OutputDir))
	}
	if c.ContentDir != "" && filepath.Clean(c.ContentDir) == filepath.Clean(c.OutputDir) {
		errs = append(errs, errors.New("contentDir and outputDir must differ"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.FeedLimit < 0 {
		errs = append(errs, fmt.Errorf("feedLimit must not be negative, got %d", c.FeedLimit))
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("baseURL %q must be an absolute URL", c.BaseURL))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
