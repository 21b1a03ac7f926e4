package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "content", cfg.ContentDir)
				assert.Equal(t, "public", cfg.OutputDir)
				assert.Equal(t, 8, cfg.Workers)
				assert.False(t, cfg.Strict)
				assert.False(t, cfg.RequireDocuments)
				assert.Equal(t, "info", cfg.Log.Level)
			},
		},
		{
			name: "overrides",
			setup: func(v *viper.Viper) {
				v.Set("strict", true)
				v.Set("outputDir", "dist")
				v.Set("baseURL", "https://blog.example.com/")
				v.Set("params", map[string]interface{}{"author": "ada"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Strict)
				assert.Equal(t, "dist", cfg.OutputDir)
				assert.Equal(t, "ada", cfg.Params["author"])
			},
		},
		{
			name:        "zero workers",
			setup:       func(v *viper.Viper) { v.Set("workers", 0) },
			expectError: "workers must be at least 1",
		},
		{
			name:        "relative base url",
			setup:       func(v *viper.Viper) { v.Set("baseURL", "blog/") },
			expectError: "must be an absolute URL",
		},
		{
			name:        "output replaces working tree",
			setup:       func(v *viper.Viper) { v.Set("outputDir", ".") },
			expectError: "would replace the working tree",
		},
		{
			name: "content equals output",
			setup: func(v *viper.Viper) {
				v.Set("contentDir", "site")
				v.Set("outputDir", "site/")
			},
			expectError: "must differ",
		},
		{
			name:        "unknown log format",
			setup:       func(v *viper.Viper) { v.Set("log.format", "xml") },
			expectError: "log.format",
		},
		{
			name:        "undecodable value",
			setup:       func(v *viper.Viper) { v.Set("workers", "many") },
			expectError: "unable to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			tt.setup(v)

			cfg, err := Load(v)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{Workers: 0, FeedLimit: -1}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"contentDir", "outputDir", "workers", "feedLimit"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}
