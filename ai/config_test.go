package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "embeddinggemma", cfg.Model)
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, 1024, cfg.CacheSize)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
		assert.Equal(t, "embeddinggemma", cfg.Model)
		assert.Equal(t, 384, cfg.Dimension)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
	})

	t.Run("with custom model", func(t *testing.T) {
		cfg := NewConfig(WithModel("text-embedding-3-small"))

		assert.Equal(t, "text-embedding-3-small", cfg.Model)
	})

	t.Run("with custom dimension", func(t *testing.T) {
		cfg := NewConfig(WithDimension(768))

		assert.Equal(t, 768, cfg.Dimension)
	})

	t.Run("with custom cache size", func(t *testing.T) {
		cfg := NewConfig(WithCacheSize(4096))

		assert.Equal(t, 4096, cfg.CacheSize)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithModel("custom-embed"),
			WithDimension(512),
			WithCacheSize(16),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
		assert.Equal(t, "custom-embed", cfg.Model)
		assert.Equal(t, 512, cfg.Dimension)
		assert.Equal(t, 16, cfg.CacheSize)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{
			name:     "already has /v1",
			host:     "http://localhost:11434/v1",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "missing /v1",
			host:     "http://localhost:11434",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "has trailing slash",
			host:     "http://localhost:11434/",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "empty host",
			host:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.Host)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			Host:      "http://localhost:11434",
			Model:     "embeddinggemma",
			Dimension: 384,
			CacheSize: 1024,
		}

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("zero cache size disables caching", func(t *testing.T) {
		cfg := NewConfig(WithCacheSize(0))

		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := &Config{
			Model:     "embeddinggemma",
			Dimension: 384,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Host")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := &Config{
			Host:      "http://localhost:11434/v1",
			Dimension: 384,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Model")
	})

	t.Run("zero dimension", func(t *testing.T) {
		cfg := &Config{
			Host:  "http://localhost:11434/v1",
			Model: "embeddinggemma",
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Dimension")
	})

	t.Run("negative dimension", func(t *testing.T) {
		cfg := NewConfig(WithDimension(-1))

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Dimension")
	})

	t.Run("negative cache size", func(t *testing.T) {
		cfg := NewConfig(WithCacheSize(-5))

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CacheSize")
	})
}
