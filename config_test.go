package spacetraveling

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/views"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "spacetraveling", cfg.Name)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, SourceFiles, cfg.Source)
	assert.Equal(t, 30*time.Minute, cfg.Revalidate)
	assert.Equal(t, 1800, cfg.RevalidateSeconds())
	assert.Equal(t, FallbackPending, cfg.Fallback)
	assert.Zero(t, cfg.PathsPageSize)
	assert.Equal(t, 4, cfg.BuildConcurrency)
	assert.Equal(t, views.PortugueseBR, cfg.site().Locale)
}

func TestConfigPicksPrismicWhenEndpointIsSet(t *testing.T) {
	cfg := Config{PrismicEndpoint: "https://repo.cdn.prismic.io/api/v2"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, SourcePrismic, cfg.Source)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"prismic without endpoint", Config{Source: SourcePrismic}},
		{"unknown source", Config{Source: "ftp"}},
		{"unknown fallback", Config{Fallback: "never"}},
		{"negative page size", Config{PathsPageSize: -1}},
		{"sub-second revalidate", Config{Revalidate: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacetraveling.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Space Traveling
url: https://blog.example.com
revalidate: 10m
paths_page_size: 20
fallback: blocking
prismic_endpoint: https://repo.cdn.prismic.io/api/v2
`), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PRISMIC_ACCESS_TOKEN=from-dotenv\n"), 0o644))

	t.Setenv("SPACETRAVELING_REVALIDATE", "1800")
	t.Setenv("SPACETRAVELING_TRUST_CONTENT", "true")
	t.Setenv("PRISMIC_ACCESS_TOKEN", "")
	os.Unsetenv("PRISMIC_ACCESS_TOKEN")

	cfg, err := LoadConfig(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "Space Traveling", cfg.Name)
	assert.Equal(t, 20, cfg.PathsPageSize)
	assert.Equal(t, FallbackBlocking, cfg.Fallback)
	assert.Equal(t, SourcePrismic, cfg.Source)
	assert.Equal(t, 30*time.Minute, cfg.Revalidate, "environment overrides the file")
	assert.True(t, cfg.TrustContent)
	assert.Equal(t, "from-dotenv", cfg.PrismicToken)
}

func TestLoadConfigMissingEnvFileIsFine(t *testing.T) {
	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, "spacetraveling", cfg.Name)
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("SPACETRAVELING_PATHS_PAGE_SIZE", "lots")
	_, err := LoadConfig("", "")
	assert.Error(t, err)
}
