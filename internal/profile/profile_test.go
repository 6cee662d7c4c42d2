package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsSQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}

	require.NoError(t, p.Validate())
	assert.Equal(t, filepath.Join(dir, "nexus_dev.db"), p.DSN)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
	assert.Error(t, p.Validate())
}

func TestValidateRequiresPostgresDSN(t *testing.T) {
	p := &Profile{Mode: "prod", Driver: "postgres", Data: t.TempDir()}
	assert.Error(t, p.Validate())

	p.DSN = "postgres://nexus@localhost/nexus?sslmode=disable"
	assert.NoError(t, p.Validate())
}

func TestValidateNormalizesMode(t *testing.T) {
	p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
	require.NoError(t, p.Validate())
	assert.Equal(t, "dev", p.Mode)
	assert.True(t, p.IsDev())
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("NEXUS_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("NEXUS_EMBEDDING_DIMENSIONS", "1024")
	t.Setenv("NEXUS_KARAKEEP_API_KEY", "kk-test")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "https://api.openai.com/v1", p.EmbeddingBaseURL)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 1024, p.EmbeddingDimensions)
	assert.True(t, p.IsKarakeepEnabled())
	assert.False(t, p.IsMinifluxEnabled())
	assert.Equal(t, "https://miniflux.app", p.MinifluxBaseURL)
}
