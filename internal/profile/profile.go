package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where nexus stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Embedding provider configuration
	EmbeddingBaseURL    string // NEXUS_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)
	EmbeddingAPIKey     string // NEXUS_EMBEDDING_API_KEY
	EmbeddingModel      string // NEXUS_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDimensions int    // NEXUS_EMBEDDING_DIMENSIONS (default: 384)

	// Karakeep bookmark source (enabled when the API key is set)
	KarakeepAPIKey  string // NEXUS_KARAKEEP_API_KEY
	KarakeepBaseURL string // NEXUS_KARAKEEP_BASE_URL (default: https://api.karakeep.app)

	// Miniflux feed source (enabled when the API key is set)
	MinifluxAPIKey  string // NEXUS_MINIFLUX_API_KEY
	MinifluxBaseURL string // NEXUS_MINIFLUX_BASE_URL (default: https://miniflux.app)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsKarakeepEnabled reports whether the bookmark source is configured.
func (p *Profile) IsKarakeepEnabled() bool {
	return p.KarakeepAPIKey != ""
}

// IsMinifluxEnabled reports whether the feed source is configured.
func (p *Profile) IsMinifluxEnabled() bool {
	return p.MinifluxAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads source and embedding configuration from environment
// variables.
func (p *Profile) FromEnv() {
	p.EmbeddingBaseURL = getEnvOrDefault("NEXUS_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingAPIKey = os.Getenv("NEXUS_EMBEDDING_API_KEY")
	p.EmbeddingModel = getEnvOrDefault("NEXUS_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDimensions = 384
	if raw := os.Getenv("NEXUS_EMBEDDING_DIMENSIONS"); raw != "" {
		if dims, err := strconv.Atoi(raw); err == nil && dims > 0 {
			p.EmbeddingDimensions = dims
		}
	}

	p.KarakeepAPIKey = os.Getenv("NEXUS_KARAKEEP_API_KEY")
	p.KarakeepBaseURL = getEnvOrDefault("NEXUS_KARAKEEP_BASE_URL", "https://api.karakeep.app")
	p.MinifluxAPIKey = os.Getenv("NEXUS_MINIFLUX_API_KEY")
	p.MinifluxBaseURL = getEnvOrDefault("NEXUS_MINIFLUX_BASE_URL", "https://miniflux.app")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("nexus_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires an explicit DSN")
	}

	return nil
}
