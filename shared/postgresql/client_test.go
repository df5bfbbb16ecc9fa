package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "ingest",
		Password: "secret",
		Database: "preservation_db",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=ingest password=secret dbname=preservation_db sslmode=require",
		cfg.DSN(),
	)
}

func TestConfig_DSNDefaultsSSLMode(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 5432, Database: "db"}

	assert.Contains(t, cfg.DSN(), "sslmode=disable")
}
