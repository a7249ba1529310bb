package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_DevelopmentDefaults(t *testing.T) {
	req := require.New(t)

	// Given an empty environment
	// When parsing
	cfg, err := Parse(nil)

	// Then development defaults are applied
	req.NoError(err)
	req.True(cfg.IsDevelopment())
	req.Equal(8080, cfg.Port)
	req.Equal(4, cfg.PowDifficulty)
	req.Equal(256, cfg.SendQueueSize)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.Equal(StoreDriverPostgres, cfg.StoreDriver)
	req.Equal(devDSN, cfg.DatabaseDSN)
	req.Equal(devJWTSecret, cfg.JWTSecret)
	req.Empty(cfg.AllowedOrigins)
	req.False(cfg.StorageEnabled())
}

func TestParse_Overrides(t *testing.T) {
	req := require.New(t)

	cfg, err := Parse([]string{
		"PORT=9090",
		"STORE_DRIVER=memory",
		"ALLOWED_ORIGINS= http://a.test , ,http://b.test",
		"SEND_QUEUE_SIZE=16",
		"S3_BUCKET_NAME=assets",
		"S3_ACCESS_KEY_ID=key",
		"S3_SECRET_ACCESS_KEY=secret",
	})

	req.NoError(err)
	req.Equal(9090, cfg.Port)
	req.Equal(StoreDriverMemory, cfg.StoreDriver)
	req.Empty(cfg.DatabaseDSN)
	req.Equal([]string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	req.Equal(16, cfg.SendQueueSize)
	req.True(cfg.StorageEnabled())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		environ []string
	}{
		{name: "production without secret", environ: []string{"ENVIRONMENT=production", "DATABASE_URL=postgres://x"}},
		{name: "production without database", environ: []string{"ENVIRONMENT=production", "JWT_SECRET=s"}},
		{name: "privileged port", environ: []string{"PORT=80"}},
		{name: "unknown driver", environ: []string{"STORE_DRIVER=mongo"}},
		{name: "bucket without credentials", environ: []string{"S3_BUCKET_NAME=assets"}},
		{name: "non numeric port", environ: []string{"PORT=http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.environ)
			require.Error(t, err)
		})
	}
}
