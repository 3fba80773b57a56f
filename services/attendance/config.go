package attendance

import (
	"os"

	"github.com/tabrela/tabrela/internal/config"
)

// Config extends the shared Base with the one attendance-specific
// variable: where to reach Auth's admin-check callback.
type Config struct {
	config.Base
	AuthServiceURL string
}

func LoadConfig() Config {
	base := config.LoadBase()
	return Config{
		Base:           base,
		AuthServiceURL: getEnv("AUTH_SERVICE_URL", "http://localhost:8081"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
