package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	MongoURI string
	DBName   string

	// JWKSURL is the token issuer's published key set; TokenIssuers is the
	// allow-list of acceptable iss claims.
	JWKSURL      string
	TokenIssuers []string

	AIServiceURL string
	CatalogURL   string

	// RedisAddr switches the catalog cache from in-memory to redis when set.
	RedisAddr     string
	RedisPassword string

	CatalogCacheTTL   time.Duration
	HTTPClientTimeout time.Duration
}

func Load() (*Config, error) {
	ttl := 2 * time.Hour
	if v := getEnv("CATALOG_CACHE_TTL", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	timeout := 10 * time.Second
	if v := getEnv("HTTP_CLIENT_TIMEOUT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	var issuers []string
	for _, iss := range strings.Split(getEnv("TOKEN_ISSUERS", ""), ",") {
		if iss = strings.TrimSpace(iss); iss != "" {
			issuers = append(issuers, iss)
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("MONGODB_DB", "booktrack"),
		JWKSURL:           getEnv("JWKS_URL", ""),
		TokenIssuers:      issuers,
		AIServiceURL:      getEnv("AI_SERVICE_URL", "http://localhost:5000"),
		CatalogURL:        getEnv("CATALOG_URL", "https://openlibrary.org"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		CatalogCacheTTL:   ttl,
		HTTPClientTimeout: timeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
