package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	DataDir     string
	UploadDir   string
	StaticDir   string
	CORSOrigins string

	// SessionSecret seeds the session cookie key.
	SessionSecret string

	// SectionPasswords maps a section code (EK/TF/SM/NT) to its password.
	// Values may be bcrypt hashes ($2a$... prefix) or plaintext.
	SectionPasswords map[string]string

	AuditDBPath  string
	WatchDataDir bool

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "3000"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		StaticDir:     getEnv("STATIC_DIR", "./public"),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		AuditDBPath:   getEnv("AUDIT_DB_PATH", ""),
		WatchDataDir:  getEnv("WATCH_DATA_DIR", "true") == "true",
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
	}

	cfg.SectionPasswords = parseSectionPasswords(getEnv("SECTION_PASSWORDS", ""))

	if cfg.SessionSecret == "" {
		log.Println("[WARN] SESSION_SECRET is not set, sessions will not survive a restart.")
	}
	if len(cfg.SectionPasswords) == 0 {
		log.Fatal("[FATAL] SECTION_PASSWORDS is not set. Expected format: EK=pass1,TF=pass2,SM=pass3,NT=pass4")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production.")
	}

	return cfg
}

// parseSectionPasswords splits "EK=a,TF=b" into a section→password map.
func parseSectionPasswords(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
