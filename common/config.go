package common

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Upload   UploadConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string `env:"PORT" env-default:"8080"`
}

type DatabaseConfig struct {
	File string `env:"SQLITE_DB" env-default:"marketwatch.db"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer      string        `env:"JWT_ISSUER" env-default:"marketwatch"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	SessionSecret  string        `env:"SESSION_SECRET" env-required:"true"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
}

type UploadConfig struct {
	Dir            string `env:"UPLOAD_DIR" env-default:"uploads"`
	CoverMaxBytes  int64  `env:"UPLOAD_COVER_MAX_BYTES" env-default:"10485760"`
	AvatarMaxBytes int64  `env:"UPLOAD_AVATAR_MAX_BYTES" env-default:"2097152"`
}

type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	AllowedMethods string `env:"CORS_ALLOWED_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders string `env:"CORS_ALLOWED_HEADERS" env-default:"Authorization,Content-Type"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}
