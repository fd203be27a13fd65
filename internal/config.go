package internal

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=5000" validate:"min=1,max=65535"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	StoreBackend        string        `env:"STORE_BACKEND,default=badger" validate:"oneof=badger redis"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,default=./data/badger" validate:"required_if=StoreBackend badger"`
	RedisURL            string        `env:"REDIS_URL" validate:"required_if=StoreBackend redis"`
	ReaperInterval      time.Duration `env:"REAPER_INTERVAL,default=15s" validate:"gt=0"`
	InactivityThreshold time.Duration `env:"INACTIVITY_THRESHOLD,default=15s" validate:"gt=0"`
	ReaperConcurrency   int           `env:"REAPER_CONCURRENCY,default=8" validate:"min=1"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	CensoredWords       string        `env:"CENSORED_WORDS"`
	CharReplacement     string        `env:"CHARACTER_REPLACEMENT,default=*"`
	CORSOrigin          string        `env:"CORS_ORIGIN,default=*" validate:"required"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// LoadConfig reads the optional env files (".env" when none is given) without
// overriding variables already set, then decodes and validates the environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := config.CharacterRune(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
