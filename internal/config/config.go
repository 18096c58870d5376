package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string      `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string      `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string      `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	AllowedOrigins    []string    `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-default:"*"`
	Redis             Redis       `yaml:"redis"`
	SQLiteStoragePath string      `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/history.db"`
	Game              Game        `yaml:"game"`
	Matchmaking       Matchmaking `yaml:"matchmaking"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Game struct {
	TotalTime     time.Duration `yaml:"total-time" env:"GAME_TOTAL_TIME" env-default:"6m"`
	KFactor       int           `yaml:"k-factor" env:"GAME_K_FACTOR" env-default:"32"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"GAME_SWEEP_INTERVAL" env-default:"1s"`
	DefaultRating int           `yaml:"default-rating" env:"GAME_DEFAULT_RATING" env-default:"200"`
}

type Matchmaking struct {
	TTL time.Duration `yaml:"ttl" env:"MATCHMAKING_TTL" env-default:"30s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if config.Game.TotalTime <= 0 {
		return nil, fmt.Errorf("game total-time must be positive, got %s", config.Game.TotalTime)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
