package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	StoreDriver  string        `env:"STORE_DRIVER"  envDefault:"postgres" validate:"oneof=postgres sqlite memory"`
	SqlitePath   string        `env:"SQLITE_PATH"   envDefault:"./data/drawsync.db"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s" validate:"gt=0"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"drawsync_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"drawsync_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"drawsync_db"`

	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost    string `env:"REDIS_HOST"    envDefault:"localhost"`
	RedisPort    uint16 `env:"REDIS_PORT"    envDefault:"6379" validate:"min=1000,max=65535"`

	BatchInterval    time.Duration `env:"BATCH_INTERVAL"    envDefault:"50ms" validate:"gt=0"`
	DurabilityShards int           `env:"DURABILITY_SHARDS" envDefault:"4"    validate:"min=1,max=256"`

	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" envDefault:"1048576" validate:"min=1024"`
	SendBuffer     int   `env:"SEND_BUFFER"      envDefault:"256"     validate:"min=1"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
