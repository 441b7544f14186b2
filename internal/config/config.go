package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	Order     OrderConfig     `yaml:"order"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// StoreConfig.SeedPath names a YAML product list loaded into the memory
// catalog at startup. Other drivers ignore it.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	SeedPath string `yaml:"seedPath"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig with an empty URL keeps idempotency keys and reconciliation
// tasks in process memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type OrderConfig struct {
	DeliveryCharge   decimal.Decimal `yaml:"deliveryCharge"`
	MaxRetryAttempts int             `yaml:"maxRetryAttempts"`
	PaymentDelay     time.Duration   `yaml:"paymentDelay"`
	RequestTimeout   time.Duration   `yaml:"requestTimeout"`
	IdempotencyTTL   time.Duration   `yaml:"idempotencyTTL"`
}

type ReconcileConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: StoreMySQL},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            3306,
			User:            "bazaar",
			Password:        "secret",
			Name:            "bazaar",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "bazaar",
		},
		Kafka: KafkaConfig{Topic: "bazaar.orders"},
		Auth:  AuthConfig{JWTSecret: "change-me"},
		Order: OrderConfig{
			DeliveryCharge:   decimal.NewFromInt(100),
			MaxRetryAttempts: 3,
			PaymentDelay:     3 * time.Second,
			RequestTimeout:   15 * time.Second,
			IdempotencyTTL:   24 * time.Hour,
		},
		Reconcile: ReconcileConfig{
			Interval:    30 * time.Second,
			MaxAttempts: 5,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads environment variables on top of base. A nil base means the
// built-in defaults.
func Load(base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", base.Server.Port)
	v.SetDefault("STORE_DRIVER", base.Store.Driver)
	v.SetDefault("STORE_SEED_PATH", base.Store.SeedPath)
	v.SetDefault("DB_HOST", base.Database.Host)
	v.SetDefault("DB_PORT", base.Database.Port)
	v.SetDefault("DB_USER", base.Database.User)
	v.SetDefault("DB_PASSWORD", base.Database.Password)
	v.SetDefault("DB_NAME", base.Database.Name)
	v.SetDefault("DB_MAX_OPEN_CONNS", base.Database.MaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", base.Database.MaxIdleConns)
	v.SetDefault("DB_CONN_MAX_LIFETIME", base.Database.ConnMaxLifetime.String())
	v.SetDefault("MONGO_URI", base.Mongo.URI)
	v.SetDefault("MONGO_DATABASE", base.Mongo.Database)
	v.SetDefault("REDIS_URL", base.Redis.URL)
	v.SetDefault("KAFKA_BROKERS", base.Kafka.Brokers)
	v.SetDefault("KAFKA_TOPIC", base.Kafka.Topic)
	v.SetDefault("AUTH_JWT_SECRET", base.Auth.JWTSecret)
	v.SetDefault("ORDER_DELIVERY_CHARGE", base.Order.DeliveryCharge.String())
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", base.Order.MaxRetryAttempts)
	v.SetDefault("ORDER_PAYMENT_DELAY", base.Order.PaymentDelay.String())
	v.SetDefault("ORDER_REQUEST_TIMEOUT", base.Order.RequestTimeout.String())
	v.SetDefault("IDEMPOTENCY_TTL", base.Order.IdempotencyTTL.String())
	v.SetDefault("RECONCILE_INTERVAL", base.Reconcile.Interval.String())
	v.SetDefault("RECONCILE_MAX_ATTEMPTS", base.Reconcile.MaxAttempts)
	v.SetDefault("LOG_LEVEL", base.Log.Level)

	durations := map[string]*time.Duration{}
	keys := []string{
		"DB_CONN_MAX_LIFETIME", "ORDER_PAYMENT_DELAY", "ORDER_REQUEST_TIMEOUT",
		"IDEMPOTENCY_TTL", "RECONCILE_INTERVAL",
	}
	for _, key := range keys {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", key, err)
		}
		durations[key] = &d
	}

	deliveryCharge, err := decimal.NewFromString(v.GetString("ORDER_DELIVERY_CHARGE"))
	if err != nil {
		return nil, fmt.Errorf("parsing ORDER_DELIVERY_CHARGE: %w", err)
	}
	if deliveryCharge.IsNegative() {
		return nil, fmt.Errorf("ORDER_DELIVERY_CHARGE must not be negative")
	}

	driver := strings.ToLower(v.GetString("STORE_DRIVER"))
	switch driver {
	case StoreMySQL, StoreMongo, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Store: StoreConfig{
			Driver:   driver,
			SeedPath: v.GetString("STORE_SEED_PATH"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: *durations["DB_CONN_MAX_LIFETIME"],
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("KAFKA_BROKERS"),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("AUTH_JWT_SECRET"),
		},
		Order: OrderConfig{
			DeliveryCharge:   deliveryCharge,
			MaxRetryAttempts: v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
			PaymentDelay:     *durations["ORDER_PAYMENT_DELAY"],
			RequestTimeout:   *durations["ORDER_REQUEST_TIMEOUT"],
			IdempotencyTTL:   *durations["IDEMPOTENCY_TTL"],
		},
		Reconcile: ReconcileConfig{
			Interval:    *durations["RECONCILE_INTERVAL"],
			MaxAttempts: v.GetInt("RECONCILE_MAX_ATTEMPTS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
