// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds everything a service binary needs to wire itself up.
// Values come from an optional YAML file and can be overridden by
// environment variables, which is what the deploy manifests use.
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	Infra struct {
		MysqlDSN     string   `yaml:"mysql_dsn"`
		RedisAddr    string   `yaml:"redis_addr"`
		RedisDB      int      `yaml:"redis_db"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		Jaeger       struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
	} `yaml:"infra"`

	Saga struct {
		LockTTL        time.Duration `yaml:"lock_ttl"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
		MaxAttempts    int           `yaml:"max_attempts"`
		BaseBackoff    time.Duration `yaml:"base_backoff"`
		MaxBackoff     time.Duration `yaml:"max_backoff"`
		MaxInFlight    int64         `yaml:"max_in_flight"`
	} `yaml:"saga"`
}

// Load reads the YAML file at path (skipped when empty or missing) and
// then applies environment overrides and defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return cfg, errors.Wrapf(err, "read config file %s", path)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Service.Port = port
		}
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		c.Infra.MysqlDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Infra.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers := []string{}
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Infra.KafkaBrokers = brokers
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		c.Infra.Jaeger.Endpoint = v
	}
}

func (c *Config) applyDefaults() {
	if c.Service.Port == 0 {
		c.Service.Port = 8080
	}
	if c.Infra.RedisAddr == "" {
		c.Infra.RedisAddr = "localhost:6379"
	}
	if len(c.Infra.KafkaBrokers) == 0 {
		c.Infra.KafkaBrokers = []string{"localhost:9092"}
	}
	if c.Infra.Jaeger.Endpoint == "" {
		c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}
	if c.Saga.LockTTL == 0 {
		c.Saga.LockTTL = 10 * time.Second
	}
	if c.Saga.IdempotencyTTL == 0 {
		c.Saga.IdempotencyTTL = 6 * time.Hour
	}
	if c.Saga.MaxAttempts == 0 {
		c.Saga.MaxAttempts = 5
	}
	if c.Saga.BaseBackoff == 0 {
		c.Saga.BaseBackoff = 100 * time.Millisecond
	}
	if c.Saga.MaxBackoff == 0 {
		c.Saga.MaxBackoff = 5 * time.Second
	}
	if c.Saga.MaxInFlight == 0 {
		c.Saga.MaxInFlight = 10
	}
}
