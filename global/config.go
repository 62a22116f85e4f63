package global

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ChatCore/tools/ids"
)

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	NodeID   int64  `yaml:"node_id"`
	PageSize int    `yaml:"page_size"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type NatsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Servers []string `yaml:"servers"`
}

type AuthConfig struct {
	Secret     string `yaml:"secret"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

func (a AuthConfig) TTL() time.Duration {
	if a.TTLMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(a.TTLMinutes) * time.Minute
}

type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Nats   NatsConfig   `yaml:"nats"`
	Auth   AuthConfig   `yaml:"auth"`
}

var Conf = defaults()

func defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{Addr: ":8080", NodeID: 1, PageSize: 20},
		Redis:  RedisConfig{Addr: "127.0.0.1:6379"},
		Mongo:  MongoConfig{URI: "mongodb://127.0.0.1:27017", Database: "chatcore"},
		Nats:   NatsConfig{Servers: []string{"nats://127.0.0.1:4222"}},
		Auth:   AuthConfig{Secret: "dev-only-secret-change-me", TTLMinutes: 120},
	}
}

// Load reads the config file when path is non-empty, then applies env
// overrides. Missing file with empty path is not an error: defaults apply.
func Load(path string) error {
	Conf = defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, &Conf); err != nil {
			return err
		}
	}
	applyEnv()
	return nil
}

func applyEnv() {
	if v := os.Getenv("CHATCORE_ADDR"); v != "" {
		Conf.Server.Addr = v
	}
	if v := os.Getenv("CHATCORE_REDIS_ADDR"); v != "" {
		Conf.Redis.Addr = v
		Conf.Redis.Enabled = true
	}
	if v := os.Getenv("CHATCORE_MONGO_URI"); v != "" {
		Conf.Mongo.URI = v
		Conf.Mongo.Enabled = true
	}
	if v := os.Getenv("CHATCORE_JWT_SECRET"); v != "" {
		Conf.Auth.Secret = v
	}
}

func GetJwtSecret() []byte {
	return []byte(Conf.Auth.Secret)
}

func PageSize() int {
	if Conf.Server.PageSize <= 0 {
		return 20
	}
	return Conf.Server.PageSize
}

func ConfigIds() {
	ids.SetNodeID(Conf.Server.NodeID)
}
