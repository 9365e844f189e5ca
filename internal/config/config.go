package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Session     SessionConfig     `mapstructure:"session"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Mode             string        `mapstructure:"mode"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	MaxContentLength int64         `mapstructure:"max_content_length"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// ObjectStoreConfig S3兼容对象存储配置
type ObjectStoreConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Secret     string `mapstructure:"secret"`
	MaxAge     int    `mapstructure:"max_age"`
}

// IdentityConfig 上游OAuth网关签发的身份断言
type IdentityConfig struct {
	Secret    string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
	RevokeURL string `mapstructure:"revoke_url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  Topics   `mapstructure:"topics"`
}

type Topics struct {
	UserEvents  string `mapstructure:"user_events"`
	TweetEvents string `mapstructure:"tweet_events"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	return LoadConfigFile(configPath)
}

func LoadConfigFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 TWITTER_REDIS_HOST
	v.SetEnvPrefix("twitter")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.ObjectStore.Bucket == "" {
		return nil, fmt.Errorf("object_store.bucket must be set")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_content_length", 5*1024*1024)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 10)

	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.presign_expiry", time.Hour)

	v.SetDefault("session.cookie_name", "twitter")
	v.SetDefault("session.max_age", 86400*7)

	v.SetDefault("identity.revoke_url", "https://oauth2.googleapis.com/revoke")

	v.SetDefault("kafka.topics.user_events", "user-events")
	v.SetDefault("kafka.topics.tweet_events", "tweet-events")

	v.SetDefault("log.level", "info")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
