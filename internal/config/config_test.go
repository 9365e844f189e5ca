package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitterlite/twitterlite/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `server:
  port: ":9090"
redis:
  host: "redis"
  port: 6380
object_store:
  endpoint: "minio:9000"
  bucket: "tweets"
kafka:
  brokers:
    - "kafka:9092"
`)

	conf, err := config.LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", conf.Server.Port)
	assert.Equal(t, "redis:6380", conf.Redis.Addr())
	assert.Equal(t, "tweets", conf.ObjectStore.Bucket)
	assert.Equal(t, []string{"kafka:9092"}, conf.Kafka.Brokers)

	// 默认值
	assert.Equal(t, time.Hour, conf.ObjectStore.PresignExpiry)
	assert.Equal(t, int64(5*1024*1024), conf.Server.MaxContentLength)
	assert.Equal(t, "tweet-events", conf.Kafka.Topics.TweetEvents)
	assert.Equal(t, "info", conf.Log.Level)
}

func TestLoadConfigFileEnvOverride(t *testing.T) {
	path := writeConfig(t, `object_store:
  bucket: "tweets"
`)
	t.Setenv("TWITTER_REDIS_HOST", "redis.internal")

	conf, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal", conf.Redis.Host)
}

func TestLoadConfigFileRequiresBucket(t *testing.T) {
	path := writeConfig(t, `server:
  port: ":8080"
`)

	conf, err := config.LoadConfigFile(path)
	assert.Nil(t, conf)
	assert.Error(t, err)

	conf, err = config.LoadConfigFile("path/nothing.yaml")
	assert.Nil(t, conf)
	assert.Error(t, err)
}
