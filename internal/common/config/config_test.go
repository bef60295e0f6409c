package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "space", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=space sslmode=disable", c.GetDSN())

	c.URL = "postgres://u:p@db/space"
	assert.Equal(t, "postgres://u:p@db/space", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "pg.local")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_NAME", "space")
	t.Setenv("TEST_DB_MAX_CONNS", "12")

	var c DatabaseConfig
	c.LoadFromEnv("TEST_DB")

	assert.Equal(t, "pg.local", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "space", c.Database)
	assert.Equal(t, 12, c.MaxConns)
	assert.True(t, c.Configured())
}

func TestRedisAndMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TR_ADDR", "localhost:6380")
	t.Setenv("TR_DB", "3")
	t.Setenv("TM_BROKER", "tcp://broker:1883")
	t.Setenv("TM_QOS", "1")

	var r RedisConfig
	r.LoadFromEnv("TR")
	assert.Equal(t, "localhost:6380", r.Addr)
	assert.Equal(t, 3, r.DB)

	var m MQTTConfig
	m.LoadFromEnv("TM")
	assert.Equal(t, "tcp://broker:1883", m.Broker)
	assert.Equal(t, byte(1), m.QoS)
}

func TestLoadFromEnv_KeepsDefaultsOnBadValues(t *testing.T) {
	t.Setenv("BAD_DB_PORT", "not-a-port")
	t.Setenv("BAD_DB_CONN_MAX_LIFETIME", "30m")
	t.Setenv("BAD_MQ_QOS", "7")

	c := DatabaseConfig{Port: 5432}
	c.LoadFromEnv("BAD_DB")
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, 30*time.Minute, c.ConnMaxLifetime)
	assert.False(t, c.Configured())

	m := MQTTConfig{QoS: 1}
	m.LoadFromEnv("BAD_MQ")
	assert.Equal(t, byte(1), m.QoS)
}
