package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marsprotocol/vault-engine/pkg/config"
)

func TestConfigFromEnvironment(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"
	t.Setenv(env, " 250ms ")

	v, err := NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("250ms"), v)
	assert.Nil(t, err)

	assert.Equal(t, 250*time.Millisecond, NewDurationConfig(env, time.Second).Get(context.Background()))
}

func TestConfigDoesntExist(t *testing.T) {
	const env = "ENV_CONFIG_TEST_MISSING_VAR"

	v, err := NewConfig(env).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)

	assert.EqualValues(t, 7, NewUint64Config(env, 7).Get(context.Background()))
	assert.Equal(t, "fallback", NewStringConfig(env, "fallback").Get(context.Background()))
	assert.True(t, NewBoolConfig(env, true).Get(context.Background()))
}
