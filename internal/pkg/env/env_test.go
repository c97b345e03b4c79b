package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersProcessEnvironment(t *testing.T) {
	t.Setenv("MAVUNO_TEST_KEY", "from-process")
	Env = map[string]string{"MAVUNO_TEST_KEY": "from-file", "MAVUNO_TEST_FILE_ONLY": "file"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-process", GetEnv("MAVUNO_TEST_KEY", "def"))
	assert.Equal(t, "file", GetEnv("MAVUNO_TEST_FILE_ONLY", "def"))
}

func TestGetEnvFallbacks(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })

	t.Setenv("MAVUNO_TEST_PROCESS", "x")
	assert.Equal(t, "x", GetEnv("MAVUNO_TEST_PROCESS", "def"))
	assert.Equal(t, "def", GetEnv("MAVUNO_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"B_OK":  "true",
		"B_BAD": "maybe",
		"I_OK":  "42",
		"I_BAD": "x",
		"D_GO":  "15s",
		"D_SEC": "300",
		"D_BAD": "soon",
	}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetBool("B_OK", false))
	assert.False(t, GetBool("B_BAD", false))
	assert.Equal(t, 42, GetInt("I_OK", 1))
	assert.Equal(t, 1, GetInt("I_BAD", 1))
	assert.Equal(t, 15*time.Second, GetDuration("D_GO", time.Second))
	assert.Equal(t, 300*time.Second, GetDuration("D_SEC", time.Second))
	assert.Equal(t, time.Second, GetDuration("D_BAD", time.Second))
}
