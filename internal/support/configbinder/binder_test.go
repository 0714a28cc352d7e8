package configbinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
}

type connConfig struct {
	Type string     `yaml:"type"`
	Port int        `yaml:"port"`
	Pool poolConfig `yaml:"pool"`
}

func TestBindProperties_WeaklyTyped(t *testing.T) {
	var cfg connConfig
	err := BindProperties(map[string]interface{}{
		"type": "postgres",
		"port": "5432",
		"pool": map[string]interface{}{"max_open_conns": "4"},
	}, &cfg)

	require.NoError(t, err)
	assert.Equal(t, connConfig{Type: "postgres", Port: 5432, Pool: poolConfig{MaxOpenConns: 4}}, cfg)
}

func TestBindProperties_ReportsTarget(t *testing.T) {
	var cfg connConfig
	err := BindProperties(map[string]interface{}{"port": "not-a-number"}, &cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connConfig")
}

func TestBindProperties_Nil(t *testing.T) {
	var cfg connConfig
	assert.NoError(t, BindProperties(nil, &cfg))
}
