package internal

import (
	"consult-chat/errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	for _, key := range []string{"CONSULT_WS_URL", "CONSULT_REGISTRY_URL", "CONSULT_STAFF_ROLES", "RECONNECT_INTERVAL", "MAX_RECONNECT_INTERVAL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("ws://localhost:8080/ws", config.WebSocketURL)
	req.Equal(5*time.Second, config.ReconnectInterval)
	req.Equal(60*time.Second, config.MaxReconnectInterval)
	req.Equal(10*time.Second, config.ConnectTimeout)
	req.Equal([]string{"STAFF", "PHARMACIST", "ADMIN"}, config.StaffRoleList())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONSULT_WS_URL", "wss://pharmacy.example/ws")
	t.Setenv("CONSULT_STAFF_ROLES", "clerk| pharmacist |")
	t.Setenv("RECONNECT_INTERVAL", "2s")
	t.Setenv("MAX_RECONNECT_INTERVAL", "2s")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("wss://pharmacy.example/ws", config.WebSocketURL)
	req.Equal(2*time.Second, config.MaxReconnectInterval)
	req.Equal([]string{"CLERK", "PHARMACIST"}, config.StaffRoleList())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		WebSocketURL:         "ws://localhost:8080/ws",
		RegistryURL:          "http://localhost:8080",
		ReconnectInterval:    5 * time.Second,
		MaxReconnectInterval: 60 * time.Second,
		ConnectTimeout:       10 * time.Second,
		RoomTimeout:          15 * time.Second,
		SendBufferSize:       64,
		LargeAttachmentBytes: 1024,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.WebSocketURL = "not a url" }},
		{"cap below interval", func(c *Config) { c.MaxReconnectInterval = time.Second }},
		{"tiny send buffer", func(c *Config) { c.SendBufferSize = 1 }},
		{"no connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			require.ErrorIs(t, config.Validate(), errors.ErrInvalidConfig)
		})
	}
}
