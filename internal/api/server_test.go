package api

import (
	"testing"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name     string
		acc      *config.AccountConfig
		expected string
	}{
		{"NoGlobalConfig", nil, "127.0.0.1:6010"},
		{"NoCredentials", &config.AccountConfig{}, "127.0.0.1:6010"},
		{"UsernameWithoutHash", &config.AccountConfig{Username: "admin"}, "127.0.0.1:6010"},
		{"BasicAuth", &config.AccountConfig{Username: "admin", PasswordHash: "$2a$10$x"}, ":6010"},
		{"Token", &config.AccountConfig{APIToken: "secret"}, ":6010"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ListenAddr(tt.acc, 6010); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
