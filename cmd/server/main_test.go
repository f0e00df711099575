package main

import (
	"strings"
	"testing"

	"warungpos/backend/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	longSecret := strings.Repeat("s", 32)

	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"production with long secret", config.Config{AuthSecret: longSecret}, false},
		{"production with short secret", config.Config{AuthSecret: "short"}, true},
		{"production with empty secret", config.Config{}, true},
		{"dev mode allows short secret", config.Config{AuthSecret: "dev", DevMode: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSecurityConfig(tc.cfg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
