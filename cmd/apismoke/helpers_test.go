package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loykin/apismoke/cmd/apismoke/config"
	"github.com/spf13/viper"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// useConfig points the global viper at cfgPath and targets baseURL.
func useConfig(t *testing.T, cfgPath, baseURL string) *viper.Viper {
	t.Helper()
	v := viper.GetViper()
	v.Set(config.KeyConfig, cfgPath)
	v.Set(config.KeyBaseURL, baseURL)
	return v
}
