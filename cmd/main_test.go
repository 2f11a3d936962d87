package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTestConfig(t *testing.T, settings map[string]interface{}) string {
	t.Helper()
	raw, err := yaml.Marshal(settings)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigPrintMasksSecrets(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"auth":   map[string]interface{}{"jwt_secret": "a-very-long-signing-secret"},
		"server": map[string]interface{}{"addr": ":9090"},
	})

	out, err := execute(t, "config", "print", "--config", path)
	require.NoError(t, err)

	var printed map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &printed))
	auth := printed["auth"].(map[string]interface{})
	assert.Equal(t, "********", auth["jwt_secret"])
	server := printed["server"].(map[string]interface{})
	assert.Equal(t, ":9090", server["addr"])
	assert.NotContains(t, out, "a-very-long-signing-secret")
}

func TestConfigValidate(t *testing.T) {
	ok := writeTestConfig(t, map[string]interface{}{
		"auth": map[string]interface{}{"jwt_secret": "a-very-long-signing-secret"},
	})
	out, err := execute(t, "config", "validate", "--config", ok)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration OK")

	bad := writeTestConfig(t, map[string]interface{}{
		"auth":   map[string]interface{}{"jwt_secret": "a-very-long-signing-secret"},
		"review": map[string]interface{}{"max_items": 0},
	})
	_, err = execute(t, "config", "validate", "--config", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_items")
}

func TestMigrateSQLite(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"auth":     map[string]interface{}{"jwt_secret": "a-very-long-signing-secret"},
		"log":      map[string]interface{}{"mode": "test"},
		"database": map[string]interface{}{"driver": "sqlite", "sqlite_path": filepath.Join(t.TempDir(), "rg.db")},
	})
	_, err := execute(t, "migrate", "--config", path)
	require.NoError(t, err)
}
