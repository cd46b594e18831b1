package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600))

	got, err := FindConfig(path)
	require.NoError(t, err)
	require.Equal(t, path, got)
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600))

	orig, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(orig)

	got, err := FindConfig("")
	require.NoError(t, err)
	require.Equal(t, "config.yaml", got)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mqtt:\n  broker_url: ${SIGNALDOCK_TEST_BROKER}\n"), 0600))
	os.Setenv("SIGNALDOCK_TEST_BROKER", "tcp://broker.local:1883")
	defer os.Unsetenv("SIGNALDOCK_TEST_BROKER")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tcp://broker.local:1883", cfg.MQTT.BrokerURL)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8787, cfg.Listen.Port)
	require.Equal(t, 5, cfg.Sources.CPU.PollIntervalSec)
	require.Equal(t, float64(85), cfg.Sources.CPU.CPUHighPercent)
	require.Equal(t, "signaldock", cfg.MQTT.ClientID)
}

func TestValidate_ListenPortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestValidate_UnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidate_CPUThresholdsInverted(t *testing.T) {
	cfg := Default()
	cfg.Sources.CPU.CPULowPercent = 90
	cfg.Sources.CPU.CPUHighPercent = 50
	require.Error(t, cfg.Validate())
}

func TestValidate_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}
