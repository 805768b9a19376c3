package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aramcrm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Store, cfg.Store)
	assert.Equal(t, def.Postgres, cfg.Postgres)
	assert.Equal(t, def.Log, cfg.Log)
	assert.Equal(t, def.Chain, cfg.Chain)
	assert.Equal(t, def.MCP, cfg.MCP)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Empty(t, cfg.Redact.Patterns)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
store:
  driver: file
  format: yaml
chain:
  strict: false
redact:
  enabled: true
  patterns: ["(?i)ssn"]
`)
	t.Setenv("ARAMCRM_SERVER_PORT", "7070")
	t.Setenv("ARAMCRM_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("ARAMCRM_LOG_LEVEL", "debug")
	t.Setenv("ARAMCRM_REDIS_LOCK_TTL", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "yaml", cfg.Store.Format)
	assert.Equal(t, ".aramcrm/workflows", cfg.Store.Path)
	assert.False(t, cfg.Chain.Strict)
	assert.Equal(t, 256, cfg.Chain.MaxLabelSize)
	assert.True(t, cfg.Redact.Enabled)
	assert.Equal(t, []string{"(?i)ssn"}, cfg.Redact.Patterns)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 45*time.Second, cfg.Redis.LockTTL)
}

func TestLoad_EnvList(t *testing.T) {
	t.Setenv("ARAMCRM_REDACT_PATTERNS", "password,token")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"password", "token"}, cfg.Redact.Patterns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "Unknown Driver", env: map[string]string{"ARAMCRM_STORE_DRIVER": "mongo"}, want: "Driver"},
		{name: "Bad Port", env: map[string]string{"ARAMCRM_SERVER_PORT": "70000"}, want: "Port"},
		{name: "Postgres Without DSN", env: map[string]string{"ARAMCRM_STORE_DRIVER": "postgres"}, want: "postgres.dsn"},
		{name: "Short Key", env: map[string]string{"ARAMCRM_ENCRYPTION_KEY": base64.StdEncoding.EncodeToString([]byte("short"))}, want: "32 bytes"},
		{name: "Bad Transport", file: "mcp:\n  transport: grpc\n", want: "Transport"},
		{name: "Broken YAML", file: "server: [", want: "parse config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestEncryption_Keys(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	old := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("o", 32)))

	active, fallback, err := Encryption{Key: key, FallbackKeys: []string{old}}.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	require.Len(t, fallback, 1)
	assert.Equal(t, byte('o'), fallback[0][0])

	active, fallback, err = Encryption{}.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)
}

func TestTransformEnvKey(t *testing.T) {
	k, v := transformEnvKey("ARAMCRM_POSTGRES_MAX_CONNS", "4")
	assert.Equal(t, "postgres.max_conns", k)
	assert.Equal(t, "4", v)

	k, _ = transformEnvKey("ARAMCRM_", "x")
	assert.Empty(t, k)
}
