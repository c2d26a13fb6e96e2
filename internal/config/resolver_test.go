package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowmon/internal/domain"
)

type staticProvider struct {
	name   string
	values map[string]string
}

func (p staticProvider) Name() string { return p.name }

func (p staticProvider) Lookup(field string) (string, bool) {
	v, ok := p.values[field]
	return v, ok && v != ""
}

func fullProvider(name, suffix string) staticProvider {
	return staticProvider{name: name, values: map[string]string{
		"account":   "acct-" + suffix,
		"user":      "user-" + suffix,
		"password":  "pw-" + suffix,
		"warehouse": "wh-" + suffix,
	}}
}

func TestResolveConnectionPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
		want      ConnectionConfig
	}{
		{
			name:      "first_provider_wins",
			providers: []Provider{fullProvider("env", "env"), fullProvider("secrets", "sec"), fullProvider("file", "file")},
			want:      ConnectionConfig{Account: "acct-env", User: "user-env", Password: "pw-env", Warehouse: "wh-env"},
		},
		{
			name: "merge_is_per_field",
			providers: []Provider{
				staticProvider{name: "env", values: map[string]string{"account": "acct-env"}},
				staticProvider{name: "secrets", values: map[string]string{"user": "user-sec", "password": "pw-sec"}},
				staticProvider{name: "file", values: map[string]string{"account": "acct-file", "warehouse": "wh-file", "role": "analyst"}},
			},
			want: ConnectionConfig{Account: "acct-env", User: "user-sec", Password: "pw-sec", Warehouse: "wh-file", Role: "analyst"},
		},
		{
			name: "empty_value_falls_through",
			providers: []Provider{
				staticProvider{name: "env", values: map[string]string{"account": ""}},
				fullProvider("file", "file"),
			},
			want: ConnectionConfig{Account: "acct-file", User: "user-file", Password: "pw-file", Warehouse: "wh-file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveConnection(tt.providers...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestResolveConnectionMissingRequired(t *testing.T) {
	_, err := ResolveConnection(staticProvider{name: "env", values: map[string]string{
		"account": "acct", "role": "analyst",
	}})
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "user")
	assert.Contains(t, err.Error(), "password")
	assert.Contains(t, err.Error(), "warehouse")
	assert.NotContains(t, err.Error(), "account,")
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("SNOWFLAKE_ACCOUNT", "env-acct")
	t.Setenv("SNOWFLAKE_ROLE", "")

	v, ok := EnvProvider{}.Lookup("account")
	assert.True(t, ok)
	assert.Equal(t, "env-acct", v)

	_, ok = EnvProvider{}.Lookup("role")
	assert.False(t, ok)
}

func TestSecretsFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
snowflake:
  account: sec-acct
  user: sec-user
  password: sec-pw
  warehouse: SEC_WH
`), 0o600))

	p := NewSecretsFileProvider(path)
	v, ok := p.Lookup("warehouse")
	assert.True(t, ok)
	assert.Equal(t, "SEC_WH", v)

	_, ok = p.Lookup("role")
	assert.False(t, ok)

	// Missing file is an empty source, not an error.
	empty := NewSecretsFileProvider(filepath.Join(dir, "missing.yaml"))
	_, ok = empty.Lookup("account")
	assert.False(t, ok)
}

func TestJSONFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"account":"file-acct","user":"file-user","password":"file-pw","warehouse":"FILE_WH","database":"ANALYTICS"}`), 0o600))

	p := NewJSONFileProvider(path)
	v, ok := p.Lookup("database")
	assert.True(t, ok)
	assert.Equal(t, "ANALYTICS", v)

	// Corrupt file degrades to an empty source.
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, ok = NewJSONFileProvider(bad).Lookup("account")
	assert.False(t, ok)
}

func TestDefaultProvidersFullChain(t *testing.T) {
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "secrets.yaml")
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(secretsPath, []byte("snowflake:\n  password: sec-pw\n  warehouse: SEC_WH\n"), 0o600))
	require.NoError(t, os.WriteFile(configPath, []byte(`{"user":"file-user","warehouse":"FILE_WH","schema":"PUBLIC"}`), 0o600))
	t.Setenv("SNOWFLAKE_ACCOUNT", "env-acct")
	t.Setenv("SNOWFLAKE_USER", "")
	t.Setenv("SNOWFLAKE_PASSWORD", "")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "")

	got, err := ResolveConnection(DefaultProviders(secretsPath, configPath)...)
	require.NoError(t, err)

	// env > secrets > file, per field.
	assert.Equal(t, "env-acct", got.Account)
	assert.Equal(t, "file-user", got.User)
	assert.Equal(t, "sec-pw", got.Password)
	assert.Equal(t, "SEC_WH", got.Warehouse)
	assert.Equal(t, "PUBLIC", got.Schema)
}

func TestRedactedOmitsPassword(t *testing.T) {
	cfg := ConnectionConfig{Account: "a", User: "u", Password: "hunter2", Warehouse: "wh"}
	assert.NotContains(t, cfg.Redacted(), "hunter2")
}
