package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"snowmon/internal/domain"
)

// ConnectionConfig is the merged Snowflake credential and session record.
// Constructed once at startup and passed into components; never a global.
type ConnectionConfig struct {
	Account   string
	User      string
	Password  string
	Warehouse string
	Role      string
	Database  string
	Schema    string
}

// connectionFields are the resolvable field names, in the order they appear
// in error messages.
var connectionFields = []string{
	"account", "user", "password", "warehouse", "role", "database", "schema",
}

// requiredFields must be non-empty after the merge.
var requiredFields = map[string]bool{
	"account":   true,
	"user":      true,
	"password":  true,
	"warehouse": true,
}

// Provider is one named configuration source. Lookup returns the value for
// a connection field and whether the source defines it.
type Provider interface {
	Name() string
	Lookup(field string) (string, bool)
}

// ResolveConnection merges the providers field by field, earlier providers
// taking precedence. It fails with a ConfigurationError naming every
// required field that remains unset.
func ResolveConnection(providers ...Provider) (*ConnectionConfig, error) {
	values := map[string]string{}
	for _, field := range connectionFields {
		for _, p := range providers {
			if v, ok := p.Lookup(field); ok && v != "" {
				values[field] = v
				break
			}
		}
	}

	var missing []string
	for _, field := range connectionFields {
		if requiredFields[field] && values[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, domain.ErrConfiguration(
			"missing Snowflake credentials: %s (set SNOWFLAKE_* env vars, a secrets file, or config.json)",
			strings.Join(missing, ", "))
	}

	return &ConnectionConfig{
		Account:   values["account"],
		User:      values["user"],
		Password:  values["password"],
		Warehouse: values["warehouse"],
		Role:      values["role"],
		Database:  values["database"],
		Schema:    values["schema"],
	}, nil
}

// DefaultProviders returns the standard source chain: environment variables,
// then the secrets file, then the config file. Missing files contribute an
// empty provider rather than an error.
func DefaultProviders(secretsPath, configPath string) []Provider {
	return []Provider{
		EnvProvider{},
		NewSecretsFileProvider(secretsPath),
		NewJSONFileProvider(configPath),
	}
}

// EnvProvider resolves fields from SNOWFLAKE_* environment variables.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Lookup(field string) (string, bool) {
	v := os.Getenv("SNOWFLAKE_" + strings.ToUpper(field))
	return v, v != ""
}

// mapProvider serves lookups from an in-memory map. Both file-backed
// providers reduce to this after parsing.
type mapProvider struct {
	name   string
	values map[string]string
}

func (p mapProvider) Name() string { return p.name }

func (p mapProvider) Lookup(field string) (string, bool) {
	v, ok := p.values[field]
	return v, ok && v != ""
}

// NewSecretsFileProvider reads a YAML secrets file and serves the fields
// under its top-level "snowflake" key. An absent or unreadable file yields
// an empty provider; the resolver treats that as "source has no entries".
func NewSecretsFileProvider(path string) Provider {
	p := mapProvider{name: "secrets", values: map[string]string{}}
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return p
	}
	var doc struct {
		Snowflake map[string]string `yaml:"snowflake"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return p
	}
	for k, v := range doc.Snowflake {
		p.values[strings.ToLower(k)] = v
	}
	return p
}

// NewJSONFileProvider reads a flat JSON config file with lower-case field
// names matching the env variable suffixes.
func NewJSONFileProvider(path string) Provider {
	p := mapProvider{name: "file", values: map[string]string{}}
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return p
	}
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return p
	}
	for k, v := range doc {
		p.values[strings.ToLower(k)] = v
	}
	return p
}

// Redacted returns a loggable summary of the connection config with the
// password masked.
func (c *ConnectionConfig) Redacted() string {
	return fmt.Sprintf("account=%s user=%s warehouse=%s role=%s database=%s schema=%s",
		c.Account, c.User, c.Warehouse, orDash(c.Role), orDash(c.Database), orDash(c.Schema))
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
