package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TenantConfig is one school's data store.
type TenantConfig struct {
	Name        string `yaml:"name"`
	DatabaseURL string `yaml:"database_url"`
}

type tenantsFile struct {
	Tenants []TenantConfig `yaml:"tenants"`
}

// LoadTenants reads the tenants YAML file. Database URLs may reference environment
// variables (${SCHOOL_A_DSN}) so credentials stay out of the file.
func LoadTenants(path string) ([]TenantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}
	return ParseTenants(data)
}

// ParseTenants validates and returns the tenants in data.
func ParseTenants(data []byte) ([]TenantConfig, error) {
	f := tenantsFile{}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tenants file: %w", err)
	}
	if len(f.Tenants) == 0 {
		return nil, fmt.Errorf("no tenants configured")
	}

	seen := make(map[string]bool, len(f.Tenants))
	for i := range f.Tenants {
		t := &f.Tenants[i]
		t.Name = strings.TrimSpace(t.Name)
		t.DatabaseURL = strings.TrimSpace(os.ExpandEnv(t.DatabaseURL))
		if t.Name == "" {
			return nil, fmt.Errorf("tenant #%d has no name", i+1)
		}
		if t.DatabaseURL == "" {
			return nil, fmt.Errorf("tenant %s has no database_url", t.Name)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate tenant name %s", t.Name)
		}
		seen[t.Name] = true
	}
	return f.Tenants, nil
}
