package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Upstream is a third-party REST API the proxy is allowed to forward to
type Upstream struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	// AuthStyle is "bearer" (Authorization header) or "query" (token query parameter)
	AuthStyle string `yaml:"auth_style"`
	// TokenParam names the query parameter when AuthStyle is "query"
	TokenParam string `yaml:"token_param"`
}

// UpstreamsConfig holds the proxy allowlist
type UpstreamsConfig struct {
	Upstreams []Upstream `yaml:"upstreams"`

	byName map[string]*Upstream
}

// LoadUpstreamsConfig loads the proxy allowlist from a YAML file
func LoadUpstreamsConfig(path string) (*UpstreamsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstreams config file: %w", err)
	}
	return ParseUpstreamsConfig(data)
}

// ParseUpstreamsConfig parses and validates YAML allowlist content
func ParseUpstreamsConfig(data []byte) (*UpstreamsConfig, error) {
	var config UpstreamsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse upstreams config: %w", err)
	}

	config.byName = make(map[string]*Upstream, len(config.Upstreams))
	for i := range config.Upstreams {
		up := &config.Upstreams[i]
		if up.AuthStyle == "" {
			up.AuthStyle = "bearer"
		}
		if up.AuthStyle == "query" && up.TokenParam == "" {
			up.TokenParam = "token"
		}
		config.byName[up.Name] = up
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the upstream allowlist
func (c *UpstreamsConfig) Validate() error {
	if len(c.Upstreams) == 0 {
		return fmt.Errorf("at least one upstream must be configured")
	}

	seen := make(map[string]bool)
	for _, up := range c.Upstreams {
		if up.Name == "" {
			return fmt.Errorf("upstream name is required")
		}
		if seen[up.Name] {
			return fmt.Errorf("duplicate upstream %q", up.Name)
		}
		seen[up.Name] = true

		u, err := url.Parse(up.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base_url for upstream %s", up.Name)
		}
		if up.AuthStyle != "bearer" && up.AuthStyle != "query" {
			return fmt.Errorf("unsupported auth_style %q for upstream %s", up.AuthStyle, up.Name)
		}
	}

	return nil
}

// Get returns the upstream with the given name
func (c *UpstreamsConfig) Get(name string) (*Upstream, bool) {
	up, ok := c.byName[name]
	return up, ok
}

// Names returns all configured upstream names in file order
func (c *UpstreamsConfig) Names() []string {
	names := make([]string, 0, len(c.Upstreams))
	for _, up := range c.Upstreams {
		names = append(names, up.Name)
	}
	return names
}
