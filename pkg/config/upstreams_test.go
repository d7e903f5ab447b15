package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpstreamsConfig(t *testing.T) {
	data := []byte(`
upstreams:
  - name: accounting
    base_url: https://accounting.example.com/api
  - name: users
    base_url: https://users.example.com
    auth_style: query
`)

	cfg, err := ParseUpstreamsConfig(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounting", "users"}, cfg.Names())

	acc, ok := cfg.Get("accounting")
	require.True(t, ok)
	assert.Equal(t, "bearer", acc.AuthStyle)

	users, ok := cfg.Get("users")
	require.True(t, ok)
	assert.Equal(t, "token", users.TokenParam)

	_, ok = cfg.Get("missing")
	assert.False(t, ok)
}

func TestParseUpstreamsConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "upstreams: []"},
		{"missing name", "upstreams:\n  - base_url: https://a.example.com"},
		{"bad url", "upstreams:\n  - name: a\n    base_url: not-a-url"},
		{"duplicate", "upstreams:\n  - name: a\n    base_url: https://a.example.com\n  - name: a\n    base_url: https://b.example.com"},
		{"bad auth", "upstreams:\n  - name: a\n    base_url: https://a.example.com\n    auth_style: cookie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUpstreamsConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
