package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		allowed   []string
		boolFlags []string
		want      []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.yaml", "-d", "vault.db"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.yaml"},
		},
		{
			name:    "joined value",
			args:    []string{"--config=alt.json", "-d", "vault.db"},
			allowed: []string{"--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:      "bool flag does not swallow the next argument",
			args:      []string{"-calibrate", "positional", "-d", "v.db"},
			allowed:   []string{"-calibrate", "-d"},
			boolFlags: []string{"-calibrate"},
			want:      []string{"-calibrate", "-d", "v.db"},
		},
		{
			name:    "repeats kept in order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed, tt.boolFlags...))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/path/short.yaml"}, "/path/short.yaml"},
		{"long", []string{"-config", "/path/long.json"}, "/path/long.json"},
		{"double dash joined", []string{"--config=/path/eq.json"}, "/path/eq.json"},
		{"absent", []string{"-d", "vault.db"}, ""},
		{"last wins", []string{"-c", "/path/1.json", "-config", "/path/2.json"}, "/path/2.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFlag(tt.args))
		})
	}
}
