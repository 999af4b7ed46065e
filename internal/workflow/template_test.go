package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTemplate(t *testing.T) {
	variables := map[string]any{
		"target": "api.example.com",
		"port":   8443,
		"depth":  2.5,
		"flags":  []any{"fast", "quiet"},
		"scan": map[string]any{
			"output": map[string]any{
				"endpoint": "/v1/users",
			},
		},
	}

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{
			name:  "plain string untouched",
			input: "no placeholders here",
			want:  "no placeholders here",
		},
		{
			name:  "whole-string placeholder keeps type",
			input: "{{port}}",
			want:  8443,
		},
		{
			name:  "whole-string placeholder keeps slice",
			input: "{{flags}}",
			want:  []any{"fast", "quiet"},
		},
		{
			name:  "interpolated placeholder stringifies",
			input: "https://{{target}}:{{port}}/health",
			want:  "https://api.example.com:8443/health",
		},
		{
			name:  "dotted path resolution",
			input: "{{scan.output.endpoint}}",
			want:  "/v1/users",
		},
		{
			name:  "unknown variable left in place",
			input: "{{missing}}",
			want:  "{{missing}}",
		},
		{
			name:  "unknown variable in mixed string left in place",
			input: "host={{missing}}",
			want:  "host={{missing}}",
		},
		{
			name: "maps recurse",
			input: map[string]any{
				"url":   "https://{{target}}/",
				"depth": "{{depth}}",
			},
			want: map[string]any{
				"url":   "https://api.example.com/",
				"depth": 2.5,
			},
		},
		{
			name:  "slices recurse",
			input: []any{"{{target}}", "{{port}}", 7},
			want:  []any{"api.example.com", 8443, 7},
		},
		{
			name:  "non-string values pass through",
			input: 42,
			want:  42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTemplate(tt.input, variables))
		})
	}
}

func TestLookupPath(t *testing.T) {
	root := map[string]any{
		"results": map[string]any{
			"recon": map[string]any{
				"hosts": []any{"a", "b"},
			},
		},
	}

	value, ok := lookupPath(root, "results.recon.hosts")
	assert.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, value)

	_, ok = lookupPath(root, "results.recon.ports")
	assert.False(t, ok)

	// traversing through a non-map value fails, not panics
	_, ok = lookupPath(root, "results.recon.hosts.0")
	assert.False(t, ok)
}
