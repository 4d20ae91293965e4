package styles

import (
	"strings"
	"testing"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"waiting", "#60A5FA"},
		{"delivered", "#10B981"},
		{"timeout", "#FBBF24"},
		{"canceled", "#9CA3AF"},
		{"error", "#F87171"},
		{"unknown", "#9CA3AF"}, // falls back to MutedColor
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusColor(tt.status)
			if string(got) != tt.expected {
				t.Errorf("StatusColor(%q) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"waiting", "○"},
		{"delivered", "✓"},
		{"timeout", "⏱"},
		{"canceled", "⏸"},
		{"error", "✗"},
		{"unknown", "●"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusIcon(tt.status)
			if got != tt.expected {
				t.Errorf("StatusIcon(%q) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestBadge(t *testing.T) {
	got := Badge(StatusNameDelivered)
	if !strings.Contains(got, "✓ delivered") {
		t.Errorf("Badge(delivered) = %q, want it to contain %q", got, "✓ delivered")
	}
}
