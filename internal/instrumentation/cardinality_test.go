package instrumentation

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/process", "/process"},
		{"/process/", "/process"},
		{"/healthz", "/healthz"},
		{"/healthz/detailed", "/healthz/detailed"},
		{"/metrics", "/metrics"},
		{"/", "other"},
		{"/wp-admin/setup.php", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	if StatusFor(nil) != StatusSuccess {
		t.Error("nil error should map to success")
	}
	if StatusFor(errTest) != StatusError {
		t.Error("non-nil error should map to error")
	}
}
