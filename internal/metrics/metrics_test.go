package metrics

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/api/v1/reset", "/api/v1/reset"},
		{"/api/v1/speed", "/api/v1/speed"},
		{"/api/v1/bodies", "/api/v1/bodies"},
		{"/api/v1/crafts", "/api/v1/crafts"},
		{"/api/v1/prediction", "/api/v1/prediction"},
		{"/api/v1/stream/world", "/api/v1/stream/world"},

		// Parameterized craft routes collapse to one label regardless of id.
		{"/api/v1/crafts/0/launch", "/api/v1/crafts/{craft_id}/launch"},
		{"/api/v1/crafts/7/launch", "/api/v1/crafts/{craft_id}/launch"},
		{"/api/v1/crafts/42/transfer", "/api/v1/crafts/{craft_id}/transfer"},
		{"/api/v1/crafts/42/transfer/schedule", "/api/v1/crafts/{craft_id}/transfer/schedule"},
		{"/api/v1/crafts/42/transfer/cancel", "/api/v1/crafts/{craft_id}/transfer/cancel"},
		{"/api/v1/stream/transfer/0", "/api/v1/stream/transfer/{craft_id}"},
		{"/api/v1/stream/transfer/99", "/api/v1/stream/transfer/{craft_id}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct craft ids produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/crafts/" + string(rune('0'+i%10)) + string(rune('0'+i/10)) + "/launch")
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
