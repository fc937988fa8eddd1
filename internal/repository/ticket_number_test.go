package repository

import "testing"

func TestNextTicketNumber(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		latest string
		want   string
	}{
		{"empty sequence starts at one", 2026, "", "TKT-2026-000001"},
		{"increments past the highest issued", 2026, "TKT-2026-000041", "TKT-2026-000042"},
		{"previous year's numbers are ignored", 2026, "TKT-2025-000900", "TKT-2026-000001"},
		{"malformed suffix restarts the sequence", 2026, "TKT-2026-abc", "TKT-2026-000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextTicketNumber(tt.year, tt.latest); got != tt.want {
				t.Errorf("nextTicketNumber(%d, %q) = %q, want %q", tt.year, tt.latest, got, tt.want)
			}
		})
	}
}
