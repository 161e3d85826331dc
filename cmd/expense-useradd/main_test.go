package main

import (
	"testing"

	"expensemanager/internal/core"
)

func TestParseRoles(t *testing.T) {
	tests := []struct {
		in   string
		want []core.Role
	}{
		{"", nil},
		{"System Manager", []core.Role{core.SystemManager}},
		{" System Manager , Accounts User,, ", []core.Role{core.SystemManager, "Accounts User"}},
	}
	for _, tt := range tests {
		got := parseRoles(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseRoles(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseRoles(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
