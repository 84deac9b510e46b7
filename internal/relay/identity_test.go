package relay

import "testing"

// TestNormalizeIdentity verifies the canonical room key mapping: trimmed,
// lowercased, with empty or whitespace-only input yielding the no-room
// sentinel.
func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already canonical", raw: "alice@example.com", want: "alice@example.com"},
		{name: "mixed case", raw: "Alice@Example.Com", want: "alice@example.com"},
		{name: "surrounding whitespace", raw: "  alice@example.com \t", want: "alice@example.com"},
		{name: "case and whitespace", raw: " ALICE@EXAMPLE.COM ", want: "alice@example.com"},
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: " \t\n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIdentity(tt.raw); got != tt.want {
				t.Errorf("NormalizeIdentity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// TestNormalizeIdentityEquivalence verifies that identities differing only
// by case or surrounding whitespace map to the same room key.
func TestNormalizeIdentityEquivalence(t *testing.T) {
	variants := []string{
		"bob@x.com",
		"Bob@X.com",
		"BOB@X.COM",
		"  bob@x.com",
		"bob@x.com  ",
		"\tBob@X.Com\n",
	}

	want := NormalizeIdentity(variants[0])
	for _, v := range variants {
		if got := NormalizeIdentity(v); got != want {
			t.Errorf("NormalizeIdentity(%q) = %q, want %q", v, got, want)
		}
	}
}
