// Package relay implements identity normalization used to derive room keys
// from raw client-supplied identity strings.
package relay

import "strings"

// GlobalRoom is the reserved broadcast key. Emits to it reach every
// registered connection; no explicit join is required.
const GlobalRoom = "global"

// NormalizeIdentity maps a raw identity token to its canonical room key.
// The result is lowercased and trimmed; an identity that is empty after
// trimming yields "" which callers treat as "no valid target".
func NormalizeIdentity(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
