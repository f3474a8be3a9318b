package module

import (
	"os"
	"time"
	"unicode/utf8"

	"repertoire/internal/platform/config"
)

// Options for the exchange module
type Options struct {
	Delimiter rune

	LeaseOwner string
	LeaseTTL   time.Duration
}

// FromConfig fills options from environment
// CORE_EXCHANGE_DELIMITER tab|comma|semicolon or a single character (default tab)
// CORE_EXCHANGE_LEASE_OWNER (default hostname), LEASE_TTL (default 10m) claim imported scopes
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_EXCHANGE_")
	host, _ := os.Hostname()
	return Options{
		Delimiter:  ParseDelimiter(n.MayString("DELIMITER", "tab")),
		LeaseOwner: n.MayString("LEASE_OWNER", host),
		LeaseTTL:   n.MayDuration("LEASE_TTL", 10*time.Minute),
	}
}

// ParseDelimiter maps a name or single character to a delimiter; anything
// else falls back to tab
func ParseDelimiter(s string) rune {
	switch s {
	case "", "tab", `\t`:
		return '\t'
	case "comma":
		return ','
	case "semicolon":
		return ';'
	}
	if r, size := utf8.DecodeRuneInString(s); size == len(s) && r != utf8.RuneError {
		return r
	}
	return '\t'
}
