package align

import (
	"repertoire/internal/core/germline"
	"repertoire/internal/platform/config"
)

// Config holds every alignment threshold. It is passed by value and never mutated
type Config struct {
	MaxVTies      int     `conf:"max_v_ties" validate:"gte=1"`
	MinSimilarity float64 `conf:"min_similarity" validate:"gte=0,lte=1"`
	TrimTo        int     `conf:"trim_to" validate:"gte=0,lt=309"`
	MaxPadding    int     `conf:"max_padding" validate:"gte=0,gtefield=TrimTo"`
	MinCDR3       int     `conf:"min_cdr3" validate:"gte=3"`
	MaxCDR3       int     `conf:"max_cdr3" validate:"gtefield=MinCDR3"`

	MaxInsertions int `conf:"max_insertions" validate:"gte=0"`
	MaxDeletions  int `conf:"max_deletions" validate:"gte=0"`

	// AnchorMismatches bounds the J anchor search of the fallback
	AnchorMismatches int `conf:"anchor_mismatches" validate:"gte=0,lte=6"`
	// Candidates caps how many V genes go through placement search and realignment
	Candidates int `conf:"candidates" validate:"gte=1"`
	// TieDisplay is the byte budget for the displayed V tie names
	TieDisplay int `conf:"tie_display" validate:"gte=0"`
}

// DefaultConfig mirrors the CLI defaults
func DefaultConfig() Config {
	return Config{
		MaxVTies:         50,
		MinSimilarity:    0.6,
		TrimTo:           0,
		MaxPadding:       germline.CDR3Offset,
		MinCDR3:          6,
		MaxCDR3:          108,
		MaxInsertions:    2,
		MaxDeletions:     2,
		AnchorMismatches: 2,
		Candidates:       8,
		TieDisplay:       512,
	}
}

// Validate rejects contradictory thresholds, e.g. MaxPadding < TrimTo
func (c Config) Validate() error { return config.Validate(c) }
