package module

import (
	"repertoire/internal/core/align"
	"repertoire/internal/core/germline"
	"repertoire/internal/platform/config"
)

// Options for the identify module
type Options struct {
	Workers    int
	Force      bool
	VGermlines string
	JGermlines string
	J          germline.JConfig
	Align      align.Config
}

// FromConfig fills options from environment
// CORE_IDENTIFY_WORKERS (default 4) is how many samples align at once
// CORE_IDENTIFY_FORCE (default false) re-identifies samples that already have sequences
// CORE_IDENTIFY_V_GERMLINES / CORE_IDENTIFY_J_GERMLINES are the germline FASTA paths
// CORE_IDENTIFY_ANCHOR_LEN, MIN_ANCHOR_LEN, UPSTREAM_OF_CDR3 shape the J anchors
// the remaining keys map onto align.Config field by field
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_IDENTIFY_")
	def := align.DefaultConfig()
	return Options{
		Workers:    n.MayInt("WORKERS", 4),
		Force:      n.MayBool("FORCE", false),
		VGermlines: n.MayString("V_GERMLINES", ""),
		JGermlines: n.MayString("J_GERMLINES", ""),
		J: germline.JConfig{
			AnchorLen:      n.MayInt("ANCHOR_LEN", 18),
			MinAnchorLen:   n.MayInt("MIN_ANCHOR_LEN", 12),
			UpstreamOfCDR3: n.MayInt("UPSTREAM_OF_CDR3", 31),
		},
		Align: align.Config{
			MaxVTies:         n.MayInt("MAX_V_TIES", def.MaxVTies),
			MinSimilarity:    n.MayFloat64("MIN_SIMILARITY", def.MinSimilarity),
			TrimTo:           n.MayInt("TRIM_TO", def.TrimTo),
			MaxPadding:       n.MayInt("MAX_PADDING", def.MaxPadding),
			MinCDR3:          n.MayInt("MIN_CDR3", def.MinCDR3),
			MaxCDR3:          n.MayInt("MAX_CDR3", def.MaxCDR3),
			MaxInsertions:    n.MayInt("MAX_INSERTIONS", def.MaxInsertions),
			MaxDeletions:     n.MayInt("MAX_DELETIONS", def.MaxDeletions),
			AnchorMismatches: n.MayInt("ANCHOR_MISMATCHES", def.AnchorMismatches),
			Candidates:       n.MayInt("CANDIDATES", def.Candidates),
			TieDisplay:       n.MayInt("TIE_DISPLAY", def.TieDisplay),
		},
	}
}
