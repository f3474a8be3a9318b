package module

import (
	"time"

	"repertoire/internal/core/lineage"
	"repertoire/internal/platform/config"
)

// Options for the trees module
type Options struct {
	Workers     int
	TreeCommand string
	TreeArgs    []string
	TreeTempDir string
	TreeTimeout time.Duration
	Filters     lineage.Filters
}

// FromConfig fills options from environment
// CORE_TREES_WORKERS (default 4) is how many clones render at once
// CORE_TREES_TREE_COMMAND / TREE_ARGS / TREE_TEMP_DIR select the builder, falling back to CORE_CLUSTER_'s
// CORE_TREES_TREE_TIMEOUT (default 2m) bounds one build
// CORE_TREES_MIN_MUT_COPIES, MIN_MUT_SAMPLES, MIN_SEQ_COPIES, MIN_SEQ_SAMPLES, EXCLUDE_STOPS are the default filters
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_TREES_")
	c := cfg.Prefix("CORE_CLUSTER_")
	return Options{
		Workers:     n.MayInt("WORKERS", 4),
		TreeCommand: n.MayString("TREE_COMMAND", c.MayString("TREE_COMMAND", "")),
		TreeArgs:    n.MayCSV("TREE_ARGS", c.MayCSV("TREE_ARGS", nil)),
		TreeTempDir: n.MayString("TREE_TEMP_DIR", c.MayString("TREE_TEMP_DIR", "")),
		TreeTimeout: n.MayDuration("TREE_TIMEOUT", 2*time.Minute),
		Filters: lineage.Filters{
			MinMutCopies:  n.MayInt("MIN_MUT_COPIES", 0),
			MinMutSamples: n.MayInt("MIN_MUT_SAMPLES", 0),
			MinSeqCopies:  n.MayInt("MIN_SEQ_COPIES", 0),
			MinSeqSamples: n.MayInt("MIN_SEQ_SAMPLES", 0),
			ExcludeStops:  n.MayBool("EXCLUDE_STOPS", false),
		},
	}
}
