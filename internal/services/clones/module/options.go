package module

import (
	"os"
	"time"

	"repertoire/internal/core/cluster"
	"repertoire/internal/platform/config"
	"repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/guardrails"
)

// Options for the clones module
type Options struct {
	Workers int

	// Input holds the defaults a CLI run starts from
	Input domain.RunInput

	TreeCommand string
	TreeArgs    []string
	TreeTempDir string

	LeaseOwner  string
	LeaseTTL    time.Duration
	LockTimeout time.Duration
	Timeouts    guardrails.Timeouts
}

// FromConfig fills options from environment
// CORE_CLUSTER_WORKERS (default 4) is how many scopes cluster at once
// CORE_CLUSTER_MODE similarity|lineage (default similarity), CORE_CLUSTER_LEVEL nt|aa (default nt)
// CORE_CLUSTER_MIN_SIMILARITY (default 0.85) is the CDR3 similarity merge threshold
// CORE_CLUSTER_MUT_CUTOFF, MIN_MUT_OCCURRENCE, MIN_MUT_SAMPLES, MIN_SEQ_INSTANCES, SUBCLONES, MAX_DEPTH shape lineage mode
// CORE_CLUSTER_MIN_V_IDENTITY, MIN_COPIES, MAX_PADDING, EXCLUDE_PARTIALS, GENE, SUBJECTS filter sequences
// CORE_CLUSTER_REGEN (default false) deletes existing clones of a scope first
// CORE_CLUSTER_TREE_COMMAND empty selects the in-process neighbor joining builder
// CORE_CLUSTER_TREE_ARGS is a CSV of arguments; {in} and {out} expand to scratch files
// CORE_CLUSTER_LOCK_TIMEOUT (default 30s) bounds row lock waits inside clustering transactions
// CORE_CLUSTER_LEASE_TTL (default 10m) also caps one scope pass since the lease is not renewed
// CORE_CLUSTER_SCOPE_TIMEOUT, TREE_TIMEOUT (default 2m), DB_TIMEOUT (default 1m)
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_CLUSTER_")
	lin := cluster.DefaultLineageConfig()
	flt := cluster.DefaultFilters()
	host, _ := os.Hostname()
	return Options{
		Workers: n.MayInt("WORKERS", 4),
		Input: domain.RunInput{
			Mode: cluster.Mode(n.MayEnum("MODE", string(cluster.ModeSimilarity),
				string(cluster.ModeSimilarity), string(cluster.ModeLineage))),
			Similarity: cluster.SimilarityConfig{
				Level:         cluster.Level(n.MayEnum("LEVEL", string(cluster.LevelNT), string(cluster.LevelNT), string(cluster.LevelAA))),
				MinSimilarity: n.MayFloat64("MIN_SIMILARITY", 0.85),
			},
			Lineage: cluster.LineageConfig{
				MutCutoff:        n.MayInt("MUT_CUTOFF", lin.MutCutoff),
				MinMutOccurrence: n.MayInt("MIN_MUT_OCCURRENCE", lin.MinMutOccurrence),
				MinMutSamples:    n.MayInt("MIN_MUT_SAMPLES", lin.MinMutSamples),
				MinSeqInstances:  n.MayInt("MIN_SEQ_INSTANCES", lin.MinSeqInstances),
				Subclones:        n.MayBool("SUBCLONES", lin.Subclones),
				MaxDepth:         n.MayInt("MAX_DEPTH", lin.MaxDepth),
			},
			Filters: cluster.Filters{
				MinVIdentity:    n.MayFloat64("MIN_V_IDENTITY", flt.MinVIdentity),
				MinCopies:       n.MayInt("MIN_COPIES", flt.MinCopies),
				MaxPadding:      n.MayInt("MAX_PADDING", flt.MaxPadding),
				ExcludePartials: n.MayBool("EXCLUDE_PARTIALS", flt.ExcludePartials),
				Gene:            n.MayString("GENE", ""),
				Subjects:        n.MayCSV("SUBJECTS", nil),
			},
			Regen: n.MayBool("REGEN", false),
		},
		TreeCommand: n.MayString("TREE_COMMAND", ""),
		TreeArgs:    n.MayCSV("TREE_ARGS", nil),
		TreeTempDir: n.MayString("TREE_TEMP_DIR", ""),
		LeaseOwner:  n.MayString("LEASE_OWNER", host),
		LeaseTTL:    n.MayDuration("LEASE_TTL", 10*time.Minute),
		LockTimeout: n.MayDuration("LOCK_TIMEOUT", 30*time.Second),
		Timeouts: guardrails.Timeouts{
			Scope: n.MayDuration("SCOPE_TIMEOUT", 0),
			Tree:  n.MayDuration("TREE_TIMEOUT", 2*time.Minute),
			DB:    n.MayDuration("DB_TIMEOUT", time.Minute),
		},
	}
}
