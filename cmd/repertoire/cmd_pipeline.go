package main

import (
	"slices"
	"strings"
	"time"

	"repertoire/internal/core/align"
	"repertoire/internal/core/cluster"
	"repertoire/internal/platform/report"

	clonesmod "repertoire/internal/services/clones/module"
	colmod "repertoire/internal/services/collapse/module"
	identmod "repertoire/internal/services/identify/module"
	identsvc "repertoire/internal/services/identify/service"
	treesdom "repertoire/internal/services/trees/domain"
	treesmod "repertoire/internal/services/trees/module"

	"github.com/spf13/cobra"
)

func newIdentifyCmd() *cobra.Command {
	var dir, metadata string
	cmd := &cobra.Command{
		Use:   "identify --dir DIR",
		Short: "Align every sample listed in the metadata file against the germlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge(cmd,
				flagEnv{"v-germlines", "CORE_IDENTIFY_V_GERMLINES"},
				flagEnv{"j-germlines", "CORE_IDENTIFY_J_GERMLINES"},
				flagEnv{"workers", "CORE_IDENTIFY_WORKERS"},
				flagEnv{"force", "CORE_IDENTIFY_FORCE"},
				flagEnv{"min-similarity", "CORE_IDENTIFY_MIN_SIMILARITY"},
				flagEnv{"trim-to", "CORE_IDENTIFY_TRIM_TO"},
			)
			samples, err := identsvc.SamplesFromDir(dir, metadata)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "identify")
			if err != nil {
				return err
			}
			defer rt.Close()

			m, err := identmod.New(rt.deps, identmod.FromConfig(rt.deps.Cfg))
			if err != nil {
				return err
			}
			sum, err := m.Ports().(identmod.Ports).Runner.IdentifyAll(ctx, samples)
			logSummary(rt, sum)
			return err
		},
	}
	def := align.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "directory holding the sample read files")
	f.StringVar(&metadata, "metadata", "", "sample metadata YAML (default DIR/metadata.yaml)")
	f.String("v-germlines", "", "gapped V germline FASTA")
	f.String("j-germlines", "", "J germline FASTA")
	f.Int("workers", 4, "samples aligned at once")
	f.Bool("force", false, "re-identify samples that already have sequences")
	f.Float64("min-similarity", def.MinSimilarity, "minimum V similarity for a read to align")
	f.Int("trim-to", def.TrimTo, "germline column alignment starts trimming at")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newCollapseCmd() *cobra.Command {
	var samples, subjects string
	var samplesOnly bool
	cmd := &cobra.Command{
		Use:   "collapse",
		Short: "Collapse identified samples, then merge their subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge(cmd,
				flagEnv{"workers", "CORE_COLLAPSE_WORKERS"},
				flagEnv{"force", "CORE_COLLAPSE_FORCE"},
				flagEnv{"regen", "CORE_COLLAPSE_REGEN"},
			)
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "collapse")
			if err != nil {
				return err
			}
			defer rt.Close()

			runner := colmod.New(rt.deps, colmod.FromConfig(rt.deps.Cfg)).Ports().(colmod.Ports).Runner

			sum, touched, err := runner.CollapseSamples(ctx, splitCSV(samples))
			logSummary(rt, sum)
			if err != nil || samplesOnly {
				return err
			}

			scope := mergeNames(touched, splitCSV(subjects))
			if len(scope) == 0 {
				rt.log.Info().Msg("collapse: no subjects to merge")
				return nil
			}
			sum, err = runner.CollapseSubjects(ctx, scope)
			logSummary(rt, sum)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&samples, "samples", "", "comma separated sample names (default every pending sample)")
	f.StringVar(&subjects, "subjects", "", "comma separated subjects to merge besides the ones touched")
	f.BoolVar(&samplesOnly, "samples-only", false, "stop after the sample level collapse")
	f.Int("workers", 4, "samples or subjects collapsed at once")
	f.Bool("force", false, "re-collapse samples collapsed before")
	f.Bool("regen", false, "delete a subject's clones so it can be merged again")
	return cmd
}

func newClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group subject level sequences into clones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge(cmd,
				flagEnv{"mode", "CORE_CLUSTER_MODE"},
				flagEnv{"level", "CORE_CLUSTER_LEVEL"},
				flagEnv{"min-similarity", "CORE_CLUSTER_MIN_SIMILARITY"},
				flagEnv{"mut-cutoff", "CORE_CLUSTER_MUT_CUTOFF"},
				flagEnv{"min-mut-occurrence", "CORE_CLUSTER_MIN_MUT_OCCURRENCE"},
				flagEnv{"min-mut-samples", "CORE_CLUSTER_MIN_MUT_SAMPLES"},
				flagEnv{"min-seq-instances", "CORE_CLUSTER_MIN_SEQ_INSTANCES"},
				flagEnv{"subclones", "CORE_CLUSTER_SUBCLONES"},
				flagEnv{"max-depth", "CORE_CLUSTER_MAX_DEPTH"},
				flagEnv{"min-v-identity", "CORE_CLUSTER_MIN_V_IDENTITY"},
				flagEnv{"min-copies", "CORE_CLUSTER_MIN_COPIES"},
				flagEnv{"max-padding", "CORE_CLUSTER_MAX_PADDING"},
				flagEnv{"exclude-partials", "CORE_CLUSTER_EXCLUDE_PARTIALS"},
				flagEnv{"gene", "CORE_CLUSTER_GENE"},
				flagEnv{"subjects", "CORE_CLUSTER_SUBJECTS"},
				flagEnv{"regen", "CORE_CLUSTER_REGEN"},
				flagEnv{"workers", "CORE_CLUSTER_WORKERS"},
				flagEnv{"tree-command", "CORE_CLUSTER_TREE_COMMAND"},
				flagEnv{"tree-timeout", "CORE_CLUSTER_TREE_TIMEOUT"},
				flagEnv{"scope-timeout", "CORE_CLUSTER_SCOPE_TIMEOUT"},
			)
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "cluster")
			if err != nil {
				return err
			}
			defer rt.Close()

			m := clonesmod.New(rt.deps, clonesmod.FromConfig(rt.deps.Cfg))
			sum, err := m.Ports().(clonesmod.Ports).Runner.Run(ctx, m.Defaults())
			logSummary(rt, sum)
			return err
		},
	}
	lin, flt := cluster.DefaultLineageConfig(), cluster.DefaultFilters()
	f := cmd.Flags()
	f.String("mode", string(cluster.ModeSimilarity), "similarity or lineage")
	f.String("level", string(cluster.LevelNT), "CDR3 level similarity compares: nt or aa")
	f.Float64("min-similarity", 0.85, "minimum CDR3 similarity to join a clone")
	f.Int("mut-cutoff", lin.MutCutoff, "lineage: mutations allowed between a sequence and its clone")
	f.Int("min-mut-occurrence", lin.MinMutOccurrence, "lineage: copies a mutation needs to count")
	f.Int("min-mut-samples", lin.MinMutSamples, "lineage: samples a mutation needs to count")
	f.Int("min-seq-instances", lin.MinSeqInstances, "lineage: copies a sequence needs to take part")
	f.Bool("subclones", lin.Subclones, "lineage: split clones into subclones")
	f.Int("max-depth", lin.MaxDepth, "lineage: deepest subclone level")
	f.Float64("min-v-identity", flt.MinVIdentity, "skip sequences below this V identity")
	f.Int("min-copies", flt.MinCopies, "skip sequences with fewer copies")
	f.Int("max-padding", flt.MaxPadding, "skip sequences with more padding (-1 is unlimited)")
	f.Bool("exclude-partials", flt.ExcludePartials, "skip partial reads")
	f.String("gene", "", "only cluster sequences whose V ties contain this gene")
	f.String("subjects", "", "comma separated subjects (default all)")
	f.Bool("regen", false, "replace scopes that already have clones")
	f.Int("workers", 4, "scopes clustered at once")
	f.String("tree-command", "", "external tree builder (default built in neighbour joining)")
	f.Duration("tree-timeout", 2*time.Minute, "bound on one tree build")
	f.Duration("scope-timeout", 0, "bound on one scope (0 is none)")
	return cmd
}

func newRenderTreesCmd() *cobra.Command {
	var ids, subjects, locus string
	var force bool
	cmd := &cobra.Command{
		Use:   "render-trees",
		Short: "Render and store lineage trees of clones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge(cmd,
				flagEnv{"workers", "CORE_TREES_WORKERS"},
				flagEnv{"tree-command", "CORE_TREES_TREE_COMMAND"},
				flagEnv{"tree-timeout", "CORE_TREES_TREE_TIMEOUT"},
				flagEnv{"min-mut-copies", "CORE_TREES_MIN_MUT_COPIES"},
				flagEnv{"min-mut-samples", "CORE_TREES_MIN_MUT_SAMPLES"},
				flagEnv{"min-seq-copies", "CORE_TREES_MIN_SEQ_COPIES"},
				flagEnv{"min-seq-samples", "CORE_TREES_MIN_SEQ_SAMPLES"},
				flagEnv{"exclude-stops", "CORE_TREES_EXCLUDE_STOPS"},
			)
			cloneIDs, err := parseIDs(ids)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "trees")
			if err != nil {
				return err
			}
			defer rt.Close()

			m := treesmod.New(rt.deps, treesmod.FromConfig(rt.deps.Cfg))
			sum, err := m.Ports().(treesmod.Ports).Renderer.RenderAll(ctx, treesdom.RenderAllInput{
				CloneIDs: cloneIDs,
				Subjects: splitCSV(subjects),
				Locus:    locus,
				Filters:  m.Filters(),
				Force:    force,
			})
			logSummary(rt, sum)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&ids, "clone-ids", "", "comma separated clone ids (default every clone selected)")
	f.StringVar(&subjects, "subjects", "", "comma separated subjects")
	f.StringVar(&locus, "locus", "", "only clones of this locus")
	f.BoolVar(&force, "force", false, "rebuild trees even when the stored one is current")
	f.Int("workers", 4, "clones rendered at once")
	f.String("tree-command", "", "external tree builder (default built in neighbour joining)")
	f.Duration("tree-timeout", 2*time.Minute, "bound on one tree build")
	f.Int("min-mut-copies", 0, "hide mutations seen in fewer copies")
	f.Int("min-mut-samples", 0, "hide mutations seen in fewer samples")
	f.Int("min-seq-copies", 0, "hide members with fewer copies")
	f.Int("min-seq-samples", 0, "hide members seen in fewer samples")
	f.Bool("exclude-stops", false, "hide members with a stop codon")
	return cmd
}

func logSummary(rt *runtime, sum *report.Summary) {
	if sum != nil {
		sum.Log(rt.log)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeNames unions and sorts name lists
func mergeNames(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
