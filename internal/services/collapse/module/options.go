package module

import "repertoire/internal/platform/config"

// Options for the collapse module
type Options struct {
	Workers int
	Force   bool
	Regen   bool
}

// FromConfig fills options from environment
// CORE_COLLAPSE_WORKERS (default 4) is how many samples or subjects collapse at once
// CORE_COLLAPSE_FORCE (default false) re-collapses samples collapsed before
// CORE_COLLAPSE_REGEN (default false) deletes a subject's clones so it can re-collapse
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_COLLAPSE_")
	return Options{
		Workers: n.MayInt("WORKERS", 4),
		Force:   n.MayBool("FORCE", false),
		Regen:   n.MayBool("REGEN", false),
	}
}
