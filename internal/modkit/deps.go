// Package modkit provides module wiring and core deps
package modkit

import (
	"repertoire/internal/modkit/repokit"
	"repertoire/internal/platform/config"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/store"
)

// Deps is what every module is built from. A zero Deps is valid: modules
// nil check the stores they use
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
