// Package api provides the read only HTTP API over pipeline results
package api

import (
	"net/http"

	"repertoire/internal/platform/config"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
	phttp "repertoire/internal/platform/net/http"
	"repertoire/internal/platform/store"

	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"
	"repertoire/internal/modkit/module"
	"repertoire/internal/modkit/swaggerkit"

	clonesapi "repertoire/internal/services/api/clones/module"
	metamod "repertoire/internal/services/api/meta/module"
	samplesmod "repertoire/internal/services/api/samples/module"

	// worker modules that own the ports the clones API reads through
	exchangemod "repertoire/internal/services/exchange/module"
	treesmod "repertoire/internal/services/trees/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableProfiler bool
	EnableSwagger  bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// worker modules first so their ports can be injected
	trees := treesmod.New(deps, treesmod.FromConfig(deps.Cfg))
	exchange := exchangemod.New(deps, exchangemod.FromConfig(deps.Cfg))

	clones := clonesapi.New(deps, modkit.WithPorts(clonesapi.Ports{
		Renderer: module.MustPortsOf[treesmod.Ports](trees).Renderer,
		Exchange: module.MustPortsOf[exchangemod.Ports](exchange).Exchange,
		Filters:  trees.Filters(),
	}))

	mods := []module.Module{
		metamod.New(deps),
		samplesmod.New(deps),
		trees,
		exchange,
		clones,
	}

	// unversioned probes for orchestrators and scrapers
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		phttp.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": metamod.ServiceName})
	})
	r.Handle("/metrics", metrics.Handler())

	doc := swaggerkit.NewDoc()
	for _, m := range mods {
		doc.Collect(m)
	}
	swaggerkit.Mount(r, doc, opt.EnableSwagger)

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
}
