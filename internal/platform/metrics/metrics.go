// Package metrics holds the pipeline's prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reads counts identified reads by final status
	Reads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_reads_total",
		Help: "Reads identified, by status",
	}, []string{"status"})

	// Items counts per item outcomes of every pipeline stage
	Items = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_items_total",
		Help: "Pipeline items processed, by stage and outcome",
	}, []string{"stage", "outcome"})

	// GroupDuration times one unit of work: a sample, a subject or a bucket
	GroupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repertoire_group_duration_seconds",
		Help:    "Time to process one sample, subject or bucket",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 600},
	}, []string{"stage"})

	// TreeBuilds counts tree builder calls by outcome
	TreeBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_tree_builds_total",
		Help: "Lineage tree builds, by outcome",
	}, []string{"outcome"})

	// TreeCache counts render requests served from a stored tree
	TreeCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repertoire_tree_cache_total",
		Help: "Tree renders, by hit or miss",
	}, []string{"result"})
)

// Handler exposes the default registry
func Handler() http.Handler { return promhttp.Handler() }
