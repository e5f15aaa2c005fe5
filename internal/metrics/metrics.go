// Package metrics exposes driver, cache and client state as Prometheus
// metrics on an optional HTTP endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/terrafs"
)

// Register installs collectors reading fsys's counters into the default
// registry. Values are sampled at scrape time; nothing is pushed.
func Register(fsys *terrafs.FS) {
	counter := func(name, help string, value func(terrafs.StatsSnapshot) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(value(fsys.Snapshot())) },
		)
	}
	gauge := func(name, help string, value func(terrafs.StatsSnapshot) int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(value(fsys.Snapshot())) },
		)
	}

	prometheus.MustRegister(
		counter("terrafs_file_fetches_total",
			"Total file content fetches from the scenery server",
			func(s terrafs.StatsSnapshot) int64 { return s.FileFetches }),
		counter("terrafs_bytes_fetched_total",
			"Total file content bytes fetched from the scenery server",
			func(s terrafs.StatsSnapshot) int64 { return s.BytesFetched }),
		counter("terrafs_fetch_errors_total",
			"Total failed content fetches",
			func(s terrafs.StatsSnapshot) int64 { return s.FetchErrors }),
		counter("terrafs_hash_mismatches_total",
			"Total content fetches rejected by hash verification",
			func(s terrafs.StatsSnapshot) int64 { return s.HashMismatches }),
		counter("terrafs_manifest_fetches_total",
			"Total manifest fetches from the scenery server",
			func(s terrafs.StatsSnapshot) int64 { return s.Cache.Misses }),
		counter("terrafs_manifest_cache_hits_total",
			"Total manifest lookups answered from memory",
			func(s terrafs.StatsSnapshot) int64 { return s.Cache.Hits }),
		gauge("terrafs_manifest_cache_entries",
			"Memoized manifests, confirmed absences included",
			func(s terrafs.StatsSnapshot) int64 { return s.Cache.Entries }),
		gauge("terrafs_manifest_cache_negative_entries",
			"Memoized confirmed-absent directories",
			func(s terrafs.StatsSnapshot) int64 { return s.Cache.NegativeEntries }),
		gauge("terrafs_open_handles",
			"File handles currently open",
			func(s terrafs.StatsSnapshot) int64 { return s.OpenHandles }),
		gauge("terrafs_server_online",
			"1 while the scenery server is reachable, 0 during an outage",
			func(s terrafs.StatsSnapshot) int64 {
				if s.Online {
					return 1
				}
				return 0
			}),
	)
}

// Serve runs a metrics endpoint on addr until the process exits. Intended
// to be started on its own goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logging.L().Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.L().Error("metrics endpoint failed", zap.Error(err))
	}
}
