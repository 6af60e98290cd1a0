/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter republishes a Stats' counters as Prometheus gauges.
// It reads the in-process Stats directly rather than scraping a JSON
// endpoint over loopback: a PANU client is embedded as a library, not run
// out-of-process from its own stats exporter.
type PrometheusExporter struct {
	stats      *Stats
	registry   *prometheus.Registry
	listenPort int
	interval   time.Duration
}

// NewPrometheusExporter creates a PrometheusExporter reading from stats.
func NewPrometheusExporter(stats *Stats, listenPort int, scrapeInterval time.Duration) *PrometheusExporter {
	return &PrometheusExporter{
		stats:      stats,
		registry:   prometheus.NewRegistry(),
		listenPort: listenPort,
		interval:   scrapeInterval,
	}
}

// Start runs the exporter's HTTP server, never returning until the
// listener fails.
func (e *PrometheusExporter) Start() error {
	go func() {
		for range time.Tick(e.interval) {
			e.scrapeMetrics()
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	addr := fmt.Sprintf(":%d", e.listenPort)
	log.Infof("panu: starting prometheus exporter on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (e *PrometheusExporter) scrapeMetrics() {
	for mkey, mval := range e.stats.GetCounters() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: flattenKey(mkey), Help: mkey})
		if err := e.registry.Register(g); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("panu: registering metric %s: %v", mkey, err)
				continue
			}
		}
		g.Set(float64(mval))
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
