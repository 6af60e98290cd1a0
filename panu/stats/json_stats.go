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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// JSONServer serves the counters of a Stats over plain HTTP.
type JSONServer struct {
	stats *Stats
}

// NewJSONServer returns a JSONServer for stats.
func NewJSONServer(stats *Stats) *JSONServer {
	return &JSONServer{stats: stats}
}

// Start runs the HTTP server and collects system stats on interval, never
// returning until the listener fails.
func (s *JSONServer) Start(port int, interval time.Duration) error {
	go func() {
		for range time.Tick(interval) {
			if err := s.stats.CollectSysStats(); err != nil {
				log.Warningf("panu: collecting sys stats: %v", err)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/counters", s.handleCounters)
	addr := fmt.Sprintf(":%d", port)
	log.Infof("panu: starting json stats server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *JSONServer) handleCounters(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.stats.GetCounters())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("panu: writing counters response: %v", err)
	}
}
