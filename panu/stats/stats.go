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

// Package stats holds the counters a running Client accumulates and
// exports them three ways: a plain map for embedding, JSON over HTTP, and
// a Prometheus registry.
package stats

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Counters is a flat snapshot of every counter this package tracks,
// keyed by dotted, Prometheus/JSON-friendly names.
type Counters map[string]int64

// counter key prefixes.
const (
	prefix        = "panu.client."
	stateEnterPfx = prefix + "state.entered."
	ctrlSentPfx   = prefix + "bnep.control.sent."
	ctrlRecvPfx   = prefix + "bnep.control.recv."
)

// Stats accumulates every counter a Client reports: one entry-count per
// Supervisor state, BNEP control messages sent/received by type, TX
// queue depth/drops, RX delivered, and fast-path vs slow-path TX counts.
type Stats struct {
	mu sync.Mutex

	stateEntered map[string]*int64
	ctrlSent     map[string]*int64
	ctrlRecv     map[string]*int64

	setupSuccess int64
	setupFailure int64

	fastPathTX  int64
	slowPathTX  int64
	txDropped   int64
	rxDelivered int64
	queueDepth  int64

	procStartTime time.Time
	proc          *process.Process
	memstats      runtime.MemStats
	uptimeSec     int64
	cpuPCT        int64
	rss           int64
	goRoutines    int64
	gcPauseNs     int64
	gcPauseTotal  int64
}

// stateNames and controlNames are fixed ahead of time so GetCounters
// always reports every key, even ones never hit.
var stateNames = []string{
	"idle", "scanning", "connecting", "bnepsetup", "dhcp",
	"online", "stalled", "reconnecting", "error",
}

var controlNames = []string{
	"command_not_understood", "setup_connection_request",
	"setup_connection_response", "filter_net_type_set",
	"filter_net_type_response", "filter_multi_addr_set",
	"filter_multi_addr_response",
}

// New returns a Stats with every named counter pre-registered at zero.
func New() (*Stats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	s := &Stats{
		stateEntered:  make(map[string]*int64, len(stateNames)),
		ctrlSent:      make(map[string]*int64, len(controlNames)),
		ctrlRecv:      make(map[string]*int64, len(controlNames)),
		procStartTime: time.Now(),
		proc:          proc,
	}
	for _, n := range stateNames {
		var v int64
		s.stateEntered[n] = &v
	}
	for _, n := range controlNames {
		var sv, rv int64
		s.ctrlSent[n] = &sv
		s.ctrlRecv[n] = &rv
	}
	return s, err
}

// IncStateEntered atomically counts one entry into the named Supervisor
// state; name must be one of stateNames (lowercase StateToString).
func (s *Stats) IncStateEntered(name string) {
	if p, ok := s.stateEntered[name]; ok {
		atomic.AddInt64(p, 1)
	}
}

// IncControlSent and IncControlRecv count one BNEP control message of the
// named type sent or received.
func (s *Stats) IncControlSent(name string) {
	if p, ok := s.ctrlSent[name]; ok {
		atomic.AddInt64(p, 1)
	}
}

func (s *Stats) IncControlRecv(name string) {
	if p, ok := s.ctrlRecv[name]; ok {
		atomic.AddInt64(p, 1)
	}
}

// IncSetupSuccess and IncSetupFailure count BNEP setup outcomes.
func (s *Stats) IncSetupSuccess() { atomic.AddInt64(&s.setupSuccess, 1) }
func (s *Stats) IncSetupFailure() { atomic.AddInt64(&s.setupFailure, 1) }

// SetBridgeCounters copies the netif bridge's point-in-time counters in.
func (s *Stats) SetBridgeCounters(fastPathTX, slowPathTX, txDropped, rxDelivered uint64, queueDepth int) {
	atomic.StoreInt64(&s.fastPathTX, int64(fastPathTX))
	atomic.StoreInt64(&s.slowPathTX, int64(slowPathTX))
	atomic.StoreInt64(&s.txDropped, int64(txDropped))
	atomic.StoreInt64(&s.rxDelivered, int64(rxDelivered))
	atomic.StoreInt64(&s.queueDepth, int64(queueDepth))
}

// CollectSysStats gathers process-level cpu/mem/gc metrics.
func (s *Stats) CollectSysStats() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runtime.ReadMemStats(&s.memstats)
	s.uptimeSec = time.Now().Unix() - s.procStartTime.Unix()

	if s.proc == nil {
		return nil
	}
	if val, err := s.proc.Percent(0); err == nil {
		s.cpuPCT = int64(val * 100)
	}
	if val, err := s.proc.MemoryInfo(); err == nil {
		s.rss = int64(val.RSS)
	}
	s.goRoutines = int64(runtime.NumGoroutine())
	s.gcPauseNs = int64(s.memstats.PauseTotalNs) - s.gcPauseTotal
	s.gcPauseTotal = int64(s.memstats.PauseTotalNs)
	return nil
}

// GetCounters returns a flat snapshot of every counter.
func (s *Stats) GetCounters() Counters {
	c := make(Counters, len(stateNames)+2*len(controlNames)+12)
	for _, n := range stateNames {
		c[stateEnterPfx+n] = atomic.LoadInt64(s.stateEntered[n])
	}
	for _, n := range controlNames {
		c[ctrlSentPfx+n] = atomic.LoadInt64(s.ctrlSent[n])
		c[ctrlRecvPfx+n] = atomic.LoadInt64(s.ctrlRecv[n])
	}
	c[prefix+"bnep.setup.success"] = atomic.LoadInt64(&s.setupSuccess)
	c[prefix+"bnep.setup.failure"] = atomic.LoadInt64(&s.setupFailure)
	c[prefix+"netif.tx.fast_path"] = atomic.LoadInt64(&s.fastPathTX)
	c[prefix+"netif.tx.slow_path"] = atomic.LoadInt64(&s.slowPathTX)
	c[prefix+"netif.tx.dropped"] = atomic.LoadInt64(&s.txDropped)
	c[prefix+"netif.rx.delivered"] = atomic.LoadInt64(&s.rxDelivered)
	c[prefix+"netif.tx.queue_depth"] = atomic.LoadInt64(&s.queueDepth)

	s.mu.Lock()
	c[prefix+"process.uptime"] = s.uptimeSec
	c[prefix+"process.cpu_pct.avg.60"] = s.cpuPCT
	c[prefix+"process.rss"] = s.rss
	c[prefix+"runtime.cpu.goroutines"] = s.goRoutines
	c[prefix+"runtime.gc.pause_ns.sum.60"] = s.gcPauseNs
	s.mu.Unlock()

	return c
}
