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

package client

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/panu/panu/config"
	"github.com/facebook/panu/panu/eventsink"
	"github.com/facebook/panu/panu/hal"
	"github.com/facebook/panu/panu/netif"
	"github.com/facebook/panu/panu/stats"
)

// halAdapter renames hal.BtHal's L2CAP* methods onto the narrower
// TrySend/CanSend/RequestCanSendNow shapes the Session and the netif
// Bridge each expect, so both can be driven off the same HAL without
// either depending on the other's interface.
type halAdapter struct {
	h hal.BtHal
}

func (a *halAdapter) TrySend(frame []byte) (hal.SendResult, error) { return a.h.L2CAPSend(frame) }
func (a *halAdapter) CanSend() bool                                { return a.h.L2CAPCanSend() }
func (a *halAdapter) RequestCanSendNow()                           { a.h.L2CAPRequestCanSendNow() }

// Client is the package's public entry point: it wires a HAL, an embedded
// IP stack and an event sink into a running PANU connection, and exposes
// the Start/Stop/Process/State surface the application drives.
type Client struct {
	ha         hal.BtHal
	ticker     Ticker
	session    *Session
	bridge     *netif.Bridge
	supervisor *Supervisor

	stats          *stats.Stats
	lastState      State
	lastStateKnown bool
}

// NewClient wires a Client from its four collaborators. ticker may be nil,
// in which case a NewSystemTicker is used.
func NewClient(cfg *config.Config, ha hal.BtHal, ip netif.IpStack, sink eventsink.EventSink, ticker Ticker) *Client {
	if ticker == nil {
		ticker = NewSystemTicker()
	}
	adapter := &halAdapter{h: ha}
	session := NewSession(adapter)
	bridge := netif.NewBridge(cfg.TxQueueLen, adapter, ip, cfg.CompressionEnabled, cfg.ForceUncompressedTX)
	sv := NewSupervisor(cfg, session, ha, bridge, sink)

	return &Client{
		ha:         ha,
		ticker:     ticker,
		session:    session,
		bridge:     bridge,
		supervisor: sv,
	}
}

// AttachStats wires s to count every BNEP control message the session
// sends/receives and every Supervisor state it enters; the netif bridge's
// TX/RX counters are synced into s on every Process call. Passing nil is
// a no-op; the zero-value Client has no stats.
func (c *Client) AttachStats(s *stats.Stats) {
	if s == nil {
		return
	}
	c.stats = s
	c.session.SetStatsSink(s)
}

// AttachLinkConfig wires an optional host-interface configurator the
// Supervisor drives on lease acquisition and loss; netif.LinkConfig is
// the Linux implementation. Passing nil leaves host addressing to the
// embedded IP stack.
func (c *Client) AttachLinkConfig(lc LinkConfigurator) {
	c.supervisor.SetLinkConfig(lc)
}

func (c *Client) syncStats() {
	if c.stats == nil {
		return
	}
	if st := c.supervisor.State(); !c.lastStateKnown || st != c.lastState {
		c.lastState = st
		c.lastStateKnown = true
		c.stats.IncStateEntered(strings.ToLower(st.String()))
	}
	bs := c.bridge.Stats()
	c.stats.SetBridgeCounters(bs.FastPathTX, bs.SlowPathTX, bs.TXDropped, bs.RXDelivered, bs.QueueDepth)
}

// Start issues the initial L2CAP connect attempt.
func (c *Client) Start() error {
	err := c.supervisor.Start(c.ticker.NowMs())
	c.syncStats()
	return err
}

// Stop tears the connection down and returns to StateIdle.
func (c *Client) Stop() {
	c.supervisor.Stop(c.ticker.NowMs())
	c.syncStats()
}

// Deinit stops any active connection and tears down the HAL. The Client
// must not be used again afterward.
func (c *Client) Deinit() error {
	c.Stop()
	return c.ha.Deinit()
}

// State reports the current public connection state.
func (c *Client) State() State { return c.supervisor.State() }

// IsOnline reports whether the connection currently has an IP lease.
func (c *Client) IsOnline() bool { return c.supervisor.IsOnline() }

// IPInfo returns the acquired IP configuration, if any.
func (c *Client) IPInfo() (IPInfo, bool) { return c.supervisor.IPInfo() }

// OnIPAcquired and OnIPLost relay the embedded IP stack's DHCP lease
// lifecycle into the Supervisor.
func (c *Client) OnIPAcquired(info IPInfo) { c.supervisor.OnIPAcquired(c.ticker.NowMs(), info) }
func (c *Client) OnIPLost()                { c.supervisor.OnIPLost(c.ticker.NowMs()) }

// TransmitEthernet is the outbound egress hook the embedded IP stack calls
// to send one Ethernet frame; see netif.Bridge.TransmitEthernet for the
// buffer/headroom contract.
func (c *Client) TransmitEthernet(buf []byte, frameOffset int) error {
	return c.bridge.TransmitEthernet(buf, frameOffset)
}

// NextTimeoutMs reports how long the caller may wait before the next
// Process call without missing a timer-driven transition.
func (c *Client) NextTimeoutMs() uint32 { return c.supervisor.NextTimeoutMs(c.ticker.NowMs()) }

// Process drains every pending HAL event and inbound payload, applies
// them, and then evaluates time-based transitions. It is safe to call on
// a fixed poll interval, a HAL-driven wakeup, or both.
func (c *Client) Process() {
	now := c.ticker.NowMs()

drain:
	for {
		select {
		case ev := <-c.ha.Events():
			if err := c.supervisor.OnHALEvent(now, ev); err != nil {
				log.Warningf("panu: handling hal event %s: %v", ev.Kind, err)
			}
			if ev.Kind == hal.EventCanSendNow && c.session.ControlQueueClear() {
				if err := c.bridge.DrainTXQueue(); err != nil {
					log.Warningf("panu: draining tx queue: %v", err)
				}
			}
		case data := <-c.ha.Recv():
			eth, ok, err := c.supervisor.OnIncoming(now, data)
			if err != nil {
				log.Warningf("panu: handling inbound payload: %v", err)
				continue
			}
			if ok {
				c.bridge.DeliverEthernet(eth)
			}
		default:
			break drain
		}
	}

	c.supervisor.Process(now)
	c.syncStats()
}
