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
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/panu/bnep"
	"github.com/facebook/panu/panu/config"
	"github.com/facebook/panu/panu/eventsink"
	"github.com/facebook/panu/panu/hal"
	"github.com/facebook/panu/panu/netif"
)

// State is the Supervisor's public connection lifecycle state.
type State int

// Supervisor states. Scanning and Stalled are reserved: named for API
// stability, never entered.
const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateBnepSetup
	StateDhcp
	StateOnline
	StateStalled
	StateReconnecting
	StateError
)

// StateToString renders a State as its public name.
func StateToString(s State) string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateConnecting:
		return "Connecting"
	case StateBnepSetup:
		return "BnepSetup"
	case StateDhcp:
		return "Dhcp"
	case StateOnline:
		return "Online"
	case StateStalled:
		return "Stalled"
	case StateReconnecting:
		return "Reconnecting"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) String() string { return StateToString(s) }

// IPInfo is the four 32-bit words describing an acquired IPv4
// configuration. Present only while Online.
type IPInfo struct {
	Address uint32
	Netmask uint32
	Gateway uint32
	DNS     uint32
}

// IPStackControl is the narrow slice of the embedded IP stack the
// Supervisor drives directly: link state and DHCP start/stop. Inbound
// Ethernet delivery and outbound encapsulation live in panu/netif, not here.
type IPStackControl interface {
	LinkUp(local bnep.Address)
	LinkDown()
	StartDHCP()
	StopDHCP()
	// Flush discards any queued outbound frames, called on stop.
	Flush()
	// SetRemote records the negotiated peer address, so outbound header
	// compression can tell a frame addressed to the peer from one that
	// isn't.
	SetRemote(remote bnep.Address)
}

// LinkConfigurator mirrors the acquired lease onto a host network
// interface once the connection is Online: MTU, administrative up/down,
// and the lease address itself. Optional; nil means no host interface is
// managed and the embedded IP stack owns addressing end to end.
// netif.LinkConfig is the Linux implementation.
type LinkConfigurator interface {
	SetMTU(mtu int) error
	SetLinkUp() error
	SetLinkDown() error
	ApplyLease(addr uint32) error
	RemoveLease(addr uint32) error
}

// Supervisor drives a Session and an IPStackControl through the
// connection lifecycle, owning timers, retry counters and backoff, and
// reporting through a single EventSink.
type Supervisor struct {
	cfg     *config.Config
	session *Session
	ha      hal.BtHal
	ip      IPStackControl
	sink    eventsink.EventSink
	link    LinkConfigurator

	state        State
	lastNotified State

	stateEnterTime    uint32
	lastActionTime    uint32
	reconnectDelay    uint32
	reconnectAttempts int
	setupRetries      int

	backoff *backoff

	ipInfo IPInfo
	hasIP  bool
}

// NewSupervisor constructs a Supervisor in StateIdle.
func NewSupervisor(cfg *config.Config, session *Session, ha hal.BtHal, ip IPStackControl, sink eventsink.EventSink) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		session:      session,
		ha:           ha,
		ip:           ip,
		sink:         sink,
		state:        StateIdle,
		lastNotified: StateIdle,
		backoff:      newBackoff(cfg.ReconnectIntervalMs, cfg.ReconnectMaxMs),
	}
}

// SetLinkConfig wires an optional host-interface configurator driven on
// lease acquisition and loss.
func (sv *Supervisor) SetLinkConfig(lc LinkConfigurator) { sv.link = lc }

// State reports the current public state.
func (sv *Supervisor) State() State { return sv.state }

// IsOnline reports whether the Supervisor is in StateOnline.
func (sv *Supervisor) IsOnline() bool { return sv.state == StateOnline }

// IPInfo returns the acquired IP configuration, and whether one is
// currently present (cleared on disconnect or stop).
func (sv *Supervisor) IPInfo() (IPInfo, bool) { return sv.ipInfo, sv.hasIP }

func (sv *Supervisor) setState(now uint32, s State) {
	if sv.state == s {
		return
	}
	sv.state = s
	sv.stateEnterTime = now
}

// Start issues an L2CAP connect and transitions Idle -> Connecting. It is
// a no-op outside StateIdle.
func (sv *Supervisor) Start(now uint32) error {
	if sv.state != StateIdle {
		return fmt.Errorf("panu: start called outside Idle (state=%s)", sv.state)
	}
	sv.backoff.reset()
	sv.reconnectDelay = 0
	sv.reconnectAttempts = 0
	err := sv.beginConnect(now)
	sv.maybeNotifyStateChanged()
	return err
}

func (sv *Supervisor) beginConnect(now uint32) error {
	sv.setState(now, StateConnecting)
	local, err := sv.ha.LocalBDAddr()
	if err != nil {
		return fmt.Errorf("panu: reading local address: %w", err)
	}
	sv.session.SetLocal(bnep.Address(local))
	sv.session.SetRemote(bnep.Address(sv.cfg.RemoteAddr))
	sv.ip.SetRemote(bnep.Address(sv.cfg.RemoteAddr))
	remote := hal.Addr(bnep.Address(sv.cfg.RemoteAddr))
	if err := sv.ha.L2CAPConnect(remote, bnep.PSM, config.MinL2CAPMTU); err != nil {
		return fmt.Errorf("panu: l2cap connect: %w", err)
	}
	return nil
}

// Stop is the universal cancellation verb: it tears down the channel,
// resets the session, frees queued buffers and returns to Idle. It emits
// exactly one Disconnected notification if the Supervisor had been in any
// non-Idle state.
func (sv *Supervisor) Stop(now uint32) {
	wasNonIdle := sv.state != StateIdle
	_ = sv.ha.L2CAPDisconnect()
	sv.session.OnL2CAPDisconnected()
	if wasNonIdle {
		sv.ip.StopDHCP()
		sv.ip.LinkDown()
		sv.releaseLease()
		sv.downLink()
	}
	sv.ip.Flush()
	sv.hasIP = false
	sv.ipInfo = IPInfo{}
	sv.setState(now, StateIdle)
	if wasNonIdle {
		sv.notify(eventsink.Disconnected, nil)
	}
	sv.maybeNotifyStateChanged()
}

// budgetOK reports whether the attempt just counted still fits
// MaxReconnectAttempts (0 = unlimited).
func (sv *Supervisor) budgetOK() bool {
	return sv.cfg.MaxReconnectAttempts == 0 || sv.reconnectAttempts <= sv.cfg.MaxReconnectAttempts
}

// scheduleReconnect applies the backoff formula and transitions to
// Reconnecting, or straight to Error when auto-reconnect is off. The
// attempt itself is counted, and the budget checked, when the retry
// fires in Process.
func (sv *Supervisor) scheduleReconnect(now uint32) {
	if !sv.cfg.AutoReconnect {
		sv.setState(now, StateError)
		sv.maybeNotifyStateChanged()
		return
	}
	sv.reconnectDelay = sv.backoff.next()
	sv.lastActionTime = now
	sv.setState(now, StateReconnecting)
	sv.maybeNotifyStateChanged()
}

func (sv *Supervisor) onSetupSuccess(now uint32) {
	sv.backoff.reset()
	sv.reconnectDelay = 0
	sv.reconnectAttempts = 0
	sv.ip.LinkUp(sv.session.Local())
	sv.ip.StartDHCP()
	sv.setState(now, StateDhcp)
	sv.notify(eventsink.Connected, nil)
	sv.maybeNotifyStateChanged()
}

// OnIPAcquired transitions Dhcp -> Online, emitting a state-changed
// notification immediately after processing. A renewal arriving while
// already Online refreshes the stored lease in place.
func (sv *Supervisor) OnIPAcquired(now uint32, info IPInfo) {
	if sv.state != StateDhcp && sv.state != StateOnline {
		log.Debugf("panu: ignoring ip acquisition outside Dhcp (state=%s)", sv.state)
		return
	}
	if sv.hasIP && sv.ipInfo.Address != info.Address {
		sv.releaseLease()
	}
	sv.ipInfo = info
	sv.hasIP = true
	sv.configureLink(info)
	sv.setState(now, StateOnline)
	sv.notify(eventsink.IPAcquired, nil)
	sv.maybeNotifyStateChanged()
}

// configureLink mirrors a fresh lease onto the host interface, if one is
// managed. Failures are logged, not propagated: the PAN link itself is
// up regardless of what the host-side netdev will accept.
func (sv *Supervisor) configureLink(info IPInfo) {
	if sv.link == nil {
		return
	}
	if err := sv.link.SetMTU(netif.MTU); err != nil {
		log.Warningf("panu: setting host interface mtu: %v", err)
	}
	if err := sv.link.SetLinkUp(); err != nil {
		log.Warningf("panu: bringing host interface up: %v", err)
	}
	if err := sv.link.ApplyLease(info.Address); err != nil {
		log.Warningf("panu: applying lease to host interface: %v", err)
	}
}

// releaseLease removes the currently applied lease address from the host
// interface; callers clear hasIP/ipInfo themselves afterward.
func (sv *Supervisor) releaseLease() {
	if sv.link == nil || !sv.hasIP {
		return
	}
	if err := sv.link.RemoveLease(sv.ipInfo.Address); err != nil {
		log.Warningf("panu: removing lease from host interface: %v", err)
	}
}

func (sv *Supervisor) downLink() {
	if sv.link == nil {
		return
	}
	if err := sv.link.SetLinkDown(); err != nil {
		log.Warningf("panu: bringing host interface down: %v", err)
	}
}

// OnIPLost transitions Online -> Dhcp and restarts DHCP.
func (sv *Supervisor) OnIPLost(now uint32) {
	if sv.state != StateOnline {
		return
	}
	sv.releaseLease()
	sv.hasIP = false
	sv.ipInfo = IPInfo{}
	sv.ip.StartDHCP()
	sv.setState(now, StateDhcp)
	sv.notify(eventsink.IPLost, nil)
	sv.maybeNotifyStateChanged()
}

// OnHALEvent applies one HAL event to the current state.
func (sv *Supervisor) OnHALEvent(now uint32, ev hal.Event) error {
	switch ev.Kind {
	case hal.EventConnected:
		if sv.state != StateConnecting {
			log.Debugf("panu: ignoring Connected event outside Connecting (state=%s)", sv.state)
			return nil
		}
		sv.setupRetries = 0
		sv.setState(now, StateBnepSetup)
		sv.maybeNotifyStateChanged()
		if err := sv.session.OnL2CAPConnected(); err != nil {
			return fmt.Errorf("panu: bnep setup: %w", err)
		}
		return nil

	case hal.EventDisconnected:
		return sv.onLinkDown(now)

	case hal.EventConnectFailed:
		log.Warningf("panu: l2cap connect failed: %v", ev.Status)
		return sv.onLinkDown(now)

	case hal.EventCanSendNow:
		// The control slot drains first; the Client's process loop
		// drains the netif TX queue once the slot is clear.
		if _, err := sv.session.DrainControlTxQueue(); err != nil {
			return fmt.Errorf("panu: draining control queue: %w", err)
		}
		return nil
	}
	return nil
}

func (sv *Supervisor) onLinkDown(now uint32) error {
	if sv.state == StateIdle || sv.state == StateError {
		return nil
	}
	if sv.state == StateDhcp || sv.state == StateOnline {
		// Link state mirrors "BNEP connected": the netif side only
		// learned about the link once setup completed.
		sv.ip.StopDHCP()
		sv.ip.LinkDown()
		sv.releaseLease()
		sv.downLink()
	}
	sv.session.OnL2CAPDisconnected()
	sv.hasIP = false
	sv.ipInfo = IPInfo{}
	sv.scheduleReconnect(now)
	return nil
}

// OnIncoming hands one inbound L2CAP payload to the session and applies
// whatever the session reports.
func (sv *Supervisor) OnIncoming(now uint32, data []byte) (bnep.Ethernet, bool, error) {
	in, err := sv.session.HandleIncoming(data)
	if err != nil {
		return bnep.Ethernet{}, false, err
	}
	switch in.Kind {
	case IncomingSetupResult:
		if sv.state != StateBnepSetup {
			return bnep.Ethernet{}, false, nil
		}
		if in.SetupCode == bnep.ResponseSuccess {
			sv.onSetupSuccess(now)
		} else {
			log.Warningf("panu: bnep setup rejected, code=0x%04x", in.SetupCode)
			if err := sv.ha.L2CAPDisconnect(); err != nil {
				log.Warningf("panu: l2cap disconnect after setup rejection: %v", err)
			}
			sv.session.OnL2CAPDisconnected()
			sv.scheduleReconnect(now)
		}
		return bnep.Ethernet{}, false, nil
	case IncomingEthernet:
		return in.Ethernet, true, nil
	default:
		return bnep.Ethernet{}, false, nil
	}
}

// Process evaluates time-based transitions against now. It must be
// called periodically and is safe (a documented no-op in most states) to
// call on every event for responsiveness.
func (sv *Supervisor) Process(now uint32) {
	switch sv.state {
	case StateConnecting:
		if deadlinePassed(sv.stateEnterTime, config.L2CAPConnectTimeoutMs, now) {
			log.Warningf("panu: l2cap connect timed out")
			_ = sv.ha.L2CAPDisconnect()
			sv.scheduleReconnect(now)
		}
	case StateBnepSetup:
		if deadlinePassed(sv.stateEnterTime, config.BNEPSetupTimeoutMs, now) {
			if sv.setupRetries < config.BNEPSetupRetries {
				sv.setupRetries++
				sv.stateEnterTime = now
				if err := sv.session.OnL2CAPConnected(); err != nil {
					log.Warningf("panu: resending bnep setup request: %v", err)
				}
			} else {
				log.Warningf("panu: bnep setup retries exhausted")
				_ = sv.ha.L2CAPDisconnect()
				sv.session.OnL2CAPDisconnected()
				sv.scheduleReconnect(now)
			}
		}
	case StateDhcp:
		if deadlinePassed(sv.stateEnterTime, config.DHCPTimeoutMs, now) {
			log.Warningf("panu: dhcp still pending after %dms, relying on ip stack retry", config.DHCPTimeoutMs)
			sv.stateEnterTime = now
		}
	case StateReconnecting:
		if deadlinePassed(sv.lastActionTime, sv.reconnectDelay, now) {
			sv.reconnectAttempts++
			if !sv.budgetOK() {
				log.Warningf("panu: reconnect attempt budget exhausted after %d attempts", sv.reconnectAttempts-1)
				sv.setState(now, StateError)
			} else if err := sv.beginConnect(now); err != nil {
				log.Warningf("panu: reconnect attempt failed to start: %v", err)
				sv.scheduleReconnect(now)
			}
		}
	}
	sv.maybeNotifyStateChanged()
}

// NextTimeoutMs returns the caller's recommended sleep, in milliseconds,
// before the next Process call.
func (sv *Supervisor) NextTimeoutMs(now uint32) uint32 {
	const noTimeout = math.MaxUint32

	var remain uint32 = noTimeout
	switch sv.state {
	case StateConnecting:
		remain = remainingMs(sv.stateEnterTime, config.L2CAPConnectTimeoutMs, now)
	case StateBnepSetup:
		remain = remainingMs(sv.stateEnterTime, config.BNEPSetupTimeoutMs, now)
	case StateDhcp:
		remain = remainingMs(sv.stateEnterTime, config.DHCPTimeoutMs, now)
	case StateReconnecting:
		remain = remainingMs(sv.lastActionTime, sv.reconnectDelay, now)
	}

	switch sv.state {
	case StateConnecting, StateBnepSetup, StateDhcp, StateReconnecting:
		if remain > 50 {
			remain = 50
		}
	}
	return remain
}

func remainingMs(base, timeout, now uint32) uint32 {
	elapsed := elapsedMs(base, now)
	if elapsed >= timeout {
		return 0
	}
	return timeout - elapsed
}

func (sv *Supervisor) notify(kind eventsink.Kind, err error) {
	if sv.sink == nil {
		return
	}
	sv.sink.Notify(eventsink.Notification{Kind: kind, State: sv.state, Err: err})
}

func (sv *Supervisor) maybeNotifyStateChanged() {
	if sv.state == sv.lastNotified {
		return
	}
	sv.lastNotified = sv.state
	sv.notify(eventsink.StateChanged, nil)
	if sv.state == StateError {
		sv.notify(eventsink.Error, fmt.Errorf("panu: entered Error state"))
	}
}
