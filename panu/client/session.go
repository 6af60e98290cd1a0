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

	log "github.com/sirupsen/logrus"

	"github.com/facebook/panu/bnep"
	"github.com/facebook/panu/panu/hal"
)

// SessionState is the BNEP channel's own state, distinct from (and owned
// within) the Supervisor's broader connection lifecycle.
type SessionState int

// Session states.
const (
	SessionClosed SessionState = iota
	// SessionWaitForRequest is reserved: this role never accepts an
	// incoming setup request, so the session never enters it.
	SessionWaitForRequest
	SessionWaitForResponse
	SessionConnected
)

func (s SessionState) String() string {
	switch s {
	case SessionClosed:
		return "Closed"
	case SessionWaitForRequest:
		return "WaitForRequest"
	case SessionWaitForResponse:
		return "WaitForResponse"
	case SessionConnected:
		return "Connected"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// FrameSender is the narrow slice of BtHal the session needs to push its
// own control frames, kept separate from the full hal.BtHal contract so
// the session can be tested without a complete HAL fake.
type FrameSender interface {
	TrySend(frame []byte) (hal.SendResult, error)
	RequestCanSendNow()
}

// ControlStatsSink is the narrow counter interface the session reports
// control-message traffic and setup outcomes through; nil is a valid
// Session.stats (no-op).
type ControlStatsSink interface {
	IncControlSent(name string)
	IncControlRecv(name string)
	IncSetupSuccess()
	IncSetupFailure()
}

func controlStatName(c bnep.ControlType) string {
	switch c {
	case bnep.ControlCommandNotUnderstood:
		return "command_not_understood"
	case bnep.ControlSetupConnectionRequest:
		return "setup_connection_request"
	case bnep.ControlSetupConnectionResponse:
		return "setup_connection_response"
	case bnep.ControlFilterNetTypeSet:
		return "filter_net_type_set"
	case bnep.ControlFilterNetTypeResponse:
		return "filter_net_type_response"
	case bnep.ControlFilterMultiAddrSet:
		return "filter_multi_addr_set"
	case bnep.ControlFilterMultiAddrResponse:
		return "filter_multi_addr_response"
	default:
		return ""
	}
}

// pendingControlCap is the largest control frame the pending retry slot
// must hold: a Setup Connection Request is 7 bytes, any response or
// filter reply is 4, Command Not Understood is 3. 16 bytes covers all of
// them with headroom for future control types.
const pendingControlCap = 16

// IncomingKind classifies what handleIncoming found in an inbound packet.
type IncomingKind int

// Incoming classifications.
const (
	IncomingNone IncomingKind = iota
	IncomingSetupResult
	IncomingEthernet
)

// Incoming is the result of classifying and partially handling one
// inbound L2CAP payload. Ethernet.Payload, when set, aliases the buffer
// passed to HandleIncoming and is valid only for the duration of the call.
type Incoming struct {
	Kind      IncomingKind
	SetupCode uint16
	Ethernet  bnep.Ethernet
}

// Session owns the BNEP channel state, local/remote addresses, and the
// single pending-control retry slot.
type Session struct {
	state  SessionState
	local  bnep.Address
	remote bnep.Address

	sender FrameSender
	stats  ControlStatsSink

	pending     [pendingControlCap]byte
	pendingLen  int
	pendingType bnep.ControlType
}

// NewSession returns a Session in SessionClosed, sending control frames
// through sender.
func NewSession(sender FrameSender) *Session {
	return &Session{sender: sender}
}

// SetStatsSink wires in the counter sink control-message traffic is
// reported through. Passing nil disables counting.
func (s *Session) SetStatsSink(sink ControlStatsSink) { s.stats = sink }

// SetLocal records the radio's own address, substituted into compressed
// Ethernet parses and used to derive the netif's MAC.
func (s *Session) SetLocal(addr bnep.Address) { s.local = addr }

// SetRemote records the negotiated peer's address.
func (s *Session) SetRemote(addr bnep.Address) { s.remote = addr }

// Local and Remote report the addresses set via SetLocal/SetRemote.
func (s *Session) Local() bnep.Address  { return s.local }
func (s *Session) Remote() bnep.Address { return s.remote }

// State reports the current BNEP channel state.
func (s *Session) State() SessionState { return s.state }

// IsConnected reports whether Ethernet frames are currently accepted.
func (s *Session) IsConnected() bool { return s.state == SessionConnected }

// OnL2CAPConnected transitions to WaitForResponse and sends the Setup
// Connection Request. A busy HAL is not an error here: the frame is
// stashed in the pending slot and a can-send-now event is requested; the
// Supervisor's setup timeout drives the retry if the busy condition
// persists.
func (s *Session) OnL2CAPConnected() error {
	s.state = SessionWaitForResponse
	n, err := bnep.BuildSetupRequest(s.pending[:], bnep.UUIDNAP, bnep.UUIDPANU)
	if err != nil {
		return fmt.Errorf("bnep: building setup request: %w", err)
	}
	s.pendingLen = n
	s.pendingType = bnep.ControlSetupConnectionRequest
	return s.flushPending()
}

// OnL2CAPDisconnected resets the session to Closed and drops any pending
// control frame; a stale retry for a channel that no longer exists would
// otherwise be sent into nothing once a new channel is established.
func (s *Session) OnL2CAPDisconnected() {
	s.state = SessionClosed
	s.pendingLen = 0
}

// flushPending attempts to send whatever is in the pending slot. Busy
// requests a can-send-now event; failure propagates to the caller.
func (s *Session) flushPending() error {
	if s.pendingLen == 0 {
		return nil
	}
	res, err := s.sender.TrySend(s.pending[:s.pendingLen])
	if err != nil {
		return fmt.Errorf("bnep: sending control frame: %w", err)
	}
	switch res {
	case hal.SendOK:
		s.pendingLen = 0
		if s.stats != nil {
			if name := controlStatName(s.pendingType); name != "" {
				s.stats.IncControlSent(name)
			}
		}
	case hal.SendBusy:
		s.sender.RequestCanSendNow()
	case hal.SendFailure:
		s.pendingLen = 0
		return fmt.Errorf("bnep: control frame send failed")
	}
	return nil
}

// ControlQueueClear reports whether the pending control slot is empty, so
// the caller knows queued Ethernet frames may go out without jumping the
// control frame's priority.
func (s *Session) ControlQueueClear() bool { return s.pendingLen == 0 }

// DrainControlTxQueue retries the pending control frame, if any. It
// returns true once the slot is clear (including when it was already
// empty). It must run before any queued Ethernet frame is sent.
func (s *Session) DrainControlTxQueue() (bool, error) {
	if err := s.flushPending(); err != nil {
		return false, err
	}
	return s.pendingLen == 0, nil
}

// stashControl overwrites the pending slot with a newly built control
// frame and attempts to send it immediately. Overwriting an occupied slot
// is fine: the protocol never has two outstanding PANU-initiated control
// frames, so a newer one supersedes whatever was queued.
func (s *Session) stashControl(replyType bnep.ControlType, n int, err error) error {
	if err != nil {
		return fmt.Errorf("bnep: building control reply: %w", err)
	}
	s.pendingLen = n
	s.pendingType = replyType
	return s.flushPending()
}

// HandleIncoming classifies an inbound L2CAP payload and applies the
// control-message policy. Control messages the session can
// answer on its own (filter requests, unknown commands, incoming setup
// requests this role must refuse) are answered here and reported as
// IncomingNone. Setup responses and Ethernet frames are reported back for
// the Supervisor or netif bridge to act on.
func (s *Session) HandleIncoming(data []byte) (Incoming, error) {
	h, err := bnep.ParseHeader(data)
	if err != nil {
		log.Warningf("bnep: dropping unparseable packet: %v", err)
		return Incoming{}, nil //nolint:nilerr
	}
	if h.PacketType != bnep.TypeControl {
		if s.state != SessionConnected {
			log.Debugf("bnep: dropping ethernet frame outside Connected (state=%s)", s.state)
			return Incoming{}, nil
		}
		e, err := bnep.ParseEthernet(data, s.local, s.remote)
		if err != nil {
			log.Warningf("bnep: dropping unparseable ethernet frame: %v", err)
			return Incoming{}, nil //nolint:nilerr
		}
		return Incoming{Kind: IncomingEthernet, Ethernet: e}, nil
	}
	return s.handleControl(data)
}

func (s *Session) handleControl(data []byte) (Incoming, error) {
	ctrl, _, err := bnep.ParseControlType(data)
	if err != nil {
		log.Warningf("bnep: dropping malformed control packet: %v", err)
		return Incoming{}, nil //nolint:nilerr
	}
	if s.stats != nil {
		if name := controlStatName(ctrl); name != "" {
			s.stats.IncControlRecv(name)
		}
	}
	switch ctrl {
	case bnep.ControlSetupConnectionRequest:
		// PANU never accepts an incoming setup; always refuse.
		n, berr := bnep.BuildSetupResponse(s.pending[:], bnep.ResponseConnNotAllowed)
		return Incoming{}, s.stashControl(bnep.ControlSetupConnectionResponse, n, berr)

	case bnep.ControlSetupConnectionResponse:
		if s.state != SessionWaitForResponse {
			log.Debugf("bnep: ignoring setup response outside WaitForResponse (state=%s)", s.state)
			return Incoming{}, nil
		}
		code, perr := bnep.ParseSetupResponse(data)
		if perr != nil {
			log.Warningf("bnep: dropping malformed setup response: %v", perr)
			return Incoming{}, nil //nolint:nilerr
		}
		if code == bnep.ResponseSuccess {
			s.state = SessionConnected
			if s.stats != nil {
				s.stats.IncSetupSuccess()
			}
		} else if s.stats != nil {
			s.stats.IncSetupFailure()
		}
		return Incoming{Kind: IncomingSetupResult, SetupCode: code}, nil

	case bnep.ControlFilterNetTypeSet:
		n, berr := bnep.BuildFilterNetTypeResponse(s.pending[:], bnep.FilterUnsupported)
		return Incoming{}, s.stashControl(bnep.ControlFilterNetTypeResponse, n, berr)

	case bnep.ControlFilterMultiAddrSet:
		n, berr := bnep.BuildFilterMultiAddrResponse(s.pending[:], bnep.FilterUnsupported)
		return Incoming{}, s.stashControl(bnep.ControlFilterMultiAddrResponse, n, berr)

	case bnep.ControlCommandNotUnderstood:
		log.Debugf("bnep: peer reported command not understood")
		return Incoming{}, nil

	default:
		n, berr := bnep.BuildCommandNotUnderstood(s.pending[:], ctrl)
		return Incoming{}, s.stashControl(bnep.ControlCommandNotUnderstood, n, berr)
	}
}
