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

// Package hal defines the capability boundary between the PANU core and
// the Bluetooth controller/host stack. Platform adapters implement BtHal;
// the core never reaches into a radio driver directly.
package hal

import "fmt"

// SendResult is the outcome of a non-blocking L2CAP send attempt.
type SendResult int

// Send outcomes.
const (
	SendOK SendResult = iota
	SendBusy
	SendFailure
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendBusy:
		return "busy"
	case SendFailure:
		return "failure"
	default:
		return fmt.Sprintf("SendResult(%d)", int(r))
	}
}

// EventKind identifies one of the four asynchronous events the HAL
// surfaces to the core.
type EventKind int

// Event kinds.
const (
	EventConnected EventKind = iota
	EventDisconnected
	EventConnectFailed
	EventCanSendNow
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventConnectFailed:
		return "ConnectFailed"
	case EventCanSendNow:
		return "CanSendNow"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single asynchronous notification from the HAL. Status is
// only meaningful for EventConnectFailed.
type Event struct {
	Kind   EventKind
	Status error
}

// Addr is a six-octet Bluetooth device address, kept independent of the
// bnep package so hal has no dependency on the wire-format codec.
type Addr [6]byte

// BtHal is the capability set a platform adapter must provide so the
// core can drive an L2CAP channel to a PAN peer. Every method here is
// non-blocking: results that require waiting are delivered later as an
// Event through the channel returned by Events.
type BtHal interface {
	// Init brings the radio stack up. Deinit tears it down.
	Init() error
	Deinit() error

	// L2CAPConnect issues a connection attempt to remote on psm with the
	// given local MTU floor. It returns immediately; the outcome arrives
	// as EventConnected or EventConnectFailed.
	L2CAPConnect(remote Addr, psm uint16, localMTU int) error
	// L2CAPDisconnect tears down any active or in-progress channel.
	L2CAPDisconnect() error

	// L2CAPSend attempts to send one complete frame without blocking.
	L2CAPSend(frame []byte) (SendResult, error)
	// L2CAPCanSend reports whether a send would currently succeed.
	L2CAPCanSend() bool
	// L2CAPRequestCanSendNow arms a one-shot EventCanSendNow for the next
	// moment the channel can accept data; it is an edge trigger, not a
	// level, and must be re-armed after each firing.
	L2CAPRequestCanSendNow()

	// Recv returns the channel the core reads inbound L2CAP payloads
	// from. Each slice is owned by the core only for the duration of its
	// processing; the HAL must not reuse the backing array concurrently.
	Recv() <-chan []byte
	// Events returns the channel the core reads asynchronous events from.
	Events() <-chan Event

	// LocalBDAddr returns the radio's own Bluetooth device address.
	LocalBDAddr() (Addr, error)
	// GetTickMs returns a monotonic millisecond counter; it may wrap a
	// 32-bit value and callers must compare it with unsigned arithmetic.
	GetTickMs() uint32
}
