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

// Package netif presents a BNEP session to an embedded IP stack as a
// single Ethernet interface: a bounded outbound queue, a zero-copy fast
// path for the common case, and the inbound delivery path.
package netif

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/panu/bnep"
	"github.com/facebook/panu/panu/hal"
)

// MTU is the fixed Ethernet MTU this interface presents to the IP stack.
const MTU = 1500

// minHeadroom is the leading headroom every outbound buffer must carry so
// the fast path can prepend a BNEP header without a copy.
const minHeadroom = 15

// HalSender is the slice of BtHal the bridge needs to push encapsulated
// frames; kept narrow so tests can fake it without a full BtHal.
type HalSender interface {
	TrySend(frame []byte) (hal.SendResult, error)
	CanSend() bool
	RequestCanSendNow()
}

// IpStack is the contract the embedded IP stack side of the bridge must
// satisfy: inbound delivery plus the link/DHCP signals the Supervisor drives.
type IpStack interface {
	// DeliverInbound hands a reconstructed Ethernet frame (14-byte
	// header followed by payload) to the stack's Ethernet input.
	DeliverInbound(frame []byte)
	LinkUp(mac bnep.Address, mtu int)
	LinkDown()
	StartDHCP()
	StopDHCP()
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func getUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// deriveMAC sets bit 1 (locally administered) and clears bit 0 (unicast)
// of the first octet of a Bluetooth device address.
func deriveMAC(local bnep.Address) bnep.Address {
	mac := local
	mac[0] = (mac[0] | 0x02) &^ 0x01
	return mac
}

// Stats is a point-in-time snapshot of the bridge's counters, consumed
// by panu/stats.
type Stats struct {
	FastPathTX  uint64
	SlowPathTX  uint64
	TXDropped   uint64
	RXDelivered uint64
	QueueDepth  int
}

// Bridge presents the BNEP session to the IP stack as a single Ethernet
// interface.
type Bridge struct {
	hal HalSender
	ip  IpStack

	local  bnep.Address
	remote bnep.Address
	mac    bnep.Address

	compressionEnabled bool
	forceUncompressed  bool

	linkUp bool

	queue    [][]byte
	head     int
	tail     int
	count    int
	capacity int

	fastPathTX  uint64
	slowPathTX  uint64
	txDropped   uint64
	rxDelivered uint64
}

// NewBridge constructs a Bridge with a bounded TX queue of queueLen slots.
func NewBridge(queueLen int, ha HalSender, ip IpStack, compressionEnabled, forceUncompressed bool) *Bridge {
	return &Bridge{
		hal:                ha,
		ip:                 ip,
		compressionEnabled: compressionEnabled,
		forceUncompressed:  forceUncompressed,
		queue:              make([][]byte, queueLen),
		capacity:           queueLen,
	}
}

// MAC returns the locally administered unicast MAC address presented to
// the IP stack, valid once LinkUp has been called.
func (b *Bridge) MAC() bnep.Address { return b.mac }

// Stats returns a snapshot of the bridge's counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		FastPathTX:  b.fastPathTX,
		SlowPathTX:  b.slowPathTX,
		TXDropped:   b.txDropped,
		RXDelivered: b.rxDelivered,
		QueueDepth:  b.count,
	}
}

// LinkUp derives the MAC from local, marks the link up and notifies the
// IP stack. Implements the Supervisor's IPStackControl contract.
func (b *Bridge) LinkUp(local bnep.Address) {
	b.local = local
	b.mac = deriveMAC(local)
	b.linkUp = true
	b.ip.LinkUp(b.mac, MTU)
}

// LinkDown marks the link down and notifies the IP stack. It does not
// flush the TX queue; only Flush (driven by Stop) does that.
func (b *Bridge) LinkDown() {
	b.linkUp = false
	b.ip.LinkDown()
}

// StartDHCP and StopDHCP forward the Supervisor's DHCP control signal;
// the DHCP client itself lives inside the IP stack, out of scope here.
func (b *Bridge) StartDHCP() { b.ip.StartDHCP() }
func (b *Bridge) StopDHCP()  { b.ip.StopDHCP() }

// Flush discards every queued frame and resets the ring; Stop drives this.
func (b *Bridge) Flush() {
	for i := range b.queue {
		b.queue[i] = nil
	}
	b.head, b.tail, b.count = 0, 0, 0
}

// SetRemote records the negotiated peer address used to decide whether an
// outbound frame is addressed to the peer (and hence compressible).
func (b *Bridge) SetRemote(remote bnep.Address) { b.remote = remote }

func (b *Bridge) headerLenFor(dst, src bnep.Address) int {
	return bnep.SelectHeaderLen(dst, src, b.local, b.remote, b.compressionEnabled, b.forceUncompressed)
}

func (b *Bridge) queueEmpty() bool { return b.count == 0 }

// TransmitEthernet is the outbound egress hook: buf[frameOffset:] is a
// 14-byte Ethernet header followed by payload, and buf[:frameOffset] is
// at least minHeadroom bytes of headroom the caller reserved for this call.
func (b *Bridge) TransmitEthernet(buf []byte, frameOffset int) error {
	if frameOffset < 0 || len(buf) < frameOffset+14 {
		return fmt.Errorf("netif: malformed outbound frame")
	}
	if frameOffset < minHeadroom {
		log.Warningf("netif: outbound buffer has %d bytes headroom, want >= %d; falling back to slow path", frameOffset, minHeadroom)
	}

	var dst, src bnep.Address
	copy(dst[:], buf[frameOffset:frameOffset+6])
	copy(src[:], buf[frameOffset+6:frameOffset+12])
	etherType := getUint16(buf[frameOffset+12 : frameOffset+14])
	payload := buf[frameOffset+14:]

	headerLen := b.headerLenFor(dst, src)

	if b.queueEmpty() && b.hal.CanSend() && frameOffset >= minHeadroom {
		res, err, handled := b.tryFastPath(buf, frameOffset, headerLen)
		if handled {
			if res == hal.SendOK {
				b.fastPathTX++
				return nil
			}
			if res == hal.SendFailure {
				return err
			}
			// SendBusy falls through to the slow path below: the frame
			// was never handed to the HAL, so it's still safe to copy
			// and queue.
		}
	}

	return b.transmitSlowPath(dst, src, etherType, payload, headerLen)
}

// tryFastPath prepends the BNEP header in place and submits the result to
// the HAL, restoring the buffer's original bytes once the HAL has
// returned (success or busy) so the caller sees it unchanged. The third
// return value reports whether the fast path actually ran the send.
func (b *Bridge) tryFastPath(buf []byte, frameOffset, headerLen int) (hal.SendResult, error, bool) {
	headerStart := frameOffset + 14 - headerLen
	if headerStart < 0 {
		return 0, nil, false
	}
	var typeOctet byte
	if headerLen == bnep.GeneralHeaderLen {
		typeOctet = byte(bnep.TypeGeneralEthernet)
	} else {
		typeOctet = byte(bnep.TypeCompressedEthernet)
	}
	orig := buf[headerStart]
	buf[headerStart] = typeOctet
	res, err := b.hal.TrySend(buf[headerStart:])
	buf[headerStart] = orig
	return res, err, true
}

func (b *Bridge) transmitSlowPath(dst, src bnep.Address, etherType uint16, payload []byte, headerLen int) error {
	frame := make([]byte, headerLen+len(payload))
	var err error
	if headerLen == bnep.GeneralHeaderLen {
		_, err = bnep.BuildGeneralEthernet(frame, dst, src, etherType, payload)
	} else {
		_, err = bnep.BuildCompressedEthernet(frame, etherType, payload)
	}
	if err != nil {
		return fmt.Errorf("netif: encapsulating outbound frame: %w", err)
	}
	b.slowPathTX++

	if b.queueEmpty() && b.hal.CanSend() {
		res, sendErr := b.hal.TrySend(frame)
		switch res {
		case hal.SendOK:
			return nil
		case hal.SendBusy:
			return b.enqueue(frame)
		case hal.SendFailure:
			return sendErr
		}
	}
	return b.enqueue(frame)
}

func (b *Bridge) enqueue(frame []byte) error {
	if b.count == b.capacity {
		b.txDropped++
		return fmt.Errorf("netif: tx queue full, dropping frame")
	}
	b.queue[b.tail] = frame
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	// The HAL's can-send-now is an edge trigger; a queued frame with no
	// armed event would otherwise wait for unrelated traffic to drain it.
	b.hal.RequestCanSendNow()
	return nil
}

func (b *Bridge) pop() []byte {
	frame := b.queue[b.head]
	b.queue[b.head] = nil
	b.head = (b.head + 1) % b.capacity
	b.count--
	return frame
}

// DrainTXQueue pops queued frames to the HAL as long as it reports
// can-send and the send succeeds. Callers (the top-level can-send-now
// handler) must drain the BNEP session's control slot first.
func (b *Bridge) DrainTXQueue() error {
	for b.count > 0 {
		if !b.hal.CanSend() {
			b.hal.RequestCanSendNow()
			return nil
		}
		frame := b.queue[b.head]
		res, err := b.hal.TrySend(frame)
		switch res {
		case hal.SendOK:
			b.pop()
		case hal.SendBusy:
			b.hal.RequestCanSendNow()
			return nil
		case hal.SendFailure:
			b.pop()
			return err
		}
	}
	return nil
}

// DeliverEthernet materializes a 14-byte Ethernet header plus payload and
// hands it to the IP stack's inbound path.
func (b *Bridge) DeliverEthernet(e bnep.Ethernet) {
	frame := make([]byte, 14+len(e.Payload))
	copy(frame[0:6], e.Dst[:])
	copy(frame[6:12], e.Src[:])
	putUint16(frame[12:14], e.EtherType)
	copy(frame[14:], e.Payload)
	b.rxDelivered++
	b.ip.DeliverInbound(frame)
}
