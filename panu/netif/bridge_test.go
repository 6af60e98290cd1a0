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

package netif

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/panu/bnep"
	"github.com/facebook/panu/panu/hal"
)

type fakeHalSender struct {
	sent     [][]byte
	canSend  bool
	nextSend hal.SendResult
	reqCount int
}

func (f *fakeHalSender) TrySend(frame []byte) (hal.SendResult, error) {
	if f.nextSend == hal.SendOK {
		cp := append([]byte(nil), frame...)
		f.sent = append(f.sent, cp)
	}
	return f.nextSend, nil
}

func (f *fakeHalSender) CanSend() bool      { return f.canSend }
func (f *fakeHalSender) RequestCanSendNow() { f.reqCount++ }

type fakeIPStack struct {
	delivered [][]byte
	upMAC     bnep.Address
	upMTU     int
	ups       int
	downs     int
	dhcpStart int
	dhcpStop  int
}

func (f *fakeIPStack) DeliverInbound(frame []byte) {
	f.delivered = append(f.delivered, append([]byte(nil), frame...))
}
func (f *fakeIPStack) LinkUp(mac bnep.Address, mtu int) {
	f.ups++
	f.upMAC = mac
	f.upMTU = mtu
}
func (f *fakeIPStack) LinkDown()  { f.downs++ }
func (f *fakeIPStack) StartDHCP() { f.dhcpStart++ }
func (f *fakeIPStack) StopDHCP()  { f.dhcpStop++ }

func newTestBridge() (*Bridge, *fakeHalSender, *fakeIPStack) {
	ha := &fakeHalSender{canSend: true, nextSend: hal.SendOK}
	ip := &fakeIPStack{}
	b := NewBridge(4, ha, ip, true, false)
	return b, ha, ip
}

func TestDeriveMACSetsLocalBitClearsMulticastBit(t *testing.T) {
	local := bnep.Address{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	mac := deriveMAC(local)
	require.Equal(t, byte(0x02), mac[0])
	require.Equal(t, bnep.Address{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}, mac)
}

func TestLinkUpDerivesMACAndNotifiesStack(t *testing.T) {
	b, _, ip := newTestBridge()
	local := bnep.Address{1, 2, 3, 4, 5, 6}
	b.LinkUp(local)
	require.Equal(t, 1, ip.ups)
	require.Equal(t, MTU, ip.upMTU)
	require.Equal(t, deriveMAC(local), b.MAC())
	require.Equal(t, deriveMAC(local), ip.upMAC)
}

func TestTransmitFastPathGeneralWhenNotToPeer(t *testing.T) {
	b, ha, _ := newTestBridge()
	b.local = bnep.Address{1, 1, 1, 1, 1, 1}
	b.remote = bnep.Address{2, 2, 2, 2, 2, 2}

	buf := make([]byte, 15+14+3)
	dst := bnep.Address{9, 9, 9, 9, 9, 9}
	src := bnep.Address{8, 8, 8, 8, 8, 8}
	copy(buf[15:21], dst[:])
	copy(buf[21:27], src[:])
	buf[27], buf[28] = 0x08, 0x00
	copy(buf[29:], []byte("abc"))
	orig := append([]byte(nil), buf...)

	require.NoError(t, b.TransmitEthernet(buf, 15))
	require.Equal(t, uint64(1), b.Stats().FastPathTX)
	require.Len(t, ha.sent, 1)
	require.Equal(t, byte(bnep.TypeGeneralEthernet), ha.sent[0][0])
	require.Equal(t, dst[:], ha.sent[0][1:7])
	require.Equal(t, src[:], ha.sent[0][7:13])
	require.Equal(t, []byte("abc"), ha.sent[0][15:])
	require.Equal(t, orig, buf, "caller's buffer must be restored")
}

func TestTransmitFastPathCompressedWhenToPeer(t *testing.T) {
	b, ha, _ := newTestBridge()
	local := bnep.Address{1, 1, 1, 1, 1, 1}
	remote := bnep.Address{2, 2, 2, 2, 2, 2}
	b.local = local
	b.remote = remote

	buf := make([]byte, 15+14+3)
	copy(buf[15:21], remote[:])
	copy(buf[21:27], local[:])
	buf[27], buf[28] = 0x08, 0x06
	copy(buf[29:], []byte("arp"))
	orig := append([]byte(nil), buf...)

	require.NoError(t, b.TransmitEthernet(buf, 15))
	require.Equal(t, uint64(1), b.Stats().FastPathTX)
	require.Len(t, ha.sent, 1)
	require.Equal(t, byte(bnep.TypeCompressedEthernet), ha.sent[0][0])
	require.Equal(t, byte(0x08), ha.sent[0][1])
	require.Equal(t, byte(0x06), ha.sent[0][2])
	require.Equal(t, []byte("arp"), ha.sent[0][3:])
	require.Equal(t, orig, buf, "caller's buffer must be restored")
}

func TestTransmitFallsBackToSlowPathWhenHalBusy(t *testing.T) {
	b, ha, _ := newTestBridge()
	ha.canSend = false

	buf := make([]byte, 15+14+2)
	srcAddr := bnep.Address{1}
	dstAddr := bnep.Address{2}
	copy(buf[15:21], srcAddr[:])
	copy(buf[21:27], dstAddr[:])
	buf[27], buf[28] = 0x08, 0x00
	copy(buf[29:], []byte("hi"))

	require.NoError(t, b.TransmitEthernet(buf, 15))
	require.Equal(t, uint64(0), b.Stats().FastPathTX)
	require.Equal(t, uint64(1), b.Stats().SlowPathTX)
	require.Equal(t, 1, b.Stats().QueueDepth)
}

func TestTransmitQueueDropsWhenFull(t *testing.T) {
	b, ha, _ := newTestBridge()
	ha.canSend = false

	send := func() error {
		buf := make([]byte, 15+14)
		srcAddr := bnep.Address{1}
		dstAddr := bnep.Address{2}
		copy(buf[15:21], srcAddr[:])
		copy(buf[21:27], dstAddr[:])
		buf[27], buf[28] = 0x08, 0x00
		return b.TransmitEthernet(buf, 15)
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, send())
	}
	err := send()
	require.Error(t, err)
	require.Equal(t, uint64(1), b.Stats().TXDropped)
	require.Equal(t, 4, b.Stats().QueueDepth)
}

func TestDrainTXQueueStopsOnBusy(t *testing.T) {
	b, ha, _ := newTestBridge()
	ha.canSend = false
	buf := make([]byte, 15+14)
	srcAddr := bnep.Address{1}
	dstAddr := bnep.Address{2}
	copy(buf[15:21], srcAddr[:])
	copy(buf[21:27], dstAddr[:])
	buf[27], buf[28] = 0x08, 0x00
	require.NoError(t, b.TransmitEthernet(buf, 15))
	require.Equal(t, 1, b.Stats().QueueDepth)

	require.NoError(t, b.DrainTXQueue())
	require.Equal(t, 1, b.Stats().QueueDepth, "still can't send")

	ha.canSend = true
	require.NoError(t, b.DrainTXQueue())
	require.Equal(t, 0, b.Stats().QueueDepth)
	require.Len(t, ha.sent, 1)
}

func TestFlushDropsQueuedFrames(t *testing.T) {
	b, ha, _ := newTestBridge()
	ha.canSend = false
	buf := make([]byte, 15+14)
	srcAddr := bnep.Address{1}
	dstAddr := bnep.Address{2}
	copy(buf[15:21], srcAddr[:])
	copy(buf[21:27], dstAddr[:])
	buf[27], buf[28] = 0x08, 0x00
	require.NoError(t, b.TransmitEthernet(buf, 15))
	require.Equal(t, 1, b.Stats().QueueDepth)

	b.Flush()
	require.Equal(t, 0, b.Stats().QueueDepth)
	ha.canSend = true
	require.NoError(t, b.DrainTXQueue())
	require.Empty(t, ha.sent)
}

func TestDeliverEthernetRebuildsHeader(t *testing.T) {
	b, _, ip := newTestBridge()
	e := bnep.Ethernet{
		Dst:       bnep.Address{1, 2, 3, 4, 5, 6},
		Src:       bnep.Address{6, 5, 4, 3, 2, 1},
		EtherType: 0x0800,
		Payload:   []byte("payload"),
	}
	b.DeliverEthernet(e)
	require.Len(t, ip.delivered, 1)
	frame := ip.delivered[0]
	require.Equal(t, e.Dst[:], frame[0:6])
	require.Equal(t, e.Src[:], frame[6:12])
	require.Equal(t, byte(0x08), frame[12])
	require.Equal(t, byte(0x00), frame[13])
	require.Equal(t, []byte("payload"), frame[14:])
	require.Equal(t, uint64(1), b.Stats().RXDelivered)
}

func TestLinkDownAndDHCPControlForward(t *testing.T) {
	b, _, ip := newTestBridge()
	b.LinkDown()
	require.Equal(t, 1, ip.downs)
	b.StartDHCP()
	require.Equal(t, 1, ip.dhcpStart)
	b.StopDHCP()
	require.Equal(t, 1, ip.dhcpStop)
}
