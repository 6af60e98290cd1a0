//go:build linux

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

package hal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	log "github.com/sirupsen/logrus"
)

// recvBufSize is sized for the general Ethernet worst case: a 15-byte
// BNEP header plus a full 1500-byte Ethernet payload.
const recvBufSize = 1600

// LinuxL2CAPHal implements BtHal over a BlueZ AF_BLUETOOTH/BTPROTO_L2CAP
// SOCK_SEQPACKET socket. It owns exactly one L2CAP channel at a time, to
// exactly one remote peer, matching the PANU role's single-link scope.
type LinuxL2CAPHal struct {
	hciDevice int

	mu   sync.Mutex
	fd   int
	open bool

	recvCh  chan []byte
	eventCh chan Event
	stopCh  chan struct{}
	wg      sync.WaitGroup

	start time.Time
}

// NewLinuxL2CAPHal returns a LinuxL2CAPHal bound to the given HCI
// controller index (0 for hci0, the typical single-adapter case).
func NewLinuxL2CAPHal(hciDevice int) *LinuxL2CAPHal {
	return &LinuxL2CAPHal{
		hciDevice: hciDevice,
		fd:        -1,
		recvCh:    make(chan []byte, 32),
		eventCh:   make(chan Event, 8),
		start:     time.Now(),
	}
}

// Init resets the tick epoch; the controller itself needs no setup until
// a connect is requested.
func (l *LinuxL2CAPHal) Init() error {
	l.start = time.Now()
	return nil
}

// Deinit tears down any open channel.
func (l *LinuxL2CAPHal) Deinit() error {
	return l.L2CAPDisconnect()
}

// LocalBDAddr reads the controller's own address from sysfs, which BlueZ
// keeps current without requiring an HCI management socket.
func (l *LinuxL2CAPHal) LocalBDAddr() (Addr, error) {
	path := fmt.Sprintf("/sys/class/bluetooth/hci%d/address", l.hciDevice)
	raw, err := os.ReadFile(path)
	if err != nil {
		return Addr{}, fmt.Errorf("hal: reading local address from %s: %w", path, err)
	}
	return parseBDAddr(strings.TrimSpace(string(raw)))
}

func parseBDAddr(s string) (Addr, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return Addr{}, fmt.Errorf("hal: malformed BD address %q", s)
	}
	var addr Addr
	// BlueZ prints the address most-significant-octet first; L2CAP
	// sockaddrs and our wire format both want it least-significant first.
	for i := 0; i < 6; i++ {
		var b int
		if _, err := fmt.Sscanf(parts[5-i], "%02x", &b); err != nil {
			return Addr{}, fmt.Errorf("hal: malformed BD address %q: %w", s, err)
		}
		addr[i] = byte(b)
	}
	return addr, nil
}

// L2CAPConnect opens a new SEQPACKET L2CAP socket and connects it to
// remote on the given PSM. The connect itself runs synchronously; on
// success a reader goroutine starts delivering inbound payloads and
// EventConnected is emitted, on failure EventConnectFailed is.
func (l *LinuxL2CAPHal) L2CAPConnect(remote Addr, psm uint16, localMTU int) error {
	l.mu.Lock()
	if l.open {
		l.mu.Unlock()
		return fmt.Errorf("hal: L2CAP channel already open")
	}
	l.mu.Unlock()

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		l.notify(Event{Kind: EventConnectFailed, Status: fmt.Errorf("hal: opening L2CAP socket: %w", err)})
		return fmt.Errorf("hal: opening L2CAP socket: %w", err)
	}

	raddr := &unix.SockaddrL2{PSM: psm, Addr: remote}
	if err := unix.Connect(fd, raddr); err != nil {
		unix.Close(fd)
		wrapped := fmt.Errorf("hal: connecting to %x on PSM %#x: %w", remote, psm, err)
		l.notify(Event{Kind: EventConnectFailed, Status: wrapped})
		return wrapped
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		wrapped := fmt.Errorf("hal: setting L2CAP socket nonblocking: %w", err)
		l.notify(Event{Kind: EventConnectFailed, Status: wrapped})
		return wrapped
	}

	l.mu.Lock()
	l.fd = fd
	l.open = true
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	l.notify(Event{Kind: EventConnected})

	l.wg.Add(1)
	go l.recvLoop(fd, l.stopCh)
	return nil
}

// L2CAPDisconnect closes the channel, if any, and stops its reader.
func (l *LinuxL2CAPHal) L2CAPDisconnect() error {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return nil
	}
	fd := l.fd
	stop := l.stopCh
	l.open = false
	l.fd = -1
	l.mu.Unlock()

	close(stop)
	err := unix.Close(fd)
	l.wg.Wait()
	if err != nil {
		return fmt.Errorf("hal: closing L2CAP socket: %w", err)
	}
	return nil
}

// L2CAPSend writes one complete encapsulated frame to the channel.
func (l *LinuxL2CAPHal) L2CAPSend(frame []byte) (SendResult, error) {
	l.mu.Lock()
	fd, open := l.fd, l.open
	l.mu.Unlock()
	if !open {
		return SendFailure, fmt.Errorf("hal: L2CAP channel not open")
	}

	err := unix.Send(fd, frame, 0)
	if err == nil {
		return SendOK, nil
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return SendBusy, nil
	}
	return SendFailure, fmt.Errorf("hal: sending on L2CAP channel: %w", err)
}

// L2CAPCanSend polls the socket for write-readiness.
func (l *LinuxL2CAPHal) L2CAPCanSend() bool {
	l.mu.Lock()
	fd, open := l.fd, l.open
	l.mu.Unlock()
	if !open {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLOUT != 0
}

// L2CAPRequestCanSendNow arranges for an EventCanSendNow once the socket
// becomes writable, polling in the background since BlueZ SEQPACKET
// sockets have no native writable-notification mechanism.
func (l *LinuxL2CAPHal) L2CAPRequestCanSendNow() {
	l.mu.Lock()
	fd, open, stop := l.fd, l.open, l.stopCh
	l.mu.Unlock()
	if !open {
		return
	}
	go func() {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		for {
			select {
			case <-stop:
				return
			default:
			}
			n, err := unix.Poll(fds, 100)
			if err != nil {
				return
			}
			if n > 0 && fds[0].Revents&unix.POLLOUT != 0 {
				l.notify(Event{Kind: EventCanSendNow})
				return
			}
		}
	}()
}

// Recv returns the channel of inbound BNEP payloads.
func (l *LinuxL2CAPHal) Recv() <-chan []byte { return l.recvCh }

// Events returns the channel of connection lifecycle events.
func (l *LinuxL2CAPHal) Events() <-chan Event { return l.eventCh }

// GetTickMs returns milliseconds since Init, wrapping in uint32.
func (l *LinuxL2CAPHal) GetTickMs() uint32 {
	return uint32(time.Since(l.start).Milliseconds())
}

func (l *LinuxL2CAPHal) notify(ev Event) {
	select {
	case l.eventCh <- ev:
	default:
		log.Warningf("hal: event channel full, dropping %s", ev.Kind)
	}
}

func (l *LinuxL2CAPHal) recvLoop(fd int, stop chan struct{}) {
	defer l.wg.Done()
	buf := make([]byte, recvBufSize)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
				unix.Poll(fds, 100)
				continue
			}
			select {
			case <-stop:
			default:
				l.notify(Event{Kind: EventDisconnected, Status: fmt.Errorf("hal: reading L2CAP channel: %w", err)})
			}
			return
		}
		if n == 0 {
			l.notify(Event{Kind: EventDisconnected})
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case l.recvCh <- cp:
		default:
			log.Warningf("hal: recv channel full, dropping %d-byte payload", n)
		}
	}
}
