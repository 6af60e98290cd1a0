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

package netif

import (
	"fmt"
	"net"

	"github.com/jsimonetti/rtnetlink"
	"github.com/jsimonetti/rtnetlink/rtnl"
	log "github.com/sirupsen/logrus"
)

const bitsInByte = 8

const ipv4MaskBits = 32
const ipv4Len = net.IPv4len * bitsInByte

// LinkConfig pushes the addresses a DHCP lease produces, and the netdev
// up/down/MTU transitions the Supervisor drives, onto a real Linux
// network interface via rtnetlink. It is the production counterpart to a
// test IpStack: something upstream still has to own the tun/tap device
// whose name is passed in here.
type LinkConfig struct {
	ifaceName string
}

// NewLinkConfig returns a LinkConfig for the named interface (typically a
// tun/tap device already created and handed to this process).
func NewLinkConfig(ifaceName string) *LinkConfig {
	return &LinkConfig{ifaceName: ifaceName}
}

func (l *LinkConfig) iface() (*net.Interface, error) {
	iface, err := net.InterfaceByName(l.ifaceName)
	if err != nil {
		return nil, fmt.Errorf("netif: looking up interface %s: %w", l.ifaceName, err)
	}
	return iface, nil
}

// SetMTU sets the interface's MTU to mtu (the Supervisor passes the
// bridge's fixed MTU).
func (l *LinkConfig) SetMTU(mtu int) error {
	iface, err := l.iface()
	if err != nil {
		return err
	}
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return fmt.Errorf("netif: dialing rtnetlink: %w", err)
	}
	defer conn.Close()

	rx, err := conn.Conn.Link.Get(uint32(iface.Index))
	if err != nil {
		return fmt.Errorf("netif: setting MTU on %s: %w", l.ifaceName, err)
	}
	tx := &rtnetlink.LinkMessage{
		Family: rx.Family,
		Type:   rx.Type,
		Index:  uint32(iface.Index),
		Attributes: &rtnetlink.LinkAttributes{
			MTU: uint32(mtu),
		},
	}
	if err := conn.Conn.Link.Set(tx); err != nil {
		return fmt.Errorf("netif: setting MTU on %s: %w", l.ifaceName, err)
	}
	return nil
}

// SetLinkUp brings the interface administratively up.
func (l *LinkConfig) SetLinkUp() error {
	iface, err := l.iface()
	if err != nil {
		return err
	}
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return fmt.Errorf("netif: dialing rtnetlink: %w", err)
	}
	defer conn.Close()

	if err := conn.LinkUp(iface); err != nil {
		return fmt.Errorf("netif: bringing up %s: %w", l.ifaceName, err)
	}
	return nil
}

// SetLinkDown brings the interface administratively down, dropping any
// kernel-assigned addresses with it.
func (l *LinkConfig) SetLinkDown() error {
	iface, err := l.iface()
	if err != nil {
		return err
	}
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return fmt.Errorf("netif: dialing rtnetlink: %w", err)
	}
	defer conn.Close()

	if err := conn.LinkDown(iface); err != nil {
		return fmt.Errorf("netif: bringing down %s: %w", l.ifaceName, err)
	}
	return nil
}

// AddAddress pushes a lease's IPv4 address onto the interface, as a /32:
// the peer is reached only through the PAN point-to-point link, never a
// broadcast segment.
func (l *LinkConfig) AddAddress(addr net.IP) error {
	iface, err := l.iface()
	if err != nil {
		return err
	}
	if assigned, err := hasAddress(iface, addr); err != nil {
		return err
	} else if assigned {
		return nil
	}

	conn, err := rtnl.Dial(nil)
	if err != nil {
		return fmt.Errorf("netif: dialing rtnetlink: %w", err)
	}
	defer conn.Close()

	mask := net.CIDRMask(ipv4MaskBits, ipv4Len)
	if err := conn.AddrAdd(iface, &net.IPNet{IP: addr, Mask: mask}); err != nil {
		return fmt.Errorf("netif: adding address %s to %s: %w", addr, l.ifaceName, err)
	}
	return nil
}

// RemoveAddress drops a previously pushed address, e.g. on DHCP lease loss.
func (l *LinkConfig) RemoveAddress(addr net.IP) error {
	iface, err := l.iface()
	if err != nil {
		return err
	}
	assigned, err := hasAddress(iface, addr)
	if err != nil {
		return err
	}
	if !assigned {
		return nil
	}

	conn, err := rtnl.Dial(nil)
	if err != nil {
		return fmt.Errorf("netif: dialing rtnetlink: %w", err)
	}
	defer conn.Close()

	mask := net.CIDRMask(ipv4MaskBits, ipv4Len)
	if err := conn.AddrDel(iface, &net.IPNet{IP: addr, Mask: mask}); err != nil {
		return fmt.Errorf("netif: removing address %s from %s: %w", addr, l.ifaceName, err)
	}
	return nil
}

func hasAddress(iface *net.Interface, addr net.IP) (bool, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return false, fmt.Errorf("netif: listing addresses on %s: %w", iface.Name, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPAddr:
			ip = v.IP
		case *net.IPNet:
			ip = v.IP
		default:
			continue
		}
		if ip.Equal(addr) {
			return true, nil
		}
	}
	return false, nil
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ApplyLease pushes a DHCP-acquired address onto the interface; the
// Supervisor drives this once it reaches Online.
func (l *LinkConfig) ApplyLease(addr uint32) error {
	log.Debugf("netif: applying lease address %s to %s", uint32ToIP(addr), l.ifaceName)
	return l.AddAddress(uint32ToIP(addr))
}

// RemoveLease drops a previously applied lease address, on lease loss,
// disconnect or stop.
func (l *LinkConfig) RemoveLease(addr uint32) error {
	log.Debugf("netif: removing lease address %s from %s", uint32ToIP(addr), l.ifaceName)
	return l.RemoveAddress(uint32ToIP(addr))
}
