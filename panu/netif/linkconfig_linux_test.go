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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32ToIP(t *testing.T) {
	require.Equal(t, net.IPv4(10, 0, 0, 1).To4(), uint32ToIP(0x0A000001).To4())
	require.Equal(t, net.IPv4(192, 168, 1, 200).To4(), uint32ToIP(0xC0A801C8).To4())
	require.Equal(t, net.IPv4(0, 0, 0, 0).To4(), uint32ToIP(0).To4())
}

func TestLinkConfigRejectsUnknownInterface(t *testing.T) {
	lc := NewLinkConfig("panu-does-not-exist0")
	require.Error(t, lc.SetMTU(MTU))
	require.Error(t, lc.SetLinkUp())
	require.Error(t, lc.SetLinkDown())
	require.Error(t, lc.ApplyLease(0x0A000001))
	require.Error(t, lc.RemoveLease(0x0A000001))
}

func TestHasAddressOnLoopback(t *testing.T) {
	iface, err := net.InterfaceByName("lo")
	if err != nil {
		t.Skip("no loopback interface available")
	}
	found, err := hasAddress(iface, net.IPv4(127, 0, 0, 1))
	require.NoError(t, err)
	require.True(t, found)

	found, err = hasAddress(iface, net.IPv4(203, 0, 113, 9))
	require.NoError(t, err)
	require.False(t, found)
}
