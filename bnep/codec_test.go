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

package bnep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSetupRequestExact(t *testing.T) {
	buf := make([]byte, 7)
	n, err := BuildSetupRequest(buf, UUIDNAP, UUIDPANU)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, []byte{0x01, 0x01, 0x02, 0x11, 0x16, 0x11, 0x15}, buf)
}

func TestRoundTripGeneralEthernet(t *testing.T) {
	dst := Address{1, 2, 3, 4, 5, 6}
	src := Address{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	payload := []byte("hello network")
	buf := make([]byte, GeneralHeaderLen+len(payload))
	n, err := BuildGeneralEthernet(buf, dst, src, 0x0800, payload)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	e, err := ParseEthernet(buf, Address{}, Address{})
	require.NoError(t, err)
	require.Equal(t, dst, e.Dst)
	require.Equal(t, src, e.Src)
	require.Equal(t, uint16(0x0800), e.EtherType)
	require.Equal(t, payload, e.Payload)
}

func TestRoundTripCompressedEthernet(t *testing.T) {
	local := Address{1, 1, 1, 1, 1, 1}
	remote := Address{2, 2, 2, 2, 2, 2}
	payload := []byte("arp")
	buf := make([]byte, CompressedHeaderLen+len(payload))
	n, err := BuildCompressedEthernet(buf, 0x0806, payload)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	e, err := ParseEthernet(buf, local, remote)
	require.NoError(t, err)
	require.Equal(t, local, e.Dst)
	require.Equal(t, remote, e.Src)
	require.Equal(t, uint16(0x0806), e.EtherType)
	require.Equal(t, payload, e.Payload)
}

func TestCompressedWithoutSubstitutionRejected(t *testing.T) {
	buf := make([]byte, CompressedHeaderLen)
	_, err := BuildCompressedEthernet(buf, 0x0800, nil)
	require.NoError(t, err)
	_, err = ParseEthernet(buf, Address{}, Address{})
	require.ErrorIs(t, err, errMissingAddress)
}

func TestRoundTripSetupResponse(t *testing.T) {
	for _, code := range []uint16{0x0000, 0x0001, 0x0004, 0xffff} {
		buf := make([]byte, controlResponseLen)
		n, err := BuildSetupResponse(buf, code)
		require.NoError(t, err)
		require.Equal(t, controlResponseLen, n)
		got, err := ParseSetupResponse(buf)
		require.NoError(t, err)
		require.Equal(t, code, got)
	}
}

func TestBuildShortBufferNoPartialWrite(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff}
	orig := append([]byte(nil), buf...)
	_, err := BuildGeneralEthernet(buf, Address{}, Address{}, 0, nil)
	require.ErrorIs(t, err, errShortBuffer)
	require.Equal(t, orig, buf, "build must not write any bytes on short-buffer failure")

	_, err = BuildSetupRequest(buf, UUIDNAP, UUIDPANU)
	require.ErrorIs(t, err, errShortBuffer)
	require.Equal(t, orig, buf)
}

func TestParseShorterThanHeaderFails(t *testing.T) {
	full := make([]byte, GeneralHeaderLen)
	_, _ = BuildGeneralEthernet(full, Address{1}, Address{2}, 0x0800, nil)
	_, err := ParseEthernet(full[:GeneralHeaderLen-1], Address{}, Address{})
	require.ErrorIs(t, err, errShortPacket)
}

func TestExtensionHeaderWalk(t *testing.T) {
	// one extension (type 0x10, len 2, payload AA BB), no more following,
	// then a compressed ethernet body.
	buf := []byte{
		byte(TypeCompressedEthernet) | extensionFlag,
		0x10, 0x02, 0xAA, 0xBB,
		0x08, 0x00, // ethertype
		'h', 'i',
	}
	h, err := ParseHeader(buf)
	require.NoError(t, err)
	require.True(t, h.HasExtension)
	require.Equal(t, TypeCompressedEthernet, h.PacketType)
	require.Equal(t, 5, h.HeaderLen)

	e, err := ParseEthernet(buf, Address{1}, Address{2})
	require.NoError(t, err)
	require.Equal(t, uint16(0x0800), e.EtherType)
	require.Equal(t, []byte("hi"), e.Payload)
}

func TestExtensionHeaderChainOfTwo(t *testing.T) {
	buf := []byte{
		byte(TypeGeneralEthernet) | extensionFlag,
		0x10 | extensionFlag, 0x01, 0x01, // first ext, more follow
		0x20, 0x01, 0x02, // second ext, terminal
	}
	srcAddr := Address{1, 2, 3, 4, 5, 6}
	dstAddr := Address{6, 5, 4, 3, 2, 1}
	buf = append(buf, srcAddr[:]...)
	buf = append(buf, dstAddr[:]...)
	buf = append(buf, 0x08, 0x00)
	h, err := ParseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, 7, h.HeaderLen)
}

func TestExtensionHeaderOverrunFails(t *testing.T) {
	buf := []byte{
		byte(TypeCompressedEthernet) | extensionFlag,
		0x10, 0x05, 0xAA, 0xBB, // declares 5 bytes of payload, only 2 present
	}
	_, err := ParseHeader(buf)
	require.ErrorIs(t, err, errExtensionOverrun)
}

func TestUnknownTypeFails(t *testing.T) {
	_, err := ParseHeader([]byte{0x7f})
	require.ErrorIs(t, err, errUnknownType)
}

func TestSelectHeaderLen(t *testing.T) {
	local := Address{1}
	remote := Address{2}
	other := Address{3}

	require.Equal(t, CompressedHeaderLen, SelectHeaderLen(remote, local, local, remote, true, false))
	require.Equal(t, GeneralHeaderLen, SelectHeaderLen(other, local, local, remote, true, false), "non-peer destination can't compress")
	require.Equal(t, GeneralHeaderLen, SelectHeaderLen(remote, local, local, remote, false, false), "compression disabled")
	require.Equal(t, GeneralHeaderLen, SelectHeaderLen(remote, local, local, remote, true, true), "forced uncompressed")
}

func TestFilterResponseWireExact(t *testing.T) {
	buf := make([]byte, controlResponseLen)
	n, err := BuildFilterNetTypeResponse(buf, FilterUnsupported)
	require.NoError(t, err)
	require.Equal(t, controlResponseLen, n)
	require.Equal(t, []byte{0x01, 0x04, 0x00, 0x01}, buf)
}

func TestCommandNotUnderstoodWireExact(t *testing.T) {
	buf := make([]byte, commandNotUnderstoodLen)
	n, err := BuildCommandNotUnderstood(buf, ControlType(0x7f))
	require.NoError(t, err)
	require.Equal(t, commandNotUnderstoodLen, n)
	require.Equal(t, []byte{0x01, 0x00, 0x7f}, buf)
}

func TestParseCompressedSrcDstOnly(t *testing.T) {
	local := Address{9, 9, 9, 9, 9, 9}
	remote := Address{8, 8, 8, 8, 8, 8}
	srcOnly := []byte{byte(TypeCompressedSrcOnly)}
	srcOnly = append(srcOnly, remote[:]...)
	srcOnly = append(srcOnly, 0x08, 0x06)
	e, err := ParseEthernet(srcOnly, local, remote)
	require.NoError(t, err)
	require.Equal(t, local, e.Dst)
	require.Equal(t, remote, e.Src)

	dstOnly := []byte{byte(TypeCompressedDstOnly)}
	dstOnly = append(dstOnly, local[:]...)
	dstOnly = append(dstOnly, 0x08, 0x06)
	e2, err := ParseEthernet(dstOnly, local, remote)
	require.NoError(t, err)
	require.Equal(t, local, e2.Dst)
	require.Equal(t, remote, e2.Src)
}
