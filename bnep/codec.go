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

import "fmt"

// GeneralHeaderLen is the encapsulation overhead of TypeGeneralEthernet:
// type octet + dst(6) + src(6) + ethertype(2).
const GeneralHeaderLen = 15

// CompressedHeaderLen is the encapsulation overhead of
// TypeCompressedEthernet: type octet + ethertype(2).
const CompressedHeaderLen = 3

// srcOnlyHeaderLen and dstOnlyHeaderLen are the overheads of the two
// partial-compression variants, which this package can parse (as sent by
// other PANU implementations) but which TX never selects.
const srcOnlyHeaderLen = 9
const dstOnlyHeaderLen = 9

// setupRequestLen is the fixed size of a Setup Connection Request.
const setupRequestLen = 7

// controlResponseLen is the fixed size of a two-octet-code control reply
// (Setup Connection Response, Filter Net Type Response, Filter Multi Addr
// Response all share this shape).
const controlResponseLen = 4

// commandNotUnderstoodLen is the fixed size of a Command Not Understood reply.
const commandNotUnderstoodLen = 3

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func getUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// BuildSetupRequest encodes a Setup Connection Request into buf, returning
// the number of bytes written. The PANU role always sends dstUUID=NAP,
// srcUUID=PANU (see UUIDPANU, UUIDNAP).
func BuildSetupRequest(buf []byte, dstUUID, srcUUID uint16) (int, error) {
	if len(buf) < setupRequestLen {
		return 0, errShortBuffer
	}
	buf[0] = byte(TypeControl)
	buf[1] = byte(ControlSetupConnectionRequest)
	buf[2] = 0x02 // UUID size: 16-bit UUIDs
	putUint16(buf[3:5], dstUUID)
	putUint16(buf[5:7], srcUUID)
	return setupRequestLen, nil
}

// BuildSetupResponse encodes a Setup Connection Response carrying code.
func BuildSetupResponse(buf []byte, code uint16) (int, error) {
	return buildControlCode(buf, ControlSetupConnectionResponse, code)
}

// BuildFilterNetTypeResponse encodes a Filter Net Type Response carrying code.
func BuildFilterNetTypeResponse(buf []byte, code uint16) (int, error) {
	return buildControlCode(buf, ControlFilterNetTypeResponse, code)
}

// BuildFilterMultiAddrResponse encodes a Filter Multi Addr Response carrying code.
func BuildFilterMultiAddrResponse(buf []byte, code uint16) (int, error) {
	return buildControlCode(buf, ControlFilterMultiAddrResponse, code)
}

func buildControlCode(buf []byte, ctrl ControlType, code uint16) (int, error) {
	if len(buf) < controlResponseLen {
		return 0, errShortBuffer
	}
	buf[0] = byte(TypeControl)
	buf[1] = byte(ctrl)
	putUint16(buf[2:4], code)
	return controlResponseLen, nil
}

// BuildCommandNotUnderstood encodes a Command Not Understood reply echoing
// the control type that was not recognized.
func BuildCommandNotUnderstood(buf []byte, offending ControlType) (int, error) {
	if len(buf) < commandNotUnderstoodLen {
		return 0, errShortBuffer
	}
	buf[0] = byte(TypeControl)
	buf[1] = byte(ControlCommandNotUnderstood)
	buf[2] = byte(offending)
	return commandNotUnderstoodLen, nil
}

// BuildGeneralEthernet encodes a TypeGeneralEthernet packet: the full
// destination and source addresses are carried explicitly.
func BuildGeneralEthernet(buf []byte, dst, src Address, etherType uint16, payload []byte) (int, error) {
	need := GeneralHeaderLen + len(payload)
	if len(buf) < need {
		return 0, errShortBuffer
	}
	buf[0] = byte(TypeGeneralEthernet)
	copy(buf[1:7], dst[:])
	copy(buf[7:13], src[:])
	putUint16(buf[13:15], etherType)
	copy(buf[15:need], payload)
	return need, nil
}

// BuildCompressedEthernet encodes a TypeCompressedEthernet packet: both
// addresses are implied (dst=local, src=remote on the receiving side).
func BuildCompressedEthernet(buf []byte, etherType uint16, payload []byte) (int, error) {
	need := CompressedHeaderLen + len(payload)
	if len(buf) < need {
		return 0, errShortBuffer
	}
	buf[0] = byte(TypeCompressedEthernet)
	putUint16(buf[1:3], etherType)
	copy(buf[3:need], payload)
	return need, nil
}

// SelectHeaderLen returns the BNEP header length TX should use for a frame
// addressed to dst from src: 3 (compressed) when compression is enabled
// and the frame is to the remote peer from the local address, else 15
// (general). forceUncompressed overrides compression off entirely, for
// peers whose compression handling is unreliable.
func SelectHeaderLen(dst, src, local, remote Address, compressionEnabled, forceUncompressed bool) int {
	if !forceUncompressed && compressionEnabled && dst == remote && src == local {
		return CompressedHeaderLen
	}
	return GeneralHeaderLen
}

// ParseHeader introspects the leading octet(s) of a packet: the packet
// type, whether an extension header chain follows, and the total number
// of bytes the type octet plus that chain occupy. It does not validate
// that the body past the header is long enough for the packet type.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < 1 {
		return Header{}, errShortPacket
	}
	t := Type(data[0] & typeMask)
	switch t {
	case TypeGeneralEthernet, TypeControl, TypeCompressedEthernet, TypeCompressedSrcOnly, TypeCompressedDstOnly:
	default:
		return Header{}, errUnknownType
	}
	hasExt := data[0]&extensionFlag != 0
	h := Header{PacketType: t, HasExtension: hasExt, HeaderLen: 1}
	if !hasExt {
		return h, nil
	}
	off := 1
	for {
		if off >= len(data) {
			return Header{}, errExtensionOverrun
		}
		extType := data[off]
		if off+2 > len(data) {
			return Header{}, errExtensionOverrun
		}
		extLen := int(data[off+1])
		end := off + 2 + extLen
		if end > len(data) {
			return Header{}, errExtensionOverrun
		}
		off = end
		if extType&extensionFlag == 0 {
			break
		}
	}
	h.HeaderLen = off
	return h, nil
}

// ParseEthernet parses an Ethernet-carrying BNEP packet (any of the five
// types except bare Control), walking any extension header chain and
// substituting local/remote addresses for the compressed variants. For
// TypeCompressedEthernet and TypeCompressedSrcOnly, local is used to fill
// in the implied destination; for TypeCompressedEthernet and
// TypeCompressedDstOnly, remote fills in the implied source.
func ParseEthernet(data []byte, local, remote Address) (Ethernet, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return Ethernet{}, err
	}
	if h.PacketType == TypeControl {
		return Ethernet{}, fmt.Errorf("bnep: control packet passed to ParseEthernet: %w", errNotControl)
	}
	body := data[h.HeaderLen:]
	var e Ethernet
	switch h.PacketType {
	case TypeGeneralEthernet:
		if len(body) < 14 {
			return Ethernet{}, errShortPacket
		}
		copy(e.Dst[:], body[0:6])
		copy(e.Src[:], body[6:12])
		e.EtherType = getUint16(body[12:14])
		e.Payload = body[14:]
	case TypeCompressedEthernet:
		if len(body) < 2 {
			return Ethernet{}, errShortPacket
		}
		if local == (Address{}) || remote == (Address{}) {
			return Ethernet{}, errMissingAddress
		}
		e.Dst = local
		e.Src = remote
		e.EtherType = getUint16(body[0:2])
		e.Payload = body[2:]
	case TypeCompressedSrcOnly:
		if len(body) < 8 {
			return Ethernet{}, errShortPacket
		}
		if local == (Address{}) {
			return Ethernet{}, errMissingAddress
		}
		e.Dst = local
		copy(e.Src[:], body[0:6])
		e.EtherType = getUint16(body[6:8])
		e.Payload = body[8:]
	case TypeCompressedDstOnly:
		if len(body) < 8 {
			return Ethernet{}, errShortPacket
		}
		if remote == (Address{}) {
			return Ethernet{}, errMissingAddress
		}
		copy(e.Dst[:], body[0:6])
		e.Src = remote
		e.EtherType = getUint16(body[6:8])
		e.Payload = body[8:]
	}
	return e, nil
}

// ParseSetupResponse reads the 16-bit response code from a Setup
// Connection Response control body.
func ParseSetupResponse(data []byte) (uint16, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, err
	}
	if h.PacketType != TypeControl {
		return 0, errNotControl
	}
	body := data[h.HeaderLen:]
	if len(body) < 3 {
		return 0, errShortPacket
	}
	if ControlType(body[0]) != ControlSetupConnectionResponse {
		return 0, errNotControl
	}
	return getUint16(body[1:3]), nil
}

// ParseControlType reads the control-message type from a Control packet,
// after walking any extension header chain.
func ParseControlType(data []byte) (ControlType, []byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, nil, err
	}
	if h.PacketType != TypeControl {
		return 0, nil, errNotControl
	}
	body := data[h.HeaderLen:]
	if len(body) < 1 {
		return 0, nil, errShortPacket
	}
	return ControlType(body[0]), body[1:], nil
}

// ParseSetupRequest reads the dst/src service UUIDs from a Setup
// Connection Request control body.
func ParseSetupRequest(data []byte) (dstUUID, srcUUID uint16, err error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, 0, err
	}
	if h.PacketType != TypeControl {
		return 0, 0, errNotControl
	}
	body := data[h.HeaderLen:]
	if len(body) < 6 {
		return 0, 0, errShortPacket
	}
	if ControlType(body[0]) != ControlSetupConnectionRequest {
		return 0, 0, errNotControl
	}
	// body[1] is UUID size, assumed 16-bit per BuildSetupRequest.
	dstUUID = getUint16(body[2:4])
	srcUUID = getUint16(body[4:6])
	return dstUUID, srcUUID, nil
}

// ParseFilterRequestType returns the control type of a filter-set message
// without decoding its (unsupported) filter list body, since the session
// only ever needs to know which response opcode to echo.
func ParseFilterRequestType(data []byte) (ControlType, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, err
	}
	if h.PacketType != TypeControl {
		return 0, errNotControl
	}
	body := data[h.HeaderLen:]
	if len(body) < 1 {
		return 0, errShortPacket
	}
	return ControlType(body[0]), nil
}
