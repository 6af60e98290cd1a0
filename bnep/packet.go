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

// Package bnep implements the wire format of the Bluetooth Network
// Encapsulation Protocol: the five packet variants, extension header
// walking and the control-message bodies used during PANU setup.
//
// Every function in this package is pure: it reads and writes only the
// caller-supplied buffers and never allocates beyond what it returns.
package bnep

import "fmt"

// Type is the low 7 bits of a BNEP packet's first octet.
type Type byte

// Packet type values, Bluetooth SIG-assigned.
const (
	TypeGeneralEthernet    Type = 0x00
	TypeControl            Type = 0x01
	TypeCompressedEthernet Type = 0x02
	TypeCompressedSrcOnly  Type = 0x03
	TypeCompressedDstOnly  Type = 0x04
)

func (t Type) String() string {
	switch t {
	case TypeGeneralEthernet:
		return "GeneralEthernet"
	case TypeControl:
		return "Control"
	case TypeCompressedEthernet:
		return "CompressedEthernet"
	case TypeCompressedSrcOnly:
		return "CompressedSrcOnly"
	case TypeCompressedDstOnly:
		return "CompressedDstOnly"
	default:
		return fmt.Sprintf("Type(0x%02x)", byte(t))
	}
}

// extensionFlag is the high bit of the first octet, signaling that one or
// more extension headers precede the packet body.
const extensionFlag = 0x80

// typeMask isolates the packet type from the extension flag.
const typeMask = 0x7f

// ControlType is the second octet of a BNEP control packet.
type ControlType byte

// Control message types, Bluetooth SIG-assigned.
const (
	ControlCommandNotUnderstood    ControlType = 0x00
	ControlSetupConnectionRequest  ControlType = 0x01
	ControlSetupConnectionResponse ControlType = 0x02
	ControlFilterNetTypeSet        ControlType = 0x03
	ControlFilterNetTypeResponse   ControlType = 0x04
	ControlFilterMultiAddrSet      ControlType = 0x05
	ControlFilterMultiAddrResponse ControlType = 0x06
)

func (c ControlType) String() string {
	switch c {
	case ControlCommandNotUnderstood:
		return "CommandNotUnderstood"
	case ControlSetupConnectionRequest:
		return "SetupConnectionRequest"
	case ControlSetupConnectionResponse:
		return "SetupConnectionResponse"
	case ControlFilterNetTypeSet:
		return "FilterNetTypeSet"
	case ControlFilterNetTypeResponse:
		return "FilterNetTypeResponse"
	case ControlFilterMultiAddrSet:
		return "FilterMultiAddrSet"
	case ControlFilterMultiAddrResponse:
		return "FilterMultiAddrResponse"
	default:
		return fmt.Sprintf("ControlType(0x%02x)", byte(c))
	}
}

// Setup response codes (BNEP_SETUP_*).
const (
	ResponseSuccess         uint16 = 0x0000
	ResponseInvalidDstUUID  uint16 = 0x0001
	ResponseInvalidSrcUUID  uint16 = 0x0002
	ResponseInvalidUUIDSize uint16 = 0x0003
	ResponseConnNotAllowed  uint16 = 0x0004
)

// Filter response codes.
const (
	FilterSuccess     uint16 = 0x0000
	FilterUnsupported uint16 = 0x0001
)

// Service UUIDs used during setup (16-bit, SDP-assigned).
const (
	UUIDPANU uint16 = 0x1115
	UUIDNAP  uint16 = 0x1116
	UUIDGN   uint16 = 0x1117
)

// PSM is the L2CAP Protocol/Service Multiplexer BNEP is registered on.
const PSM uint16 = 0x000F

// Address is a six-octet Bluetooth device address, carried by value.
type Address [6]byte

// Ethernet is a parsed BNEP Ethernet-carrying packet. Payload references
// bytes owned by the caller's receive buffer and is valid only for the
// duration of the call that produced it.
type Ethernet struct {
	Dst       Address
	Src       Address
	EtherType uint16
	Payload   []byte
}

// Header describes the result of introspecting a packet's leading octet
// and any extension header chain, without parsing the body.
type Header struct {
	PacketType   Type
	HasExtension bool
	// HeaderLen is the number of bytes consumed by the type octet plus
	// the extension header chain (0 extensions -> HeaderLen == 1).
	HeaderLen int
}
