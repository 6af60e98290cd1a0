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

import "errors"

// Sentinel errors returned by the build/parse operations in this package.
// Callers (the session and the netif bridge) check these with errors.Is
// and never propagate them beyond a log line, per the propagation policy.
var (
	// errShortBuffer is returned by a Build* function when the
	// destination buffer is smaller than the encoded form requires. No
	// bytes are written beyond the buffer in this case.
	errShortBuffer = errors.New("bnep: destination buffer too small")

	// errShortPacket is returned by a Parse* function when the input is
	// shorter than the declared or required header length.
	errShortPacket = errors.New("bnep: packet shorter than header")

	// errUnknownType is returned when the low 7 bits of the first octet
	// do not match one of the five known packet types.
	errUnknownType = errors.New("bnep: unknown packet type")

	// errExtensionOverrun is returned when an extension header's length
	// field would read past the end of the packet.
	errExtensionOverrun = errors.New("bnep: extension header runs past end of packet")

	// errMissingAddress is returned when parsing a compressed Ethernet
	// variant without the substitute local/remote addresses needed to
	// fill in the addresses the wire format omits.
	errMissingAddress = errors.New("bnep: compressed packet needs substitute address")

	// errNotControl is returned when parsing a control body from a
	// packet whose type octet is not TypeControl, or whose control type
	// does not match what the caller asked to parse.
	errNotControl = errors.New("bnep: not a control packet of the expected kind")
)

// ErrShortBuffer reports whether err indicates a too-small destination buffer.
func ErrShortBuffer(err error) bool { return errors.Is(err, errShortBuffer) }

// ErrShortPacket reports whether err indicates a truncated packet.
func ErrShortPacket(err error) bool { return errors.Is(err, errShortPacket) }

// ErrUnknownType reports whether err indicates an unrecognized packet type.
func ErrUnknownType(err error) bool { return errors.Is(err, errUnknownType) }
