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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBDAddrReversesOctets(t *testing.T) {
	addr, err := parseBDAddr("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.Equal(t, Addr{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA}, addr)
}

func TestParseBDAddrRejectsMalformed(t *testing.T) {
	_, err := parseBDAddr("AA:BB:CC")
	require.Error(t, err)
	_, err = parseBDAddr("ZZ:BB:CC:DD:EE:FF")
	require.Error(t, err)
	_, err = parseBDAddr("")
	require.Error(t, err)
}

func TestSendResultStrings(t *testing.T) {
	require.Equal(t, "ok", SendOK.String())
	require.Equal(t, "busy", SendBusy.String())
	require.Equal(t, "failure", SendFailure.String())
}
