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

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig("/does/not/exist")
	require.Error(t, err)
}

func TestReadConfigRejectsMissingRemoteAddr(t *testing.T) {
	f, err := os.CreateTemp("", "panu")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = ReadConfig(f.Name())
	require.Error(t, err, "remote_addr is required and the zero default must fail validation")
}

func TestReadConfigAppliesDefaults(t *testing.T) {
	f, err := os.CreateTemp("", "panu")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString("remote_addr: \"AA:BB:CC:DD:EE:FF\"\n")
	require.NoError(t, err)

	cfg, err := ReadConfig(f.Name())
	require.NoError(t, err)
	require.Equal(t, uint32(1000), cfg.ReconnectIntervalMs)
	require.Equal(t, uint32(30000), cfg.ReconnectMaxMs)
	require.Equal(t, 16, cfg.TxQueueLen)
	require.True(t, cfg.CompressionEnabled)
	require.True(t, cfg.AutoReconnect)
}

func TestReadConfigOverridesDefaults(t *testing.T) {
	f, err := os.CreateTemp("", "panu")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString(`
remote_addr: "01:02:03:04:05:06"
reconnect_interval_ms: 250
reconnect_max_ms: 4000
tx_queue_len: 32
compression_enabled: false
auto_reconnect: false
`)
	require.NoError(t, err)

	cfg, err := ReadConfig(f.Name())
	require.NoError(t, err)
	require.Equal(t, RemoteAddr{1, 2, 3, 4, 5, 6}, cfg.RemoteAddr)
	require.Equal(t, uint32(250), cfg.ReconnectIntervalMs)
	require.Equal(t, uint32(4000), cfg.ReconnectMaxMs)
	require.Equal(t, 32, cfg.TxQueueLen)
	require.False(t, cfg.CompressionEnabled)
	require.False(t, cfg.AutoReconnect)
}

func TestParseAddrRejectsMalformed(t *testing.T) {
	_, err := ParseAddr("not-an-address")
	require.Error(t, err)
	_, err = ParseAddr("AA:BB:CC")
	require.Error(t, err)
	_, err = ParseAddr("ZZ:BB:CC:DD:EE:FF")
	require.Error(t, err)
}

func TestValidateRejectsInconsistentBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoteAddr = RemoteAddr{1, 2, 3, 4, 5, 6}
	cfg.ReconnectMaxMs = 10
	cfg.ReconnectIntervalMs = 100
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSmallTxQueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoteAddr = RemoteAddr{1, 2, 3, 4, 5, 6}
	cfg.TxQueueLen = 1
	require.Error(t, cfg.Validate())
}
