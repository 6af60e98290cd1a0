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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/facebook/panu/bnep"
)

// Compile-time fixed protocol parameters. These are not
// configuration knobs: they are invariants of the L2CAP/BNEP contract
// this client implements, so they are constants rather than Config fields.
const (
	L2CAPConnectTimeoutMs = 10000
	BNEPSetupTimeoutMs    = 5000
	BNEPSetupRetries      = 3
	DHCPTimeoutMs         = 30000
	MinTxQueueLen         = 8
	MaxFrameSize          = 1500
	MinL2CAPMTU           = 1691
)

// RemoteAddr is a yaml-friendly wrapper around bnep.Address so config
// files can spell it as the familiar colon-separated hex string.
type RemoteAddr bnep.Address

// UnmarshalYAML parses "AA:BB:CC:DD:EE:FF" into the six address octets.
func (a *RemoteAddr) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseAddr(s)
	if err != nil {
		return err
	}
	*a = RemoteAddr(parsed)
	return nil
}

// MarshalYAML renders the address back as "AA:BB:CC:DD:EE:FF".
func (a RemoteAddr) MarshalYAML() (interface{}, error) {
	return formatAddr(bnep.Address(a)), nil
}

// ParseAddr parses a colon-separated Bluetooth device address.
func ParseAddr(s string) (bnep.Address, error) {
	var a bnep.Address
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return a, fmt.Errorf("remote_addr %q: want 6 colon-separated octets", s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return a, fmt.Errorf("remote_addr %q: invalid octet %q", s, p)
		}
		a[i] = b[0]
	}
	return a, nil
}

func formatAddr(a bnep.Address) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Config specifies how the PANU client should connect to a NAP peer:
// everything a caller could reasonably want to tune, with the rest of
// the protocol's timing fixed by the constants above.
type Config struct {
	// RemoteAddr is the NAP peer's Bluetooth device address.
	RemoteAddr RemoteAddr `yaml:"remote_addr"`

	// ReconnectIntervalMs is the initial reconnect backoff delay.
	ReconnectIntervalMs uint32 `yaml:"reconnect_interval_ms"`
	// ReconnectMaxMs caps the doubled backoff delay.
	ReconnectMaxMs uint32 `yaml:"reconnect_max_ms"`
	// MaxReconnectAttempts bounds retries; 0 means unlimited.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// HeartbeatIntervalMs and HeartbeatRetries are accepted and stored
	// for forward API compatibility but are not consulted by the core:
	// no heartbeat/keepalive monitoring is performed.
	HeartbeatIntervalMs uint32 `yaml:"heartbeat_interval_ms"`
	HeartbeatRetries    int    `yaml:"heartbeat_retries"`

	// TxQueueLen is the depth of the bounded outbound frame queue.
	// Must be >= MinTxQueueLen.
	TxQueueLen int `yaml:"tx_queue_len"`

	// CompressionEnabled turns on BNEP header compression for frames
	// addressed to/from the negotiated peer.
	CompressionEnabled bool `yaml:"compression_enabled"`
	// ForceUncompressedTX always uses the general (15-byte) header, for
	// NAP peers with a buggy compressed-header decoder.
	ForceUncompressedTX bool `yaml:"force_uncompressed_tx"`
	// AutoReconnect enables the Reconnecting path; when false, any
	// connect failure or disconnect drives the Supervisor to Error.
	AutoReconnect bool `yaml:"auto_reconnect"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		ReconnectIntervalMs: 1000,
		ReconnectMaxMs:      30000,
		TxQueueLen:          16,
		CompressionEnabled:  true,
		AutoReconnect:       true,
	}
}

// Validate reports whether c is internally consistent.
func (c *Config) Validate() error {
	if bnep.Address(c.RemoteAddr) == (bnep.Address{}) {
		return fmt.Errorf("remote_addr must be set")
	}
	if c.ReconnectIntervalMs == 0 {
		return fmt.Errorf("reconnect_interval_ms must be positive")
	}
	if c.ReconnectMaxMs < c.ReconnectIntervalMs {
		return fmt.Errorf("reconnect_max_ms must be >= reconnect_interval_ms")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be 0 (unlimited) or positive")
	}
	if c.TxQueueLen < MinTxQueueLen {
		return fmt.Errorf("tx_queue_len must be >= %d", MinTxQueueLen)
	}
	return nil
}

// ReadConfig reads and validates a Config from a YAML file, layered over
// DefaultConfig so the file only needs to set what it wants to override.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %q: %w", path, err)
	}
	log.Debugf("config: %+v", c)
	return c, nil
}
