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

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/panu/bnep"
	"github.com/facebook/panu/panu/client"
	"github.com/facebook/panu/panu/config"
	"github.com/facebook/panu/panu/eventsink"
	"github.com/facebook/panu/panu/hal"
	"github.com/facebook/panu/panu/netif"
	"github.com/facebook/panu/panu/stats"
)

var (
	connectConfigPath    string
	connectHCIDevice     int
	connectJSONStatsPort int
	connectPromPort      int
	connectPollInterval  time.Duration
	connectLinkIface     string
)

func init() {
	RootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVarP(&connectConfigPath, "config", "c", "", "path to a panu YAML config file (required)")
	connectCmd.Flags().IntVar(&connectHCIDevice, "hci-device", 0, "HCI controller index to bind to")
	connectCmd.Flags().IntVar(&connectJSONStatsPort, "json-stats-port", 0, "port for the JSON counters endpoint; 0 disables it")
	connectCmd.Flags().IntVar(&connectPromPort, "prometheus-port", 0, "port for the Prometheus /metrics endpoint; 0 disables it")
	connectCmd.Flags().DurationVar(&connectPollInterval, "poll-interval", 50*time.Millisecond, "fallback Process() poll interval")
	connectCmd.Flags().StringVar(&connectLinkIface, "link-interface", "", "host network interface to mirror the acquired lease onto; empty disables it")
	_ = connectCmd.MarkFlagRequired("config")
}

// logOnlyIPStack stands in for a real embedded IP stack: it logs what it
// would otherwise hand to a DHCP client and a kernel Ethernet input. A
// production deployment supplies a netif.IpStack backed by a tun/tap
// device; --link-interface covers the address/MTU half by wiring a
// netif.LinkConfig for that device.
type logOnlyIPStack struct{}

func (logOnlyIPStack) DeliverInbound(frame []byte) {
	log.Debugf("panud: inbound ethernet frame, %d bytes", len(frame))
}
func (logOnlyIPStack) LinkUp(mac bnep.Address, mtu int) {
	log.Infof("panud: link up, mac=%x mtu=%d", mac, mtu)
}
func (logOnlyIPStack) LinkDown() { log.Infof("panud: link down") }
func (logOnlyIPStack) StartDHCP() {
	log.Infof("panud: dhcp start requested (no embedded IP stack wired in this demo)")
}
func (logOnlyIPStack) StopDHCP() { log.Infof("panud: dhcp stop requested") }

func colorForState(s client.State) func(format string, a ...interface{}) string {
	switch s {
	case client.StateOnline:
		return color.New(color.FgGreen).SprintfFunc()
	case client.StateError:
		return color.New(color.FgRed).SprintfFunc()
	case client.StateReconnecting:
		return color.New(color.FgYellow).SprintfFunc()
	default:
		return color.New(color.FgCyan).SprintfFunc()
	}
}

// logSink prints every notification, colorized by connection state.
type logSink struct{}

func (logSink) Notify(n eventsink.Notification) {
	sprintf := colorForState(client.State(0))
	if st, ok := n.State.(client.State); ok {
		sprintf = colorForState(st)
	}
	if n.Err != nil {
		log.Warning(sprintf("panud: %s (state=%s): %v", n.Kind, n.State, n.Err))
		return
	}
	log.Info(sprintf("panud: %s (state=%s)", n.Kind, n.State))
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a NAP peer and stay online",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		cfg, err := config.ReadConfig(connectConfigPath)
		if err != nil {
			log.Fatalf("panud: %v", err)
		}

		ha := hal.NewLinuxL2CAPHal(connectHCIDevice)
		if err := ha.Init(); err != nil {
			log.Fatalf("panud: initializing hal: %v", err)
		}

		st, err := stats.New()
		if err != nil {
			log.Warningf("panud: starting process stats: %v", err)
		}

		c := client.NewClient(cfg, ha, logOnlyIPStack{}, logSink{}, nil)
		c.AttachStats(st)
		if connectLinkIface != "" {
			c.AttachLinkConfig(netif.NewLinkConfig(connectLinkIface))
		}
		defer c.Deinit() //nolint:errcheck

		if connectJSONStatsPort != 0 {
			go func() {
				if err := stats.NewJSONServer(st).Start(connectJSONStatsPort, time.Second); err != nil {
					log.Errorf("panud: json stats server: %v", err)
				}
			}()
		}
		if connectPromPort != 0 {
			go func() {
				if err := stats.NewPrometheusExporter(st, connectPromPort, time.Second).Start(); err != nil {
					log.Errorf("panud: prometheus exporter: %v", err)
				}
			}()
		}

		if err := c.Start(); err != nil {
			log.Fatalf("panud: starting client: %v", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case <-sigCh:
				log.Infof("panud: shutting down")
				return
			default:
			}
			c.Process()
			wait := time.Duration(c.NextTimeoutMs()) * time.Millisecond
			if wait > connectPollInterval || wait == 0 {
				wait = connectPollInterval
			}
			time.Sleep(wait)
		}
	},
}
