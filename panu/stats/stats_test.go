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

package stats

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func TestGetCountersReportsEveryKey(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	c := s.GetCounters()
	for _, n := range stateNames {
		require.Contains(t, c, stateEnterPfx+n)
		require.Equal(t, int64(0), c[stateEnterPfx+n])
	}
	for _, n := range controlNames {
		require.Contains(t, c, ctrlSentPfx+n)
		require.Contains(t, c, ctrlRecvPfx+n)
	}
	require.Contains(t, c, prefix+"bnep.setup.success")
	require.Contains(t, c, prefix+"netif.tx.queue_depth")
}

func TestCountersIncrement(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	s.IncStateEntered("connecting")
	s.IncStateEntered("connecting")
	s.IncStateEntered("online")
	s.IncStateEntered("no_such_state")
	s.IncControlSent("setup_connection_request")
	s.IncControlRecv("setup_connection_response")
	s.IncSetupSuccess()
	s.IncSetupFailure()
	s.SetBridgeCounters(3, 2, 1, 10, 4)

	c := s.GetCounters()
	require.Equal(t, int64(2), c[stateEnterPfx+"connecting"])
	require.Equal(t, int64(1), c[stateEnterPfx+"online"])
	require.Equal(t, int64(1), c[ctrlSentPfx+"setup_connection_request"])
	require.Equal(t, int64(1), c[ctrlRecvPfx+"setup_connection_response"])
	require.Equal(t, int64(1), c[prefix+"bnep.setup.success"])
	require.Equal(t, int64(1), c[prefix+"bnep.setup.failure"])
	require.Equal(t, int64(3), c[prefix+"netif.tx.fast_path"])
	require.Equal(t, int64(2), c[prefix+"netif.tx.slow_path"])
	require.Equal(t, int64(1), c[prefix+"netif.tx.dropped"])
	require.Equal(t, int64(10), c[prefix+"netif.rx.delivered"])
	require.Equal(t, int64(4), c[prefix+"netif.tx.queue_depth"])
}

func TestCollectSysStats(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.CollectSysStats())

	c := s.GetCounters()
	require.Contains(t, c, prefix+"process.rss")
	require.Greater(t, c[prefix+"runtime.cpu.goroutines"], int64(0))
}

func TestJSONServerServesCounters(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	s.IncStateEntered("online")

	port, err := getFreePort()
	require.Nil(t, err, "Failed to allocate port")
	url := fmt.Sprintf("http://localhost:%d", port)
	go NewJSONServer(s).Start(port, time.Second)
	time.Sleep(time.Second)

	counters, err := FetchCounters(url)
	require.NoError(t, err)
	require.Equal(t, int64(1), counters[stateEnterPfx+"online"])
	require.Contains(t, counters, ctrlSentPfx+"setup_connection_request")
}

func TestFlattenKey(t *testing.T) {
	require.Equal(t, "panu_client_state_entered_online", flattenKey("panu.client.state.entered.online"))
	require.Equal(t, "a_b_c_d_e_f", flattenKey("a.b c-d=e/f"))
}
