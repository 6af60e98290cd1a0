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

package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndClamps(t *testing.T) {
	b := newBackoff(100, 250)
	require.Equal(t, uint32(100), b.next())
	require.Equal(t, uint32(200), b.next())
	require.Equal(t, uint32(250), b.next(), "doubling past max clamps")
	require.Equal(t, uint32(250), b.next(), "stays clamped on further calls")
}

func TestBackoffResetReturnsToInterval(t *testing.T) {
	b := newBackoff(100, 250)
	b.next()
	b.next()
	require.Equal(t, 2, b.attemptCount())
	b.reset()
	require.Equal(t, 0, b.attemptCount())
	require.Equal(t, uint32(100), b.next(), "first call after reset returns the base interval")
}

func TestBackoffSingleStepNeverExceedsMax(t *testing.T) {
	b := newBackoff(500, 500)
	require.Equal(t, uint32(500), b.next())
	require.Equal(t, uint32(500), b.next())
}

func TestBackoffAttemptCounting(t *testing.T) {
	b := newBackoff(10, 1000)
	require.Equal(t, 0, b.attemptCount())
	for i := 1; i <= 5; i++ {
		b.next()
		require.Equal(t, i, b.attemptCount())
	}
}
