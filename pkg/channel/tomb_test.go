/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestTombStop(t *testing.T) {
	tomb := NewTomb()
	ran := false
	go func() {
		defer tomb.Done()
		for {
			if !tomb.Sleep(10 * time.Millisecond) {
				return
			}
			ran = true
		}
	}()
	time.Sleep(50 * time.Millisecond)
	tomb.Stop()
	assert.Equal(t, ran, true)
	assert.Equal(t, tomb.IsStopped(), true)
}

func TestTombSleepInterrupted(t *testing.T) {
	tomb := NewTomb()
	go func() {
		defer tomb.Done()
		// a long sleep must be cut short by Stop
		assert.Equal(t, tomb.Sleep(time.Hour), false)
	}()
	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	tomb.Stop()
	assert.Equal(t, time.Since(start) < time.Second, true)
}
