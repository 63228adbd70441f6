/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import "time"

// Tomb is used to control the lifecycle of a background goroutine.
type Tomb struct {
	stop chan struct{}
	done chan struct{}
}

// NewTomb creates a new tomb.
func NewTomb() *Tomb {
	return &Tomb{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Stop is used to stop the goroutine outside and waits until it exits.
func (t *Tomb) Stop() {
	close(t.stop)
	<-t.done
}

// Stopping is used by the goroutine to tell whether it should stop.
func (t *Tomb) Stopping() <-chan struct{} {
	return t.stop
}

// Done is used by the goroutine to inform that it has stopped.
func (t *Tomb) Done() {
	close(t.done)
}

// Sleep waits for the given duration unless the tomb is stopped first.
// It returns false if the tomb was stopped while sleeping.
func (t *Tomb) Sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.stop:
		return false
	case <-timer.C:
		return true
	}
}

// IsStopped reports whether Stop has been requested.
func (t *Tomb) IsStopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}
