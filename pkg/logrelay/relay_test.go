/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package logrelay

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/stprnvsh/sumo-k8/pkg/orchestrator/fake"
)

func relayPod(phase corev1.PodPhase) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sim-123e4567-abcde",
			Namespace: "acme",
			Labels:    map[string]string{"job-name": "sim-123e4567"},
		},
		Status: corev1.PodStatus{Phase: phase},
	}
}

// instantRelay replaces the poll sleep with a callback hook so tests can
// mutate the fake between iterations.
func instantRelay(orch *fake.Orchestrator, onSleep func(iteration int)) *Relay {
	r := New(orch)
	iteration := 0
	r.sleep = func(context.Context, time.Duration) bool {
		iteration++
		if onSleep != nil {
			onSleep(iteration)
		}
		return true
	}
	return r
}

func collect(events *[]Event) EmitFunc {
	return func(event Event) error {
		*events = append(*events, event)
		return nil
	}
}

func TestStreamHappyPath(t *testing.T) {
	orch := fake.New()
	orch.AddPod(relayPod(corev1.PodRunning))
	orch.SetPodLog("acme", "sim-123e4567-abcde", "line one\nline two\n")

	var events []Event
	relay := instantRelay(orch, func(iteration int) {
		if iteration == 1 {
			orch.SetPodLog("acme", "sim-123e4567-abcde", "line one\nline two\nline three\n")
			orch.AddPod(relayPod(corev1.PodSucceeded))
		}
	})

	err := relay.Stream(context.Background(), "acme", "sim-123e4567", collect(&events))
	assert.NilError(t, err)

	assert.Equal(t, events[0].Pod, "sim-123e4567-abcde")
	var lines []string
	var status string
	for _, event := range events[1:] {
		if event.Status != "" {
			status = event.Status
		} else {
			lines = append(lines, event.Message)
		}
	}
	assert.DeepEqual(t, lines, []string{"line one", "line two", "line three"})
	assert.Equal(t, status, "Succeeded")
}

func TestStreamWaitsOnceForPod(t *testing.T) {
	orch := fake.New()

	var events []Event
	relay := New(orch)
	relay.sleep = func(context.Context, time.Duration) bool {
		orch.AddPod(relayPod(corev1.PodSucceeded))
		orch.SetPodLog("acme", "sim-123e4567-abcde", "done\n")
		return true
	}

	err := relay.Stream(context.Background(), "acme", "sim-123e4567", collect(&events))
	assert.NilError(t, err)
	assert.Equal(t, events[0].Message, "Waiting for pod to start...")
	last := events[len(events)-1]
	assert.Equal(t, last.Status, "Succeeded")
}

func TestStreamGivesUpWithoutPod(t *testing.T) {
	orch := fake.New()
	var events []Event
	err := instantRelay(orch, nil).Stream(context.Background(), "acme", "sim-123e4567", collect(&events))
	assert.NilError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, last.Error, "No pod found for job")
}

func TestStreamClosesAfterErrorBudget(t *testing.T) {
	orch := fake.New()
	orch.AddPod(relayPod(corev1.PodRunning))
	orch.Errs["GetPodLog"] = errors.New("connection refused")

	var events []Event
	iterations := 0
	relay := instantRelay(orch, func(int) { iterations++ })
	err := relay.Stream(context.Background(), "acme", "sim-123e4567", collect(&events))
	assert.NilError(t, err)

	last := events[len(events)-1]
	assert.ErrorContains(t, errors.New(last.Error), "connection refused")
	assert.Assert(t, iterations < 15)
}

func TestStreamStopsWhenCallerDrops(t *testing.T) {
	orch := fake.New()
	orch.AddPod(relayPod(corev1.PodRunning))
	orch.SetPodLog("acme", "sim-123e4567-abcde", "line one\nline two\n")

	emitted := 0
	relay := instantRelay(orch, nil)
	err := relay.Stream(context.Background(), "acme", "sim-123e4567", func(Event) error {
		emitted++
		if emitted >= 2 {
			return errors.New("client gone")
		}
		return nil
	})
	assert.ErrorContains(t, err, "client gone")
}
