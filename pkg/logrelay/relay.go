/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package logrelay streams a workload's pod log to a caller as discrete
// events, polling the orchestrator rather than holding a watch.
package logrelay

import (
	"context"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
)

const (
	pollInterval = time.Second
	podWaitDelay = 2 * time.Second
	tailWindow   = int64(1000)
	// maxConsecutiveErrors bounds how long a broken orchestrator can
	// keep a stream open.
	maxConsecutiveErrors = 10
)

// Event is one chunk of the stream. Exactly one of the four shapes is
// populated: {message}, {pod, phase, message}, {status, message} or
// {error}.
type Event struct {
	Message string `json:"message,omitempty"`
	Pod     string `json:"pod,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EmitFunc delivers one event to the caller. A non-nil return means the
// caller dropped the stream and the relay must stop.
type EmitFunc func(Event) error

type Relay struct {
	orchestrator orchestrator.Interface

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(orch orchestrator.Interface) *Relay {
	return &Relay{
		orchestrator: orch,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stream relays the workload's log until the pod reaches a terminal
// phase, the caller drops the stream, or the error budget is spent.
func (r *Relay) Stream(ctx context.Context, namespace, workloadName string, emit EmitFunc) error {
	pod, err := r.findPod(ctx, namespace, workloadName, emit)
	if err != nil || pod == nil {
		return err
	}
	if err = emit(Event{
		Pod:     pod.Name,
		Phase:   string(pod.Status.Phase),
		Message: "Streaming logs from pod " + pod.Name,
	}); err != nil {
		return err
	}
	return r.tail(ctx, namespace, workloadName, pod.Name, emit)
}

// findPod locates the workload's pod, waiting once before giving up.
func (r *Relay) findPod(ctx context.Context, namespace, workloadName string, emit EmitFunc) (*corev1.Pod, error) {
	pod, err := r.lookupPod(ctx, namespace, workloadName)
	if err != nil {
		emit(Event{Error: "Failed to locate pod: " + err.Error()})
		return nil, nil
	}
	if pod == nil {
		if err = emit(Event{Message: "Waiting for pod to start..."}); err != nil {
			return nil, err
		}
		if !r.sleep(ctx, podWaitDelay) {
			return nil, ctx.Err()
		}
		pod, err = r.lookupPod(ctx, namespace, workloadName)
		if err != nil || pod == nil {
			emit(Event{Error: "No pod found for job"})
			return nil, nil
		}
	}
	return pod, nil
}

func (r *Relay) lookupPod(ctx context.Context, namespace, workloadName string) (*corev1.Pod, error) {
	pods, err := r.orchestrator.ListPods(ctx, namespace, "job-name="+workloadName)
	if err != nil {
		return nil, err
	}
	if len(pods) == 0 {
		return nil, nil
	}
	return &pods[0], nil
}

// tail polls the tailed log once a second, emitting only lines beyond
// the delivered count, then re-reads the pod phase. Terminal phases end
// the stream with a final full-log read and a status event.
func (r *Relay) tail(ctx context.Context, namespace, workloadName, podName string, emit EmitFunc) error {
	delivered := 0
	failures := 0
	tail := tailWindow
	for {
		log, err := r.orchestrator.GetPodLog(ctx, namespace, podName, &tail)
		if err != nil {
			failures++
			if failures >= maxConsecutiveErrors {
				klog.ErrorS(err, "log stream exhausted error budget", "pod", podName)
				emit(Event{Error: "Log streaming failed: " + err.Error()})
				return nil
			}
		} else {
			failures = 0
			if delivered, err = r.emitNewLines(log, delivered, emit); err != nil {
				return err
			}
		}

		pod, err := r.lookupPod(ctx, namespace, workloadName)
		if err != nil {
			failures++
			if failures >= maxConsecutiveErrors {
				emit(Event{Error: "Log streaming failed: " + err.Error()})
				return nil
			}
		} else if pod != nil && isTerminalPhase(pod.Status.Phase) {
			return r.collectFinal(ctx, namespace, podName, string(pod.Status.Phase), delivered, emit)
		}

		// Yield between polls so the caller can flush or drop the stream.
		if !r.sleep(ctx, pollInterval) {
			return ctx.Err()
		}
	}
}

// collectFinal reads the untailed log, emits the remaining suffix and
// the terminal status event.
func (r *Relay) collectFinal(ctx context.Context, namespace, podName, phase string, delivered int, emit EmitFunc) error {
	log, err := r.orchestrator.GetPodLog(ctx, namespace, podName, nil)
	if err == nil {
		if _, err = r.emitNewLines(log, delivered, emit); err != nil {
			return err
		}
	}
	return emit(Event{
		Status:  phase,
		Message: "Job finished with phase " + phase,
	})
}

// emitNewLines delivers lines past the delivered index. The count is
// positional: repeated content is still forwarded.
func (r *Relay) emitNewLines(log string, delivered int, emit EmitFunc) (int, error) {
	lines := splitLines(log)
	for ; delivered < len(lines); delivered++ {
		if err := emit(Event{Message: lines[delivered]}); err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

func splitLines(log string) []string {
	if log == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(log, "\n"), "\n")
}

func isTerminalPhase(phase corev1.PodPhase) bool {
	return phase == corev1.PodSucceeded || phase == corev1.PodFailed
}
