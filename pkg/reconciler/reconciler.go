/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package reconciler converges durable job state with what the
// orchestrator reports. It is the sole writer of terminal transitions
// and timestamps; errors are logged and retried on the next sweep,
// never surfaced.
package reconciler

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/channel"
	"github.com/stprnvsh/sumo-k8/pkg/config"
	"github.com/stprnvsh/sumo-k8/pkg/database"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/metrics"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
	"github.com/stprnvsh/sumo-k8/pkg/storage"
	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

const (
	sweepInterval         = 30 * time.Second
	degradedSweepInterval = 2 * time.Minute
	orphanSweepInterval   = 5 * time.Minute
	orphanMinAge          = time.Hour
)

// Store is the slice of the state store the reconciler reads and writes.
type Store interface {
	TerminalJobsMissingTimestamps(ctx context.Context) ([]*dbclient.Job, error)
	BackfillJobTimestamps(ctx context.Context, jobId string, startedAt *time.Time) error
	TerminalJobsMissingResultLocation(ctx context.Context) ([]*dbclient.Job, error)
	SetJobResult(ctx context.Context, jobId string, location sql.NullString, files []byte) error
	PendingUploadJobs(ctx context.Context) ([]*dbclient.Job, error)
	SetJobResultFiles(ctx context.Context, jobId string, files []byte) error
	ActiveJobs(ctx context.Context) ([]*dbclient.Job, error)
	MarkJobRunning(ctx context.Context, jobId string) error
	MarkJobTerminal(ctx context.Context, jobId, status string, location sql.NullString, files []byte) error
	JobExists(ctx context.Context, jobId string) (bool, error)
}

// resultFiles is the stub written once an upload side-workload succeeds.
type resultFiles struct {
	StorageType string `json:"storage_type"`
	Uploaded    bool   `json:"uploaded"`
	Prefix      string `json:"prefix"`
}

type Reconciler struct {
	store        Store
	orchestrator orchestrator.Interface
	planner      *storage.Planner

	sweepTomb  *channel.Tomb
	orphanTomb *channel.Tomb
}

func New(store Store, orch orchestrator.Interface, planner *storage.Planner) *Reconciler {
	return &Reconciler{
		store:        store,
		orchestrator: orch,
		planner:      planner,
		sweepTomb:    channel.NewTomb(),
		orphanTomb:   channel.NewTomb(),
	}
}

// Start launches the sweep loop and the orphan sweeper.
func (r *Reconciler) Start() {
	go r.runSweeps()
	go r.runOrphanSweeps()
}

// Stop terminates both loops and waits for them to exit.
func (r *Reconciler) Stop() {
	r.sweepTomb.Stop()
	r.orphanTomb.Stop()
}

func (r *Reconciler) runSweeps() {
	defer r.sweepTomb.Done()
	for {
		interval := sweepInterval
		if !r.orchestrator.Available() {
			interval = degradedSweepInterval
		} else {
			r.Sweep(context.Background())
		}
		if !r.sweepTomb.Sleep(interval) {
			return
		}
	}
}

func (r *Reconciler) runOrphanSweeps() {
	defer r.orphanTomb.Done()
	for {
		if !r.orphanTomb.Sleep(orphanSweepInterval) {
			return
		}
		if r.orchestrator.Available() {
			r.SweepOrphans(context.Background())
		}
	}
}

// Sweep runs the four per-row passes in order. Each pass is its own
// database round trip; a pass failure never blocks the next.
func (r *Reconciler) Sweep(ctx context.Context) {
	r.backfillTimestamps(ctx)
	r.backfillResultLocations(ctx)
	r.completeUploads(ctx)
	r.transitionActiveJobs(ctx)
	metrics.ReconcilerSweeps.Inc()
}

// backfillTimestamps repairs terminal rows whose timestamps were lost,
// e.g. after a crash between the orchestrator observation and the write.
func (r *Reconciler) backfillTimestamps(ctx context.Context) {
	jobs, err := r.store.TerminalJobsMissingTimestamps(ctx)
	if err != nil {
		klog.ErrorS(err, "timestamp backfill query failed")
		return
	}
	for _, job := range jobs {
		var startedAt *time.Time
		workload, err := r.orchestrator.GetWorkload(ctx, job.Namespace, job.WorkloadName)
		if err == nil && workload.Status.StartTime != nil {
			started := workload.Status.StartTime.Time
			startedAt = &started
		} else if err != nil && !apierrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to read workload for timestamp backfill", "job", job.JobId)
			continue
		}
		if err = r.store.BackfillJobTimestamps(ctx, job.JobId, startedAt); err == nil {
			klog.Infof("backfilled timestamps for job %s", job.JobId)
		}
	}
}

// backfillResultLocations assigns a result location to terminal rows
// missing one and, for succeeded rows on object-store backends, starts
// the upload side-workload.
func (r *Reconciler) backfillResultLocations(ctx context.Context) {
	jobs, err := r.store.TerminalJobsMissingResultLocation(ctx)
	if err != nil {
		klog.ErrorS(err, "result location backfill query failed")
		return
	}
	if len(jobs) == 0 {
		return
	}
	backend := r.planner.Detect(ctx)
	for _, job := range jobs {
		location := r.planner.LocationFor(backend, job)
		if err = r.store.SetJobResult(ctx, job.JobId, database.NullString(location), nil); err != nil {
			continue
		}
		if job.Status == dbclient.JobSucceeded && backend != storage.BackendVolume {
			if err = r.planner.StartUpload(ctx, backend, job); err != nil {
				if !apierrors.IsAlreadyExists(err) {
					klog.ErrorS(err, "failed to start upload", "job", job.JobId)
				}
				continue
			}
			metrics.UploadWorkloads.Inc()
		}
	}
}

// completeUploads watches pending upload side-workloads; on success it
// records the uploaded file stub and emits the volume cleanup.
func (r *Reconciler) completeUploads(ctx context.Context) {
	jobs, err := r.store.PendingUploadJobs(ctx)
	if err != nil {
		klog.ErrorS(err, "pending upload query failed")
		return
	}
	if len(jobs) == 0 {
		return
	}
	backend := r.planner.Detect(ctx)
	for _, job := range jobs {
		workload, err := r.orchestrator.GetWorkload(ctx, job.Namespace, storage.UploadWorkloadName(job.JobId))
		if err != nil || !workloadSucceeded(workload) {
			continue
		}
		stub, err := json.Marshal(resultFiles{
			StorageType: backend,
			Uploaded:    true,
			Prefix:      job.ResultLocation.String,
		})
		if err != nil {
			continue
		}
		if err = r.store.SetJobResultFiles(ctx, job.JobId, stub); err != nil {
			continue
		}
		// The local copy is only discarded once the remote copy exists.
		if err = r.planner.CleanupVolume(ctx, job); err != nil && !apierrors.IsAlreadyExists(err) {
			klog.ErrorS(err, "failed to start volume cleanup", "job", job.JobId)
		}
	}
}

// transitionActiveJobs maps orchestrator workload conditions onto row
// status. A missing workload fails the row.
func (r *Reconciler) transitionActiveJobs(ctx context.Context) {
	jobs, err := r.store.ActiveJobs(ctx)
	if err != nil {
		klog.ErrorS(err, "active job query failed")
		return
	}
	for _, job := range jobs {
		workload, err := r.orchestrator.GetWorkload(ctx, job.Namespace, job.WorkloadName)
		if apierrors.IsNotFound(err) {
			klog.Infof("workload for job %s vanished, failing row", job.JobId)
			r.markTerminal(ctx, job, dbclient.JobFailed)
			continue
		}
		if err != nil {
			klog.ErrorS(err, "failed to read workload", "job", job.JobId)
			continue
		}
		switch {
		case hasCondition(workload, batchv1.JobFailed):
			r.markTerminal(ctx, job, dbclient.JobFailed)
		case hasCondition(workload, batchv1.JobComplete):
			r.markTerminal(ctx, job, dbclient.JobSucceeded)
		case job.Status == dbclient.JobPending && workload.Status.Active >= 1:
			if err = r.store.MarkJobRunning(ctx, job.JobId); err == nil {
				metrics.StatusTransitions.WithLabelValues(dbclient.JobRunning).Inc()
			}
		}
	}
}

// markTerminal commits the terminal transition with its result
// location, then starts result handling and schedules the deferred
// config-blob cleanup.
func (r *Reconciler) markTerminal(ctx context.Context, job *dbclient.Job, status string) {
	backend := r.planner.Detect(ctx)
	location := r.planner.LocationFor(backend, job)
	if err := r.store.MarkJobTerminal(ctx, job.JobId, status, database.NullString(location), nil); err != nil {
		return
	}
	metrics.StatusTransitions.WithLabelValues(status).Inc()
	klog.Infof("job %s transitioned to %s", job.JobId, status)
	if status == dbclient.JobSucceeded && backend != storage.BackendVolume {
		if err := r.planner.StartUpload(ctx, backend, job); err == nil {
			metrics.UploadWorkloads.Inc()
		} else if !apierrors.IsAlreadyExists(err) {
			klog.ErrorS(err, "failed to start upload", "job", job.JobId)
		}
	}
	r.scheduleBlobCleanup(job)
}

// scheduleBlobCleanup deletes the job's submission-time config blobs
// after the configured delay. The worker is short-lived and honours
// shutdown through the sweep tomb.
func (r *Reconciler) scheduleBlobCleanup(job *dbclient.Job) {
	namespace := job.Namespace
	prefix := "sumo-" + stringutil.ShortId(job.JobId)
	go func() {
		if !r.sweepTomb.Sleep(config.GetConfigMapCleanupDelay()) {
			return
		}
		ctx := context.Background()
		blobs, err := r.orchestrator.ListConfigMaps(ctx, namespace, "")
		if err != nil {
			klog.ErrorS(err, "deferred blob cleanup list failed", "namespace", namespace)
			return
		}
		for _, blob := range blobs {
			if !strings.HasPrefix(blob.Name, prefix) {
				continue
			}
			if err = r.orchestrator.DeleteConfigMap(ctx, namespace, blob.Name); err != nil && !apierrors.IsNotFound(err) {
				klog.ErrorS(err, "deferred blob cleanup failed", "blob", blob.Name)
			}
		}
	}()
}

// SweepOrphans removes config blobs labelled for cleanup that are over
// an hour old and whose job row no longer exists.
func (r *Reconciler) SweepOrphans(ctx context.Context) {
	namespaces, err := r.orchestrator.ListNamespaces(ctx)
	if err != nil {
		klog.ErrorS(err, "orphan sweep namespace list failed")
		return
	}
	cutoff := time.Now().Add(-orphanMinAge)
	for _, namespace := range namespaces {
		if strings.HasPrefix(namespace.Name, "kube-") {
			continue
		}
		blobs, err := r.orchestrator.ListConfigMaps(ctx, namespace.Name, "cleanup=true")
		if err != nil {
			klog.ErrorS(err, "orphan sweep blob list failed", "namespace", namespace.Name)
			continue
		}
		for i := range blobs {
			r.sweepOrphanBlob(ctx, namespace.Name, &blobs[i], cutoff)
		}
	}
}

func (r *Reconciler) sweepOrphanBlob(ctx context.Context, namespace string, blob *corev1.ConfigMap, cutoff time.Time) {
	if blob.CreationTimestamp.Time.After(cutoff) {
		return
	}
	jobId := blob.Labels["job-id"]
	if jobId == "" {
		return
	}
	exists, err := r.store.JobExists(ctx, jobId)
	if err != nil || exists {
		return
	}
	if err = r.orchestrator.DeleteConfigMap(ctx, namespace, blob.Name); err != nil {
		if !apierrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to delete orphaned blob", "blob", blob.Name)
		}
		return
	}
	metrics.OrphanedBlobs.Inc()
	klog.Infof("deleted orphaned config blob %s/%s", namespace, blob.Name)
}

func workloadSucceeded(workload *batchv1.Job) bool {
	return hasCondition(workload, batchv1.JobComplete) || workload.Status.Succeeded >= 1
}

func hasCondition(workload *batchv1.Job, kind batchv1.JobConditionType) bool {
	for _, condition := range workload.Status.Conditions {
		if condition.Type == kind && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
