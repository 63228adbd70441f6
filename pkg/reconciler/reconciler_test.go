/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package reconciler

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator/fake"
	"github.com/stprnvsh/sumo-k8/pkg/storage"
)

// fakeJobStore mirrors the guarded transition semantics of the real
// store: a row never moves backwards regardless of call order.
type fakeJobStore struct {
	mu   sync.Mutex
	rows map[string]*dbclient.Job
}

func newFakeJobStore(jobs ...*dbclient.Job) *fakeJobStore {
	store := &fakeJobStore{rows: map[string]*dbclient.Job{}}
	for _, job := range jobs {
		store.rows[job.JobId] = job
	}
	return store
}

func (s *fakeJobStore) get(jobId string) *dbclient.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[jobId]
}

func (s *fakeJobStore) selectRows(match func(*dbclient.Job) bool) []*dbclient.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*dbclient.Job
	for _, job := range s.rows {
		if match(job) {
			out = append(out, job)
		}
	}
	return out
}

func isTerminal(job *dbclient.Job) bool {
	return job.Status == dbclient.JobSucceeded || job.Status == dbclient.JobFailed
}

func (s *fakeJobStore) TerminalJobsMissingTimestamps(context.Context) ([]*dbclient.Job, error) {
	return s.selectRows(func(job *dbclient.Job) bool {
		return isTerminal(job) && (!job.StartedAt.Valid || !job.FinishedAt.Valid)
	}), nil
}

func (s *fakeJobStore) BackfillJobTimestamps(_ context.Context, jobId string, startedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.rows[jobId]
	if job == nil || !isTerminal(job) {
		return nil
	}
	if !job.StartedAt.Valid {
		if startedAt != nil {
			job.StartedAt.Time, job.StartedAt.Valid = *startedAt, true
		} else {
			job.StartedAt.Time, job.StartedAt.Valid = job.SubmittedAt, true
		}
	}
	if !job.FinishedAt.Valid {
		job.FinishedAt.Time, job.FinishedAt.Valid = time.Now(), true
	}
	return nil
}

func (s *fakeJobStore) TerminalJobsMissingResultLocation(context.Context) ([]*dbclient.Job, error) {
	return s.selectRows(func(job *dbclient.Job) bool {
		return isTerminal(job) && !job.ResultLocation.Valid
	}), nil
}

func (s *fakeJobStore) SetJobResult(_ context.Context, jobId string, location sql.NullString, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.rows[jobId]; job != nil {
		job.ResultLocation = location
		job.ResultFiles = files
	}
	return nil
}

func (s *fakeJobStore) PendingUploadJobs(context.Context) ([]*dbclient.Job, error) {
	return s.selectRows(func(job *dbclient.Job) bool {
		return job.Status == dbclient.JobSucceeded && job.ResultFiles == nil &&
			job.ResultLocation.Valid && strings.Contains(job.ResultLocation.String, "results/")
	}), nil
}

func (s *fakeJobStore) SetJobResultFiles(_ context.Context, jobId string, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.rows[jobId]; job != nil {
		job.ResultFiles = files
	}
	return nil
}

func (s *fakeJobStore) ActiveJobs(context.Context) ([]*dbclient.Job, error) {
	return s.selectRows(func(job *dbclient.Job) bool { return !isTerminal(job) }), nil
}

func (s *fakeJobStore) MarkJobRunning(_ context.Context, jobId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.rows[jobId]
	if job == nil || job.Status != dbclient.JobPending {
		return nil
	}
	job.Status = dbclient.JobRunning
	job.StartedAt.Time, job.StartedAt.Valid = time.Now(), true
	return nil
}

func (s *fakeJobStore) MarkJobTerminal(_ context.Context, jobId, status string, location sql.NullString, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.rows[jobId]
	if job == nil || isTerminal(job) {
		return nil
	}
	job.Status = status
	job.FinishedAt.Time, job.FinishedAt.Valid = time.Now(), true
	if !job.StartedAt.Valid {
		job.StartedAt.Time, job.StartedAt.Valid = time.Now(), true
	}
	job.ResultLocation = location
	job.ResultFiles = files
	return nil
}

func (s *fakeJobStore) JobExists(_ context.Context, jobId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[jobId]
	return ok, nil
}

func reconcilerJob(status string) *dbclient.Job {
	return &dbclient.Job{
		JobId:        "123e4567-e89b-12d3-a456-426614174000",
		TenantId:     "acme",
		WorkloadName: "sim-123e4567",
		Namespace:    "acme",
		Status:       status,
		SubmittedAt:  time.Now().Add(-time.Minute),
	}
}

func workloadWithCondition(job *dbclient.Job, kind batchv1.JobConditionType) batchv1.Job {
	return batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: job.WorkloadName, Namespace: job.Namespace},
		Status: batchv1.JobStatus{
			Conditions: []batchv1.JobCondition{{Type: kind, Status: corev1.ConditionTrue}},
		},
	}
}

func volumeReconciler(store Store, orch *fake.Orchestrator) *Reconciler {
	config.Init()
	config.SetValue("RESULT_STORAGE_TYPE", "volume")
	return New(store, orch, storage.NewPlanner(orch))
}

func TestSweepMarksRunning(t *testing.T) {
	job := reconcilerJob(dbclient.JobPending)
	store := newFakeJobStore(job)
	orch := fake.New()
	orch.AddWorkload(batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: job.WorkloadName, Namespace: job.Namespace},
		Status:     batchv1.JobStatus{Active: 1},
	})

	volumeReconciler(store, orch).Sweep(context.Background())
	assert.Equal(t, store.get(job.JobId).Status, dbclient.JobRunning)
	assert.Assert(t, store.get(job.JobId).StartedAt.Valid)
}

func TestSweepStaysPendingWithoutActivity(t *testing.T) {
	job := reconcilerJob(dbclient.JobPending)
	store := newFakeJobStore(job)
	orch := fake.New()
	orch.AddWorkload(batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: job.WorkloadName, Namespace: job.Namespace},
	})

	volumeReconciler(store, orch).Sweep(context.Background())
	assert.Equal(t, store.get(job.JobId).Status, dbclient.JobPending)
}

func TestSweepCompletesJob(t *testing.T) {
	job := reconcilerJob(dbclient.JobRunning)
	store := newFakeJobStore(job)
	orch := fake.New()
	orch.AddWorkload(workloadWithCondition(job, batchv1.JobComplete))

	volumeReconciler(store, orch).Sweep(context.Background())
	row := store.get(job.JobId)
	assert.Equal(t, row.Status, dbclient.JobSucceeded)
	assert.Assert(t, row.FinishedAt.Valid)
	assert.Equal(t, row.ResultLocation.String, "/results/"+job.JobId)
}

func TestSweepFailsVanishedWorkload(t *testing.T) {
	job := reconcilerJob(dbclient.JobRunning)
	store := newFakeJobStore(job)
	orch := fake.New()

	volumeReconciler(store, orch).Sweep(context.Background())
	row := store.get(job.JobId)
	assert.Equal(t, row.Status, dbclient.JobFailed)
	assert.Assert(t, row.FinishedAt.Valid)
}

func TestStatusNeverMovesBackwards(t *testing.T) {
	job := reconcilerJob(dbclient.JobRunning)
	store := newFakeJobStore(job)
	orch := fake.New()
	orch.AddWorkload(workloadWithCondition(job, batchv1.JobFailed))

	r := volumeReconciler(store, orch)
	r.Sweep(context.Background())
	assert.Equal(t, store.get(job.JobId).Status, dbclient.JobFailed)

	// A later stale observation must not resurrect the row.
	orch.AddWorkload(batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: job.WorkloadName, Namespace: job.Namespace},
		Status:     batchv1.JobStatus{Active: 1},
	})
	r.Sweep(context.Background())
	assert.Equal(t, store.get(job.JobId).Status, dbclient.JobFailed)
}

func TestTimestampBackfillUsesReportedStart(t *testing.T) {
	job := reconcilerJob(dbclient.JobSucceeded)
	store := newFakeJobStore(job)
	orch := fake.New()
	started := metav1.NewTime(time.Now().Add(-30 * time.Second))
	orch.AddWorkload(batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: job.WorkloadName, Namespace: job.Namespace},
		Status:     batchv1.JobStatus{StartTime: &started},
	})

	volumeReconciler(store, orch).backfillTimestamps(context.Background())
	row := store.get(job.JobId)
	assert.Assert(t, row.StartedAt.Valid)
	assert.Assert(t, row.FinishedAt.Valid)
	assert.Equal(t, row.StartedAt.Time.Unix(), started.Time.Unix())
}

func TestTimestampBackfillWithVanishedWorkload(t *testing.T) {
	job := reconcilerJob(dbclient.JobFailed)
	store := newFakeJobStore(job)

	volumeReconciler(store, fake.New()).backfillTimestamps(context.Background())
	row := store.get(job.JobId)
	assert.Assert(t, row.StartedAt.Valid)
	assert.Equal(t, row.StartedAt.Time.Unix(), job.SubmittedAt.Unix())
}

func TestUploadThenCleanupOrdering(t *testing.T) {
	config.Init()
	config.SetValue("RESULT_STORAGE_TYPE", "s3")
	config.SetValue("S3_BUCKET", "sim-results")
	defer func() {
		config.SetValue("RESULT_STORAGE_TYPE", "volume")
		config.SetValue("S3_BUCKET", "")
	}()

	job := reconcilerJob(dbclient.JobSucceeded)
	store := newFakeJobStore(job)
	orch := fake.New()
	r := New(store, orch, storage.NewPlanner(orch))
	ctx := context.Background()

	// First sweep assigns the location and emits the upload workload;
	// no cleanup may exist yet.
	r.backfillResultLocations(ctx)
	row := store.get(job.JobId)
	assert.Equal(t, row.ResultLocation.String, "sumo-k8-results/acme/"+job.JobId+"/")
	_, err := orch.GetWorkload(ctx, "acme", "upload-123e4567")
	assert.NilError(t, err)
	_, err = orch.GetWorkload(ctx, "acme", "cleanup-123e4567")
	assert.ErrorContains(t, err, "not found")

	// Upload still running: completion pass must not act.
	r.completeUploads(ctx)
	_, err = orch.GetWorkload(ctx, "acme", "cleanup-123e4567")
	assert.ErrorContains(t, err, "not found")
	assert.Assert(t, store.get(job.JobId).ResultFiles == nil)

	// Upload succeeded: stub written, cleanup emitted.
	orch.AddWorkload(batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: "upload-123e4567", Namespace: "acme"},
		Status:     batchv1.JobStatus{Succeeded: 1},
	})
	r.completeUploads(ctx)
	_, err = orch.GetWorkload(ctx, "acme", "cleanup-123e4567")
	assert.NilError(t, err)

	var stub resultFiles
	assert.NilError(t, json.Unmarshal(store.get(job.JobId).ResultFiles, &stub))
	assert.Equal(t, stub.StorageType, "s3")
	assert.Equal(t, stub.Uploaded, true)
	assert.Equal(t, stub.Prefix, "sumo-k8-results/acme/"+job.JobId+"/")
}

func TestOrphanSweep(t *testing.T) {
	job := reconcilerJob(dbclient.JobRunning)
	store := newFakeJobStore(job)
	orch := fake.New()
	orch.CreateNamespace(context.Background(), &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "acme"}})
	orch.CreateNamespace(context.Background(), &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "kube-system"}})

	old := metav1.NewTime(time.Now().Add(-2 * time.Hour))
	fresh := metav1.NewTime(time.Now().Add(-time.Minute))
	orch.AddConfigMap(corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
		Name: "sumo-deadbeef-chunk0", Namespace: "acme",
		Labels:            map[string]string{"cleanup": "true", "job-id": "deadbeef-0000"},
		CreationTimestamp: old,
	}})
	orch.AddConfigMap(corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
		Name: "sumo-123e4567", Namespace: "acme",
		Labels:            map[string]string{"cleanup": "true", "job-id": job.JobId},
		CreationTimestamp: old,
	}})
	orch.AddConfigMap(corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
		Name: "sumo-cafebabe", Namespace: "acme",
		Labels:            map[string]string{"cleanup": "true", "job-id": "cafebabe-0000"},
		CreationTimestamp: fresh,
	}})
	orch.AddConfigMap(corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
		Name: "sumo-feedface", Namespace: "kube-system",
		Labels:            map[string]string{"cleanup": "true", "job-id": "feedface-0000"},
		CreationTimestamp: old,
	}})

	volumeReconciler(store, orch).SweepOrphans(context.Background())

	names := orch.ConfigMapNames("acme")
	assert.Equal(t, len(names), 2)
	for _, name := range names {
		assert.Assert(t, name != "sumo-deadbeef-chunk0")
	}
	assert.Equal(t, len(orch.ConfigMapNames("kube-system")), 1)
}
