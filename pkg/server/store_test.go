/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

// memoryStore is an in-memory state store for handler tests.
type memoryStore struct {
	mu      sync.Mutex
	tenants map[string]*dbclient.Tenant
	jobs    map[string]*dbclient.Job
	// pingErr makes Ping fail so the health handlers can be exercised.
	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tenants: map[string]*dbclient.Tenant{},
		jobs:    map[string]*dbclient.Job{},
	}
}

var _ dbclient.Interface = (*memoryStore)(nil)

func (s *memoryStore) Ping(context.Context) error { return s.pingErr }

func (s *memoryStore) InsertTenant(_ context.Context, tenant *dbclient.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.TenantId]; ok {
		return commonerrors.NewConflict("Tenant " + tenant.TenantId + " already exists")
	}
	for _, existing := range s.tenants {
		if existing.Namespace == tenant.Namespace {
			return commonerrors.NewConflict("Namespace " + tenant.Namespace + " already exists")
		}
	}
	tenant.CreatedAt = time.Now()
	s.tenants[tenant.TenantId] = tenant
	return nil
}

func (s *memoryStore) GetTenant(_ context.Context, tenantId string) (*dbclient.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantId]
	if !ok {
		return nil, commonerrors.NewNotFound("tenant", tenantId)
	}
	return tenant, nil
}

func (s *memoryStore) GetTenantByApiKey(_ context.Context, apiKey string) (*dbclient.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tenant := range s.tenants {
		if tenant.ApiKey == apiKey {
			return tenant, nil
		}
	}
	return nil, commonerrors.NewUnauthenticated("Invalid API key")
}

func (s *memoryStore) ListTenants(context.Context) ([]*dbclient.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*dbclient.Tenant
	for _, tenant := range s.tenants {
		out = append(out, tenant)
	}
	return out, nil
}

func (s *memoryStore) UpdateTenantLimits(ctx context.Context, tenantId string,
	maxCpu, maxMemoryGi, maxConcurrentJobs *int) (*dbclient.Tenant, error) {
	if maxCpu == nil && maxMemoryGi == nil && maxConcurrentJobs == nil {
		return nil, commonerrors.NewInvalidInput("No updates provided")
	}
	tenant, err := s.GetTenant(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxCpu != nil {
		tenant.MaxCpu = *maxCpu
	}
	if maxMemoryGi != nil {
		tenant.MaxMemoryGi = *maxMemoryGi
	}
	if maxConcurrentJobs != nil {
		tenant.MaxConcurrentJobs = *maxConcurrentJobs
	}
	return tenant, nil
}

func (s *memoryStore) SetTenantApiKey(ctx context.Context, tenantId, apiKey string) (*dbclient.Tenant, error) {
	tenant, err := s.GetTenant(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant.ApiKey = apiKey
	return tenant, nil
}

func (s *memoryStore) InsertJob(_ context.Context, job *dbclient.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	s.jobs[job.JobId] = job
	return nil
}

func (s *memoryStore) GetJob(_ context.Context, jobId, tenantId string) (*dbclient.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobId]
	if !ok || job.TenantId != tenantId {
		return nil, commonerrors.NewNotFoundWithMessage("Job not found")
	}
	return job, nil
}

func (s *memoryStore) JobExists(_ context.Context, jobId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobId]
	return ok, nil
}

func (s *memoryStore) CountActiveJobs(_ context.Context, tenantId string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, job := range s.jobs {
		if job.TenantId == tenantId && !job.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) listJobs(match func(*dbclient.Job) bool, limit int) []*dbclient.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*dbclient.Job
	for _, job := range s.jobs {
		if match(job) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *memoryStore) ListRecentJobs(_ context.Context, tenantId string, limit int) ([]*dbclient.Job, error) {
	return s.listJobs(func(job *dbclient.Job) bool { return job.TenantId == tenantId }, limit), nil
}

func (s *memoryStore) ListAllJobs(_ context.Context, status string, limit int) ([]*dbclient.Job, error) {
	return s.listJobs(func(job *dbclient.Job) bool {
		return status == "" || job.Status == status
	}, limit), nil
}

func (s *memoryStore) CountJobsByStatus(context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (s *memoryStore) TerminalJobsMissingTimestamps(context.Context) ([]*dbclient.Job, error) {
	return nil, nil
}

func (s *memoryStore) BackfillJobTimestamps(context.Context, string, *time.Time) error {
	return nil
}

func (s *memoryStore) TerminalJobsMissingResultLocation(context.Context) ([]*dbclient.Job, error) {
	return nil, nil
}

func (s *memoryStore) SetJobResult(_ context.Context, jobId string, location sql.NullString, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.jobs[jobId]; job != nil {
		job.ResultLocation = location
		job.ResultFiles = files
	}
	return nil
}

func (s *memoryStore) PendingUploadJobs(context.Context) ([]*dbclient.Job, error) {
	return nil, nil
}

func (s *memoryStore) SetJobResultFiles(_ context.Context, jobId string, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.jobs[jobId]; job != nil {
		job.ResultFiles = files
	}
	return nil
}

func (s *memoryStore) ActiveJobs(context.Context) ([]*dbclient.Job, error) {
	return s.listJobs(func(job *dbclient.Job) bool { return !job.IsTerminal() }, -1), nil
}

func (s *memoryStore) MarkJobRunning(_ context.Context, jobId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.jobs[jobId]; job != nil && job.Status == dbclient.JobPending {
		job.Status = dbclient.JobRunning
	}
	return nil
}

func (s *memoryStore) MarkJobTerminal(_ context.Context, jobId, status string, location sql.NullString, files []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job := s.jobs[jobId]; job != nil && !job.IsTerminal() {
		job.Status = status
		job.ResultLocation = location
		job.ResultFiles = files
	}
	return nil
}
