/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"time"
)

type Interface interface {
	TenantInterface
	JobInterface
	Ping(ctx context.Context) error
}

type TenantInterface interface {
	InsertTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, tenantId string) (*Tenant, error)
	GetTenantByApiKey(ctx context.Context, apiKey string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	UpdateTenantLimits(ctx context.Context, tenantId string, maxCpu, maxMemoryGi, maxConcurrentJobs *int) (*Tenant, error)
	SetTenantApiKey(ctx context.Context, tenantId, apiKey string) (*Tenant, error)
}

type JobInterface interface {
	InsertJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobId, tenantId string) (*Job, error)
	JobExists(ctx context.Context, jobId string) (bool, error)
	CountActiveJobs(ctx context.Context, tenantId string) (int, error)
	ListRecentJobs(ctx context.Context, tenantId string, limit int) ([]*Job, error)
	ListAllJobs(ctx context.Context, status string, limit int) ([]*Job, error)
	CountJobsByStatus(ctx context.Context) (map[string]int, error)

	// Reconciler passes. Each write is a single guarded statement so that
	// concurrent sweeps cannot move a row backwards.
	TerminalJobsMissingTimestamps(ctx context.Context) ([]*Job, error)
	BackfillJobTimestamps(ctx context.Context, jobId string, startedAt *time.Time) error
	TerminalJobsMissingResultLocation(ctx context.Context) ([]*Job, error)
	SetJobResult(ctx context.Context, jobId string, location sql.NullString, files []byte) error
	PendingUploadJobs(ctx context.Context) ([]*Job, error)
	SetJobResultFiles(ctx context.Context, jobId string, files []byte) error
	ActiveJobs(ctx context.Context) ([]*Job, error)
	MarkJobRunning(ctx context.Context, jobId string) error
	MarkJobTerminal(ctx context.Context, jobId, status string, location sql.NullString, files []byte) error
}
