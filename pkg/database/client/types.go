/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const (
	TTenant = "tenants"
	TJob    = "jobs"
)

// Job status values. A row only ever advances along
// PENDING -> RUNNING -> {SUCCEEDED, FAILED}.
const (
	JobPending   = "PENDING"
	JobRunning   = "RUNNING"
	JobSucceeded = "SUCCEEDED"
	JobFailed    = "FAILED"
)

type Tenant struct {
	TenantId          string    `db:"tenant_id" json:"tenant_id"`
	Namespace         string    `db:"namespace" json:"namespace"`
	ApiKey            string    `db:"api_key" json:"api_key"`
	MaxCpu            int       `db:"max_cpu" json:"max_cpu"`
	MaxMemoryGi       int       `db:"max_memory_gi" json:"max_memory_gi"`
	MaxConcurrentJobs int       `db:"max_concurrent_jobs" json:"max_concurrent_jobs"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type Job struct {
	JobId          string         `db:"job_id" json:"job_id"`
	TenantId       string         `db:"tenant_id" json:"tenant_id"`
	WorkloadName   string         `db:"workload_name" json:"workload_name"`
	Namespace      string         `db:"namespace" json:"namespace"`
	Status         string         `db:"status" json:"status"`
	ScenarioData   []byte         `db:"scenario_data" json:"scenario_data,omitempty"`
	CpuRequest     int            `db:"cpu_request" json:"cpu_request"`
	MemoryGi       int            `db:"memory_gi" json:"memory_gi"`
	SubmittedAt    time.Time      `db:"submitted_at" json:"submitted_at"`
	StartedAt      pq.NullTime    `db:"started_at" json:"-"`
	FinishedAt     pq.NullTime    `db:"finished_at" json:"-"`
	ResultLocation sql.NullString `db:"result_location" json:"-"`
	ResultFiles    []byte         `db:"result_files" json:"result_files,omitempty"`
}

// IsTerminal reports whether the row has reached a final status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// ScenarioData payload stored in the jobs table.
type Scenario struct {
	ScenarioId string `json:"scenario_id"`
	ConfigFile string `json:"config_file"`
}
