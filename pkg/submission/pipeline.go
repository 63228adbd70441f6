/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package submission admits a scenario upload, persists the PENDING
// row and materialises the simulation workload in the orchestrator.
package submission

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

// Store is the slice of the state store the pipeline writes through.
type Store interface {
	CountActiveJobs(ctx context.Context, tenantId string) (int, error)
	InsertJob(ctx context.Context, job *dbclient.Job) error
}

// Isolator converges the tenant's namespace-level isolation objects.
type Isolator interface {
	EnsureTenantIsolation(ctx context.Context, tenant *dbclient.Tenant) error
}

type Request struct {
	ScenarioId string
	CpuRequest int
	MemoryGi   int
	Payload    []byte
}

type Pipeline struct {
	store        Store
	orchestrator orchestrator.Interface
	isolator     Isolator
}

func NewPipeline(store Store, orch orchestrator.Interface, isolator Isolator) *Pipeline {
	return &Pipeline{store: store, orchestrator: orch, isolator: isolator}
}

// Submit admits the request, inserts the PENDING row and emits the
// workload. A row whose materialisation fails stays behind for the
// reconciler to fail on its next sweep.
func (p *Pipeline) Submit(ctx context.Context, tenant *dbclient.Tenant, request *Request) (*dbclient.Job, error) {
	configFile, err := p.admit(ctx, tenant, request)
	if err != nil {
		return nil, err
	}

	jobId := uuid.NewString()
	scenario, err := json.Marshal(dbclient.Scenario{
		ScenarioId: request.ScenarioId,
		ConfigFile: configFile,
	})
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	job := &dbclient.Job{
		JobId:        jobId,
		TenantId:     tenant.TenantId,
		WorkloadName: "sim-" + stringutil.ShortId(jobId),
		Namespace:    tenant.Namespace,
		Status:       dbclient.JobPending,
		ScenarioData: scenario,
		CpuRequest:   request.CpuRequest,
		MemoryGi:     request.MemoryGi,
	}
	if err = p.store.InsertJob(ctx, job); err != nil {
		return nil, commonerrors.NewInternalError("failed to persist job")
	}
	if err = p.isolator.EnsureTenantIsolation(ctx, tenant); err != nil {
		klog.ErrorS(err, "failed to converge tenant isolation", "tenant", tenant.TenantId)
		return nil, commonerrors.NewInternalError("failed to prepare tenant namespace")
	}
	if err = p.emit(ctx, job, request); err != nil {
		return nil, err
	}
	klog.Infof("submitted job %s for tenant %s", jobId, tenant.TenantId)
	return job, nil
}

// admit runs the validation sequence and returns the scenario config
// file name recorded on the row.
func (p *Pipeline) admit(ctx context.Context, tenant *dbclient.Tenant, request *Request) (string, error) {
	if length := len(request.ScenarioId); length < 1 || length > 100 {
		return "", commonerrors.NewInvalidInput("scenario_id must be between 1 and 100 characters")
	}
	if request.CpuRequest < 1 || request.CpuRequest > tenant.MaxCpu {
		return "", commonerrors.NewInvalidInputf(
			"cpu_request must be between 1 and %d", tenant.MaxCpu)
	}
	if request.MemoryGi < 1 || request.MemoryGi > tenant.MaxMemoryGi {
		return "", commonerrors.NewInvalidInputf(
			"memory_gi must be between 1 and %d", tenant.MaxMemoryGi)
	}
	if len(request.Payload) == 0 {
		return "", commonerrors.NewInvalidInput("Uploaded file is empty")
	}
	if maxBytes := config.GetMaxFileSizeMB() * 1024 * 1024; len(request.Payload) > maxBytes {
		return "", commonerrors.NewPayloadTooLarge(
			fmt.Sprintf("File exceeds %d MB limit", config.GetMaxFileSizeMB()))
	}
	configFile, err := scenarioConfigFile(request.Payload)
	if err != nil {
		return "", err
	}
	active, err := p.store.CountActiveJobs(ctx, tenant.TenantId)
	if err != nil {
		return "", commonerrors.NewInternalError("failed to count active jobs")
	}
	if active >= tenant.MaxConcurrentJobs {
		return "", commonerrors.NewTooManyJobs(active, tenant.MaxConcurrentJobs)
	}
	return configFile, nil
}

// scenarioConfigFile parses the payload as a ZIP archive and returns
// the first entry ending in .sumocfg.
func scenarioConfigFile(payload []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", commonerrors.NewInvalidInput("Uploaded file is not a valid ZIP archive")
	}
	for _, entry := range reader.File {
		if strings.HasSuffix(entry.Name, ".sumocfg") {
			return entry.Name, nil
		}
	}
	return "", commonerrors.NewInvalidInput("ZIP archive contains no .sumocfg file")
}

// emit creates every config blob before the workload. On a partial
// blob-creation failure the already-created blobs are deleted before
// the error is surfaced.
func (p *Pipeline) emit(ctx context.Context, job *dbclient.Job, request *Request) error {
	plan := materialise(job, request.ScenarioId, request.Payload)
	var created []string
	for _, blob := range plan.blobs {
		if err := p.orchestrator.CreateConfigMap(ctx, job.Namespace, blob); err != nil {
			klog.ErrorS(err, "failed to create config blob", "job", job.JobId, "blob", blob.Name)
			p.rollbackBlobs(ctx, job.Namespace, created)
			return commonerrors.NewInternalError("failed to stage scenario data")
		}
		created = append(created, blob.Name)
	}
	if err := p.orchestrator.CreateWorkload(ctx, job.Namespace, plan.workload); err != nil {
		klog.ErrorS(err, "failed to create workload", "job", job.JobId)
		p.rollbackBlobs(ctx, job.Namespace, created)
		return commonerrors.NewInternalError("failed to start simulation")
	}
	return nil
}

func (p *Pipeline) rollbackBlobs(ctx context.Context, namespace string, names []string) {
	for _, name := range names {
		if err := p.orchestrator.DeleteConfigMap(ctx, namespace, name); err != nil {
			klog.ErrorS(err, "failed to roll back config blob", "blob", name)
		}
	}
}
