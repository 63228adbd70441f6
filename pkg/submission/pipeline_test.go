/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package submission

import (
	"archive/zip"
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"gotest.tools/assert"
	corev1 "k8s.io/api/core/v1"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator/fake"
)

type fakeStore struct {
	active int
	jobs   []*dbclient.Job
}

func (s *fakeStore) CountActiveJobs(context.Context, string) (int, error) {
	return s.active, nil
}

func (s *fakeStore) InsertJob(_ context.Context, job *dbclient.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type fakeIsolator struct{ calls int }

func (i *fakeIsolator) EnsureTenantIsolation(context.Context, *dbclient.Tenant) error {
	i.calls++
	return nil
}

func submissionTenant() *dbclient.Tenant {
	return &dbclient.Tenant{
		TenantId:          "acme",
		Namespace:         "acme",
		MaxCpu:            4,
		MaxMemoryGi:       8,
		MaxConcurrentJobs: 1,
	}
}

func zipPayload(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, content := range files {
		entry, err := writer.Create(name)
		assert.NilError(t, err)
		_, err = entry.Write(content)
		assert.NilError(t, err)
	}
	assert.NilError(t, writer.Close())
	return buffer.Bytes()
}

func validRequest(t *testing.T) *Request {
	return &Request{
		ScenarioId: "s1",
		CpuRequest: 2,
		MemoryGi:   4,
		Payload:    zipPayload(t, map[string][]byte{"run.sumocfg": []byte("<configuration/>")}),
	}
}

func TestSubmitHappyPath(t *testing.T) {
	config.Init()
	store := &fakeStore{}
	orch := fake.New()
	isolator := &fakeIsolator{}
	p := NewPipeline(store, orch, isolator)

	job, err := p.Submit(context.Background(), submissionTenant(), validRequest(t))
	assert.NilError(t, err)
	assert.Equal(t, job.Status, dbclient.JobPending)
	assert.Equal(t, job.WorkloadName, "sim-"+job.JobId[:8])
	assert.Equal(t, isolator.calls, 1)
	assert.Equal(t, len(store.jobs), 1)

	workload, err := orch.GetWorkload(context.Background(), "acme", job.WorkloadName)
	assert.NilError(t, err)
	assert.Equal(t, *workload.Spec.BackoffLimit, int32(0))
	assert.Equal(t, *workload.Spec.TTLSecondsAfterFinished, int32(120))
	assert.Equal(t, *workload.Spec.ActiveDeadlineSeconds, int64(24*3600))
	pod := workload.Spec.Template.Spec
	assert.Equal(t, pod.RestartPolicy, corev1.RestartPolicyNever)
	assert.Equal(t, pod.NodeSelector["node-type"], "simulation")
	container := pod.Containers[0]
	cpu := container.Resources.Requests[corev1.ResourceCPU]
	cpuLimit := container.Resources.Limits[corev1.ResourceCPU]
	memory := container.Resources.Requests[corev1.ResourceMemory]
	memoryLimit := container.Resources.Limits[corev1.ResourceMemory]
	assert.Equal(t, cpu.String(), "2")
	assert.Equal(t, cpuLimit.String(), "2")
	assert.Equal(t, memory.String(), "4Gi")
	assert.Equal(t, memoryLimit.String(), "4Gi")
	assert.Equal(t, container.Env[0].Name, "SCENARIO_ID")
	assert.Equal(t, container.Env[0].Value, "s1")

	blobs, err := orch.ListConfigMaps(context.Background(), "acme", "job-id="+job.JobId)
	assert.NilError(t, err)
	assert.Equal(t, len(blobs), 1)
	assert.Equal(t, blobs[0].Name, BlobName(job.JobId))
}

func TestSubmitResourceBounds(t *testing.T) {
	config.Init()
	tenant := submissionTenant()
	p := NewPipeline(&fakeStore{}, fake.New(), &fakeIsolator{})

	for _, cpu := range []int{1, tenant.MaxCpu} {
		request := validRequest(t)
		request.CpuRequest = cpu
		_, err := p.Submit(context.Background(), tenant, request)
		assert.NilError(t, err)
	}

	request := validRequest(t)
	request.CpuRequest = tenant.MaxCpu + 1
	_, err := p.Submit(context.Background(), tenant, request)
	assert.ErrorContains(t, err, "between 1 and 4")

	request = validRequest(t)
	request.MemoryGi = tenant.MaxMemoryGi + 1
	_, err = p.Submit(context.Background(), tenant, request)
	assert.ErrorContains(t, err, "between 1 and 8")

	request = validRequest(t)
	request.CpuRequest = 0
	_, err = p.Submit(context.Background(), tenant, request)
	assert.ErrorContains(t, err, "between 1 and 4")
}

func TestSubmitPayloadValidation(t *testing.T) {
	config.Init()
	p := NewPipeline(&fakeStore{}, fake.New(), &fakeIsolator{})
	ctx := context.Background()

	request := validRequest(t)
	request.Payload = nil
	_, err := p.Submit(ctx, submissionTenant(), request)
	assert.ErrorContains(t, err, "empty")

	request = validRequest(t)
	request.Payload = []byte("not a zip archive")
	_, err = p.Submit(ctx, submissionTenant(), request)
	assert.ErrorContains(t, err, "not a valid ZIP")

	request = validRequest(t)
	request.Payload = zipPayload(t, map[string][]byte{"notes.txt": []byte("hi")})
	_, err = p.Submit(ctx, submissionTenant(), request)
	assert.ErrorContains(t, err, "no .sumocfg")
}

func TestSubmitOversizePayload(t *testing.T) {
	config.Init()
	config.SetValue("MAX_FILE_SIZE_MB", 1)
	defer config.SetValue("MAX_FILE_SIZE_MB", 100)

	p := NewPipeline(&fakeStore{}, fake.New(), &fakeIsolator{})
	request := validRequest(t)
	request.Payload = make([]byte, 1024*1024+1)
	_, err := p.Submit(context.Background(), submissionTenant(), request)
	assert.ErrorContains(t, err, "exceeds 1 MB")
}

func TestSubmitTooManyJobs(t *testing.T) {
	config.Init()
	store := &fakeStore{active: 1}
	p := NewPipeline(store, fake.New(), &fakeIsolator{})

	_, err := p.Submit(context.Background(), submissionTenant(), validRequest(t))
	assert.Assert(t, commonerrors.IsTooManyJobs(err))
	assert.ErrorContains(t, err, "(1/1)")
}

func TestSubmitShardsLargePayload(t *testing.T) {
	config.Init()
	store := &fakeStore{}
	orch := fake.New()
	p := NewPipeline(store, orch, &fakeIsolator{})

	noise := make([]byte, 950*1024)
	rand.New(rand.NewSource(7)).Read(noise)
	request := validRequest(t)
	request.Payload = zipPayload(t, map[string][]byte{
		"run.sumocfg": []byte("<configuration/>"),
		"network.bin": noise,
	})

	job, err := p.Submit(context.Background(), submissionTenant(), request)
	assert.NilError(t, err)

	_, err = orch.GetWorkload(context.Background(), "acme", job.WorkloadName)
	assert.NilError(t, err)
	for _, name := range []string{
		BlobName(job.JobId),
		ChunkBlobName(job.JobId, 0),
		ChunkBlobName(job.JobId, 1),
	} {
		blobs, err := orch.ListConfigMaps(context.Background(), "acme", "")
		assert.NilError(t, err)
		found := false
		for _, blob := range blobs {
			if blob.Name == name {
				found = true
			}
		}
		assert.Assert(t, found, "missing blob %s", name)
	}
}

func TestSubmitRollsBackShardsOnPartialFailure(t *testing.T) {
	config.Init()
	orch := fake.New()
	orch.FailCreateConfigMapAfter = 2
	p := NewPipeline(&fakeStore{}, orch, &fakeIsolator{})

	noise := make([]byte, 950*1024)
	rand.New(rand.NewSource(7)).Read(noise)
	request := validRequest(t)
	request.Payload = zipPayload(t, map[string][]byte{
		"run.sumocfg": []byte("<configuration/>"),
		"network.bin": noise,
	})

	_, err := p.Submit(context.Background(), submissionTenant(), request)
	assert.ErrorContains(t, err, "failed to stage scenario data")
	assert.Equal(t, len(orch.ConfigMapNames("acme")), 0)
}

func TestEntrypointScriptWorkspaceSetup(t *testing.T) {
	for _, chunks := range []int{0, 3} {
		script := entrypointScript("123e4567-e89b-12d3-a456-426614174000", chunks)
		assert.Assert(t, strings.Contains(script, "mkdir -p /workspace"), script)
		assert.Assert(t, strings.Contains(script, "cd /workspace"), script)
		assert.Assert(t, strings.Contains(script, "command -v unzip"), script)
		assert.Assert(t, strings.Contains(script, "apk add --no-cache unzip"), script)
	}
	sharded := entrypointScript("123e4567-e89b-12d3-a456-426614174000", 2)
	assert.Assert(t, strings.Contains(sharded, "seq 0 1"), sharded)
}
