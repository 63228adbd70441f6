/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/stprnvsh/sumo-k8/pkg/database"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
	"github.com/stprnvsh/sumo-k8/pkg/logrelay"
	"github.com/stprnvsh/sumo-k8/pkg/metrics"
	"github.com/stprnvsh/sumo-k8/pkg/provisioner"
	"github.com/stprnvsh/sumo-k8/pkg/submission"
)

const snapshotTailLines = int64(500)

type liveStatus struct {
	Active    int32  `json:"active"`
	Succeeded int32  `json:"succeeded"`
	Failed    int32  `json:"failed"`
	Pod       string `json:"pod,omitempty"`
	PodPhase  string `json:"pod_phase,omitempty"`
}

type jobResponse struct {
	JobId          string          `json:"job_id"`
	Status         string          `json:"status"`
	Scenario       json.RawMessage `json:"scenario,omitempty"`
	CpuRequest     int             `json:"cpu_request"`
	MemoryGi       int             `json:"memory_gi"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	ResultLocation string          `json:"result_location,omitempty"`
	ResultFiles    json.RawMessage `json:"result_files,omitempty"`
	Live           *liveStatus     `json:"live,omitempty"`
}

func toJobResponse(job *dbclient.Job) *jobResponse {
	return &jobResponse{
		JobId:          job.JobId,
		Status:         job.Status,
		Scenario:       json.RawMessage(job.ScenarioData),
		CpuRequest:     job.CpuRequest,
		MemoryGi:       job.MemoryGi,
		SubmittedAt:    job.SubmittedAt,
		StartedAt:      database.ParseNullTime(job.StartedAt),
		FinishedAt:     database.ParseNullTime(job.FinishedAt),
		ResultLocation: database.ParseNullString(job.ResultLocation),
		ResultFiles:    json.RawMessage(job.ResultFiles),
	}
}

func (s *Server) submitJob(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		request, err := parseSubmission(c)
		if err != nil {
			metrics.SubmissionRejects.WithLabelValues(string(apierrors.ReasonForError(err))).Inc()
			return nil, err
		}
		job, err := s.pipeline.Submit(c.Request.Context(), tenant, request)
		if err != nil {
			metrics.SubmissionRejects.WithLabelValues(string(apierrors.ReasonForError(err))).Inc()
			return nil, err
		}
		metrics.Submissions.Inc()
		var scenario dbclient.Scenario
		_ = json.Unmarshal(job.ScenarioData, &scenario)
		return gin.H{
			"job_id":      job.JobId,
			"status":      job.Status,
			"config_file": scenario.ConfigFile,
		}, nil
	})
}

func parseSubmission(c *gin.Context) (*submission.Request, error) {
	cpuRequest, err := strconv.Atoi(c.PostForm("cpu_request"))
	if err != nil {
		return nil, commonerrors.NewInvalidInput("cpu_request must be an integer")
	}
	memoryGi, err := strconv.Atoi(c.PostForm("memory_gi"))
	if err != nil {
		return nil, commonerrors.NewInvalidInput("memory_gi must be an integer")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return nil, commonerrors.NewInvalidInput("file is required")
	}
	file, err := header.Open()
	if err != nil {
		return nil, commonerrors.NewInvalidInput("failed to read uploaded file")
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, commonerrors.NewInvalidInput("failed to read uploaded file")
	}
	return &submission.Request{
		ScenarioId: c.PostForm("scenario_id"),
		CpuRequest: cpuRequest,
		MemoryGi:   memoryGi,
		Payload:    payload,
	}, nil
}

func (s *Server) listJobs(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		jobs, err := s.store.ListRecentJobs(c.Request.Context(), tenant.TenantId, 50)
		if err != nil {
			return nil, err
		}
		responses := make([]*jobResponse, 0, len(jobs))
		for _, job := range jobs {
			responses = append(responses, toJobResponse(job))
		}
		return responses, nil
	})
}

// getJob returns the durable row; while the job is active the
// orchestrator's current view is folded into the reported status so a
// caller does not wait on the next sweep. The row itself is not written.
func (s *Server) getJob(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		job, err := s.store.GetJob(c.Request.Context(), c.Param("id"), tenant.TenantId)
		if err != nil {
			return nil, err
		}
		response := toJobResponse(job)
		if !job.IsTerminal() && s.orchestrator.Available() {
			if workload, err := s.orchestrator.GetWorkload(c.Request.Context(), job.Namespace, job.WorkloadName); err == nil {
				response.Status = observedStatus(job.Status, workload)
				response.Live = s.liveStatus(c, job, workload)
			}
		}
		return response, nil
	})
}

// observedStatus maps workload conditions onto the job status the same
// way the reconciler does, without committing the transition.
func observedStatus(current string, workload *batchv1.Job) string {
	for _, condition := range workload.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobFailed:
			return dbclient.JobFailed
		case batchv1.JobComplete:
			return dbclient.JobSucceeded
		}
	}
	if workload.Status.Active >= 1 && current == dbclient.JobPending {
		return dbclient.JobRunning
	}
	return current
}

func (s *Server) liveStatus(c *gin.Context, job *dbclient.Job, workload *batchv1.Job) *liveStatus {
	live := &liveStatus{
		Active:    workload.Status.Active,
		Succeeded: workload.Status.Succeeded,
		Failed:    workload.Status.Failed,
	}
	if pods, err := s.orchestrator.ListPods(c.Request.Context(), job.Namespace, "job-name="+job.WorkloadName); err == nil && len(pods) > 0 {
		live.Pod = pods[0].Name
		live.PodPhase = string(pods[0].Status.Phase)
	}
	return live
}

// getJobLogs returns a one-shot tail of the job's pod log.
func (s *Server) getJobLogs(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		job, err := s.store.GetJob(c.Request.Context(), c.Param("id"), tenant.TenantId)
		if err != nil {
			return nil, err
		}
		pods, err := s.orchestrator.ListPods(c.Request.Context(), job.Namespace, "job-name="+job.WorkloadName)
		if err != nil {
			return nil, err
		}
		if len(pods) == 0 {
			return nil, commonerrors.NewNotFoundWithMessage("No pod found for job")
		}
		tail := snapshotTailLines
		logs, err := s.orchestrator.GetPodLog(c.Request.Context(), job.Namespace, pods[0].Name, &tail)
		if err != nil {
			return nil, err
		}
		return gin.H{"job_id": job.JobId, "pod": pods[0].Name, "logs": logs}, nil
	})
}

// streamJobLogs relays the pod log as Server-Sent Events, flushing each
// event so the relay stays unbuffered end to end.
func (s *Server) streamJobLogs(c *gin.Context) {
	tenant := currentTenant(c)
	job, err := s.store.GetJob(c.Request.Context(), c.Param("id"), tenant.TenantId)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	flusher, _ := c.Writer.(http.Flusher)

	emit := func(event logrelay.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err = c.Writer.WriteString("data: " + string(data) + "\n\n"); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}
	_ = s.relay.Stream(c.Request.Context(), job.Namespace, job.WorkloadName, emit)
}

// getJobResults reports where the results live and, on the s3 backend,
// enumerates the uploaded objects.
func (s *Server) getJobResults(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		job, err := s.store.GetJob(c.Request.Context(), c.Param("id"), tenant.TenantId)
		if err != nil {
			return nil, err
		}
		if !job.IsTerminal() {
			return nil, commonerrors.NewInvalidInput("Job has not finished yet")
		}
		location := database.ParseNullString(job.ResultLocation)
		response := gin.H{
			"job_id":          job.JobId,
			"status":          job.Status,
			"result_location": location,
		}
		if len(job.ResultFiles) > 0 {
			response["result_files"] = json.RawMessage(job.ResultFiles)
		}
		if s.lister != nil && location != "" && !strings.HasPrefix(location, "/") {
			if files, err := s.lister.ListResults(c.Request.Context(), location); err == nil {
				response["files"] = files
			}
		}
		return response, nil
	})
}

func (s *Server) dashboard(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		ctx := c.Request.Context()
		jobs, err := s.store.ListRecentJobs(ctx, tenant.TenantId, 100)
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for _, job := range jobs {
			counts[job.Status]++
		}
		active, err := s.store.CountActiveJobs(ctx, tenant.TenantId)
		if err != nil {
			return nil, err
		}
		recent := make([]*jobResponse, 0, len(jobs))
		for _, job := range jobs {
			recent = append(recent, toJobResponse(job))
		}
		backend := s.planner.Detect(ctx)

		// The live quota document is authoritative for consumption; DB
		// sums are the fallback while the orchestrator is unreachable.
		quotaConsumed := activeQuota(jobs)
		runningPods := 0
		if s.orchestrator.Available() {
			quotaName := provisioner.QuotaName(tenant.Namespace)
			if quota, err := s.orchestrator.GetResourceQuota(ctx, tenant.Namespace, quotaName); err == nil {
				quotaConsumed = quotaUsage(quota)
			}
			if pods, err := s.orchestrator.ListPods(ctx, tenant.Namespace, ""); err == nil {
				for _, pod := range pods {
					if pod.Status.Phase == corev1.PodRunning {
						runningPods++
					}
				}
			}
		}
		return gin.H{
			"tenant": gin.H{
				"tenant_id":           tenant.TenantId,
				"namespace":           tenant.Namespace,
				"max_cpu":             tenant.MaxCpu,
				"max_memory_gi":       tenant.MaxMemoryGi,
				"max_concurrent_jobs": tenant.MaxConcurrentJobs,
			},
			"job_counts":     counts,
			"active_jobs":    active,
			"running_pods":   runningPods,
			"storage_type":   backend,
			"recent_jobs":    recent,
			"quota_consumed": quotaConsumed,
		}, nil
	})
}

// quotaUsage reports the quota's live used/hard tallies.
func quotaUsage(quota *corev1.ResourceQuota) gin.H {
	used := gin.H{}
	for name, quantity := range quota.Status.Used {
		used[string(name)] = quantity.String()
	}
	hard := gin.H{}
	for name, quantity := range quota.Spec.Hard {
		hard[string(name)] = quantity.String()
	}
	return gin.H{"used": used, "hard": hard}
}

// activeQuota sums the cpu and memory requests of non-terminal rows.
func activeQuota(jobs []*dbclient.Job) gin.H {
	cpu, memory := 0, 0
	for _, job := range jobs {
		if !job.IsTerminal() {
			cpu += job.CpuRequest
			memory += job.MemoryGi
		}
	}
	return gin.H{"cpu": cpu, "memory_gi": memory}
}
