/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"

	"github.com/gin-gonic/gin"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

// adminCluster reports node capacity and pod pressure across the cluster.
func (s *Server) adminCluster(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		ctx := c.Request.Context()
		if !s.orchestrator.Available() {
			return nil, commonerrors.NewOrchestratorUnavailable()
		}
		nodes, err := s.orchestrator.ListNodes(ctx)
		if err != nil {
			return nil, err
		}
		pods, err := s.orchestrator.ListAllPods(ctx)
		if err != nil {
			return nil, err
		}
		running := 0
		runningByNode := map[string]int{}
		for _, pod := range pods {
			if pod.Status.Phase == corev1.PodRunning {
				running++
				runningByNode[pod.Spec.NodeName]++
			}
		}
		nodeViews := make([]gin.H, 0, len(nodes))
		for _, node := range nodes {
			allocatableCpu := node.Status.Allocatable[corev1.ResourceCPU]
			allocatableMemory := node.Status.Allocatable[corev1.ResourceMemory]
			capacityCpu := node.Status.Capacity[corev1.ResourceCPU]
			capacityMemory := node.Status.Capacity[corev1.ResourceMemory]
			nodeViews = append(nodeViews, gin.H{
				"name":               node.Name,
				"node_type":          node.Labels["node-type"],
				"allocatable_cpu":    allocatableCpu.String(),
				"allocatable_memory": allocatableMemory.String(),
				"capacity_cpu":       capacityCpu.String(),
				"capacity_memory":    capacityMemory.String(),
				"running_pods":       runningByNode[node.Name],
				"ready":              nodeReady(&node),
			})
		}
		return gin.H{
			"nodes":        nodeViews,
			"total_pods":   len(pods),
			"running_pods": running,
			"storage_type": s.planner.Detect(ctx),
		}, nil
	})
}

func nodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}

type adminJobResponse struct {
	jobResponse
	TenantId  string `json:"tenant_id"`
	Namespace string `json:"namespace"`
}

// liveWorkloads indexes the orchestrator's current workloads by
// namespace/name; nil when the cluster cannot answer.
func (s *Server) liveWorkloads(ctx context.Context) map[string]*batchv1.Job {
	if !s.orchestrator.Available() {
		return nil
	}
	workloads, err := s.orchestrator.ListAllWorkloads(ctx)
	if err != nil {
		return nil
	}
	indexed := make(map[string]*batchv1.Job, len(workloads))
	for i := range workloads {
		indexed[workloads[i].Namespace+"/"+workloads[i].Name] = &workloads[i]
	}
	return indexed
}

// adminJobs lists jobs across every tenant, optionally filtered by
// status, joined with each workload's live counts.
func (s *Server) adminJobs(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		ctx := c.Request.Context()
		jobs, err := s.store.ListAllJobs(ctx, c.Query("status"), 200)
		if err != nil {
			return nil, err
		}
		live := s.liveWorkloads(ctx)
		responses := make([]*adminJobResponse, 0, len(jobs))
		for _, job := range jobs {
			view := &adminJobResponse{
				jobResponse: *toJobResponse(job),
				TenantId:    job.TenantId,
				Namespace:   job.Namespace,
			}
			if workload := live[job.Namespace+"/"+job.WorkloadName]; workload != nil {
				view.Live = &liveStatus{
					Active:    workload.Status.Active,
					Succeeded: workload.Status.Succeeded,
					Failed:    workload.Status.Failed,
				}
				if !job.IsTerminal() {
					view.Status = observedStatus(job.Status, workload)
				}
			}
			responses = append(responses, view)
		}
		return responses, nil
	})
}

// adminActivity summarises platform-wide job counts, tenants, and the
// cluster's current pod and workload pressure.
func (s *Server) adminActivity(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		ctx := c.Request.Context()
		counts, err := s.store.CountJobsByStatus(ctx)
		if err != nil {
			return nil, err
		}
		tenants, err := s.store.ListTenants(ctx)
		if err != nil {
			return nil, err
		}
		recent, err := s.store.ListAllJobs(ctx, "", 20)
		if err != nil {
			return nil, err
		}
		recentViews := make([]*jobResponse, 0, len(recent))
		for _, job := range recent {
			recentViews = append(recentViews, toJobResponse(job))
		}
		response := gin.H{
			"job_counts":  counts,
			"tenants":     len(tenants),
			"recent_jobs": recentViews,
		}
		if s.orchestrator.Available() {
			if pods, err := s.orchestrator.ListAllPods(ctx); err == nil {
				running := 0
				for _, pod := range pods {
					if pod.Status.Phase == corev1.PodRunning {
						running++
					}
				}
				response["cluster_pods"] = gin.H{"total": len(pods), "running": running}
			}
			if workloads, err := s.orchestrator.ListAllWorkloads(ctx); err == nil {
				active := 0
				for _, workload := range workloads {
					if workload.Status.Active > 0 {
						active++
					}
				}
				response["cluster_workloads"] = gin.H{"total": len(workloads), "active": active}
			}
		}
		return response, nil
	})
}
