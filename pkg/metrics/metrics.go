/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the controller's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_job_submissions_total",
		Help: "Jobs accepted by the submission pipeline.",
	})

	SubmissionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_job_submission_rejects_total",
		Help: "Submissions rejected at admission, by reason.",
	}, []string{"reason"})

	ReconcilerSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_reconciler_sweeps_total",
		Help: "Completed reconciler sweeps.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sumo_job_status_transitions_total",
		Help: "Durable job status transitions, by target status.",
	}, []string{"status"})

	OrphanedBlobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_orphaned_blobs_deleted_total",
		Help: "Config blobs removed by the orphan sweeper.",
	})

	UploadWorkloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sumo_upload_workloads_total",
		Help: "Upload side-workloads emitted.",
	})
)
