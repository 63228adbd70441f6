/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/provisioner"
)

type sideWorkloadSpec struct {
	name       string
	job        *dbclient.Job
	image      string
	scriptBlob string
	env        []corev1.EnvVar
	kind       string
}

func workloadLabels(job *dbclient.Job, kind string) map[string]string {
	return map[string]string{
		"job-id":  job.JobId,
		"tenant":  job.TenantId,
		"cleanup": "true",
		"type":    kind,
	}
}

func scriptBlob(job *dbclient.Job, name, script string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: job.Namespace,
			Labels:    workloadLabels(job, "script"),
		},
		Data: map[string]string{"run.sh": script},
	}
}

// sideWorkload builds a single-attempt helper workload that mounts the
// tenant's result volume and the script blob, then runs the script.
func sideWorkload(spec sideWorkloadSpec) *batchv1.Job {
	executable := int32(0o755)
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.name,
			Namespace: spec.job.Namespace,
			Labels:    workloadLabels(spec.job, spec.kind),
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            ptr.To(int32(0)),
			TTLSecondsAfterFinished: ptr.To(int32(120)),
			ActiveDeadlineSeconds:   ptr.To(int64(600)),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: workloadLabels(spec.job, spec.kind),
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{{
						Name:    spec.kind,
						Image:   spec.image,
						Command: []string{"/bin/sh", "/config/run.sh"},
						Env:     spec.env,
						VolumeMounts: []corev1.VolumeMount{
							{Name: "results", MountPath: "/results"},
							{Name: "script", MountPath: "/config"},
						},
					}},
					Volumes: []corev1.Volume{
						{
							Name: "results",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: provisioner.ResultsClaimName(spec.job.Namespace),
								},
							},
						},
						{
							Name: "script",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: spec.scriptBlob},
									DefaultMode:          &executable,
								},
							},
						},
					},
				},
			},
		},
	}
}
