/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package submission

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/provisioner"
	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

const entrypointKey = "entrypoint.sh"

// materialisation is everything the pipeline must create in the
// orchestrator for one job: the config blobs first, then the workload.
type materialisation struct {
	blobs    []*corev1.ConfigMap
	workload *batchv1.Job
}

func blobLabels(job *dbclient.Job) map[string]string {
	return map[string]string{
		"job-id":  job.JobId,
		"tenant":  job.TenantId,
		"cleanup": "true",
	}
}

// materialise encodes the payload, shards it when the encoded size
// exceeds the per-blob threshold, and builds the workload manifest
// that reassembles and runs it.
func materialise(job *dbclient.Job, scenarioId string, payload []byte) materialisation {
	encoded := stringutil.Base64Encode(payload)
	primary := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      BlobName(job.JobId),
			Namespace: job.Namespace,
			Labels:    blobLabels(job),
		},
		Data: map[string]string{},
	}
	blobs := []*corev1.ConfigMap{primary}
	chunks := 0
	if len(encoded) <= ShardThreshold {
		primary.Data[singleBlobKey] = encoded
	} else {
		shards := splitShards(encoded)
		chunks = len(shards)
		for i, shard := range shards {
			blobs = append(blobs, &corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{
					Name:      ChunkBlobName(job.JobId, i),
					Namespace: job.Namespace,
					Labels:    blobLabels(job),
				},
				Data: map[string]string{chunkKey: shard},
			})
		}
	}
	primary.Data[entrypointKey] = entrypointScript(job.JobId, chunks)
	return materialisation{
		blobs:    blobs,
		workload: simulationWorkload(job, scenarioId, chunks),
	}
}

// entrypointScript reassembles the payload (shards in decimal index
// order), runs the simulator against the first scenario config found,
// and copies the outputs onto the result volume.
func entrypointScript(jobId string, chunks int) string {
	reassemble := fmt.Sprintf("base64 -d /config/%s > scenario.zip", singleBlobKey)
	if chunks > 0 {
		reassemble = fmt.Sprintf(`for i in $(seq 0 %d); do
  cat "/chunks/chunk$i/%s"
done | base64 -d > scenario.zip`, chunks-1, chunkKey)
	}
	return fmt.Sprintf(`#!/bin/sh
set -e
mkdir -p /workspace
cd /workspace
%s
if ! command -v unzip >/dev/null 2>&1; then
  apt-get update -qq && apt-get install -y -qq unzip >/dev/null 2>&1 || apk add --no-cache unzip >/dev/null 2>&1 || yum install -y -q unzip >/dev/null 2>&1
fi
unzip -o scenario.zip
rm scenario.zip
config=$(find . -name '*.sumocfg' | sort | head -n 1)
sumo -c "$config"
mkdir -p /results/%s
find . \( -name '*.xml' -o -name '*.txt' -o -name '*.log' \) -exec cp {} /results/%s/ \;
`, reassemble, jobId, jobId)
}

func simulationWorkload(job *dbclient.Job, scenarioId string, chunks int) *batchv1.Job {
	labels := blobLabels(job)
	labels["type"] = "simulation"
	cpu := resource.MustParse(fmt.Sprintf("%d", job.CpuRequest))
	memory := resource.MustParse(fmt.Sprintf("%dGi", job.MemoryGi))
	resources := corev1.ResourceList{
		corev1.ResourceCPU:    cpu,
		corev1.ResourceMemory: memory,
	}
	executable := int32(0o755)

	volumes := []corev1.Volume{
		{
			Name: "results",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: provisioner.ResultsClaimName(job.Namespace),
				},
			},
		},
		{
			Name: "config",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: BlobName(job.JobId)},
					DefaultMode:          &executable,
				},
			},
		},
	}
	mounts := []corev1.VolumeMount{
		{Name: "results", MountPath: "/results"},
		{Name: "config", MountPath: "/config"},
	}
	for i := 0; i < chunks; i++ {
		name := fmt.Sprintf("chunk%d", i)
		volumes = append(volumes, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ChunkBlobName(job.JobId, i)},
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      name,
			MountPath: "/chunks/" + name,
		})
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      job.WorkloadName,
			Namespace: job.Namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            ptr.To(int32(0)),
			TTLSecondsAfterFinished: ptr.To(int32(120)),
			ActiveDeadlineSeconds:   ptr.To(int64(config.GetMaxJobDurationHours()) * 3600),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					NodeSelector:  map[string]string{"node-type": "simulation"},
					Containers: []corev1.Container{{
						Name:    "simulation",
						Image:   config.GetSimulatorImage(),
						Command: []string{"/bin/sh", "/config/" + entrypointKey},
						Env: []corev1.EnvVar{
							{Name: "SCENARIO_ID", Value: scenarioId},
						},
						Resources: corev1.ResourceRequirements{
							Requests: resources,
							Limits:   resources,
						},
						VolumeMounts: mounts,
					}},
					Volumes: volumes,
				},
			},
		},
	}
}
