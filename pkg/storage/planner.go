/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package storage decides where finished simulation results live and
// emits the side-workloads that move them there.
package storage

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

// Result backends.
const (
	BackendVolume = "volume"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendAzure  = "azure"
)

const (
	s3ResultPrefix     = "sumo-k8-results"
	objectResultPrefix = "results"
)

type Planner struct {
	orchestrator orchestrator.Interface
}

func NewPlanner(orch orchestrator.Interface) *Planner {
	return &Planner{orchestrator: orch}
}

// Detect picks the result backend. An operator pin via RESULT_STORAGE_TYPE
// wins; otherwise the first node's labels and hostname identify the cloud.
// Backends missing their bucket or account configuration degrade to volume.
func (p *Planner) Detect(ctx context.Context) string {
	if pinned := config.GetResultStorageType(); pinned != "" && pinned != "auto" {
		return pinned
	}
	nodes, err := p.orchestrator.ListNodes(ctx)
	if err != nil || len(nodes) == 0 {
		return BackendVolume
	}
	fingerprint := nodeFingerprint(&nodes[0])
	switch {
	case strings.Contains(fingerprint, "gke"):
		if config.GetGCSBucket() != "" {
			return BackendGCS
		}
	case strings.Contains(fingerprint, "eks") || strings.Contains(fingerprint, "ec2"):
		if config.GetS3Bucket() != "" {
			return BackendS3
		}
	case strings.Contains(fingerprint, "aks") || strings.Contains(fingerprint, "azure"):
		if config.GetAzureStorageAccount() != "" && config.GetAzureContainer() != "" {
			return BackendAzure
		}
	}
	return BackendVolume
}

func nodeFingerprint(node *corev1.Node) string {
	var parts []string
	for key, value := range node.Labels {
		parts = append(parts, key, value)
	}
	parts = append(parts, node.Name, node.Spec.ProviderID)
	return strings.ToLower(strings.Join(parts, " "))
}

// LocationFor returns the durable result location recorded on the job row.
func (p *Planner) LocationFor(backend string, job *dbclient.Job) string {
	switch backend {
	case BackendS3:
		return fmt.Sprintf("%s/%s/%s/", s3ResultPrefix, job.Namespace, job.JobId)
	case BackendGCS, BackendAzure:
		return fmt.Sprintf("%s/%s/%s/", objectResultPrefix, job.Namespace, job.JobId)
	default:
		return "/results/" + job.JobId
	}
}

// UploadWorkloadName returns the deterministic upload side-workload name.
func UploadWorkloadName(jobId string) string {
	return "upload-" + stringutil.ShortId(jobId)
}

// CleanupWorkloadName returns the deterministic cleanup side-workload name.
func CleanupWorkloadName(jobId string) string {
	return "cleanup-" + stringutil.ShortId(jobId)
}

// StartUpload writes the backend-specific upload script into a config
// blob and emits the single-shot upload side-workload. The workload
// mounts the tenant's result volume read-only at /results and the
// script at /config, with credentials passed through the environment.
func (p *Planner) StartUpload(ctx context.Context, backend string, job *dbclient.Job) error {
	shortId := stringutil.ShortId(job.JobId)
	script, image, env := uploadPlanFor(backend, job)
	if script == "" {
		return nil
	}
	scriptName := "upload-script-" + shortId
	if err := p.createScriptBlob(ctx, job, scriptName, script); err != nil {
		return err
	}
	workload := sideWorkload(sideWorkloadSpec{
		name:       UploadWorkloadName(job.JobId),
		job:        job,
		image:      image,
		scriptBlob: scriptName,
		env:        env,
		kind:       "upload",
	})
	if err := p.orchestrator.CreateWorkload(ctx, job.Namespace, workload); err != nil {
		return err
	}
	klog.Infof("started %s upload for job %s", backend, job.JobId)
	return nil
}

// CleanupVolume emits the side-workload that removes the job's result
// directory from the shared volume. Callers only invoke this after the
// upload side-workload has succeeded.
func (p *Planner) CleanupVolume(ctx context.Context, job *dbclient.Job) error {
	shortId := stringutil.ShortId(job.JobId)
	script := fmt.Sprintf("#!/bin/sh\nset -e\nrm -rf /results/%s\n", job.JobId)
	scriptName := "cleanup-script-" + shortId
	if err := p.createScriptBlob(ctx, job, scriptName, script); err != nil {
		return err
	}
	workload := sideWorkload(sideWorkloadSpec{
		name:       CleanupWorkloadName(job.JobId),
		job:        job,
		image:      "busybox:1.36",
		scriptBlob: scriptName,
		kind:       "cleanup",
	})
	if err := p.orchestrator.CreateWorkload(ctx, job.Namespace, workload); err != nil {
		return err
	}
	klog.Infof("started volume cleanup for job %s", job.JobId)
	return nil
}

func uploadPlanFor(backend string, job *dbclient.Job) (script, image string, env []corev1.EnvVar) {
	switch backend {
	case BackendS3:
		prefix := fmt.Sprintf("s3://%s/%s/%s/%s", config.GetS3Bucket(), s3ResultPrefix, job.Namespace, job.JobId)
		script = fmt.Sprintf(`#!/bin/sh
set -e
cd /results/%s
aws s3 cp . %s/ --recursive
`, job.JobId, prefix)
		image = "amazon/aws-cli:2.17.0"
		env = []corev1.EnvVar{
			{Name: "AWS_ACCESS_KEY_ID", Value: config.GetAWSAccessKeyID()},
			{Name: "AWS_SECRET_ACCESS_KEY", Value: config.GetAWSSecretAccessKey()},
			{Name: "AWS_DEFAULT_REGION", Value: config.GetS3Region()},
		}
		if token := config.GetAWSSessionToken(); token != "" {
			env = append(env, corev1.EnvVar{Name: "AWS_SESSION_TOKEN", Value: token})
		}
	case BackendGCS:
		prefix := fmt.Sprintf("gs://%s/%s/%s/%s", config.GetGCSBucket(), objectResultPrefix, job.Namespace, job.JobId)
		script = fmt.Sprintf(`#!/bin/sh
set -e
if [ -n "$GCS_SERVICE_ACCOUNT_KEY" ]; then
  echo "$GCS_SERVICE_ACCOUNT_KEY" > /tmp/key.json
  gcloud auth activate-service-account --key-file=/tmp/key.json
fi
cd /results/%s
gsutil -m cp -r . %s/
`, job.JobId, prefix)
		image = "google/cloud-sdk:slim"
		env = []corev1.EnvVar{
			{Name: "GCS_SERVICE_ACCOUNT_KEY", Value: config.GetGCSServiceAccountKey()},
		}
	case BackendAzure:
		script = fmt.Sprintf(`#!/bin/sh
set -e
cd /results/%s
for f in $(find . -type f); do
  rel=${f#./}
  az storage blob upload --container-name "$AZURE_CONTAINER" \
    --file "$f" --name "%s/%s/%s/$rel" --overwrite
done
`, job.JobId, objectResultPrefix, job.Namespace, job.JobId)
		image = "mcr.microsoft.com/azure-cli:2.61.0"
		env = []corev1.EnvVar{
			{Name: "AZURE_STORAGE_CONNECTION_STRING", Value: config.GetAzureConnectionString()},
			{Name: "AZURE_STORAGE_ACCOUNT", Value: config.GetAzureStorageAccount()},
			{Name: "AZURE_CONTAINER", Value: config.GetAzureContainer()},
		}
	}
	return script, image, env
}

func (p *Planner) createScriptBlob(ctx context.Context, job *dbclient.Job, name, script string) error {
	blob := scriptBlob(job, name, script)
	err := p.orchestrator.CreateConfigMap(ctx, job.Namespace, blob)
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}
