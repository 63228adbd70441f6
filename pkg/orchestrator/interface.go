/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package orchestrator is the narrow typed port over the cluster API.
// Every operation distinguishes not-found from other failures through
// apierrors.IsNotFound on the returned error; when the port is degraded
// every operation fails with orchestrator-unavailable.
package orchestrator

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
)

type Interface interface {
	// Available reports whether the initial credential probe succeeded.
	Available() bool

	GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error)
	CreateNamespace(ctx context.Context, namespace *corev1.Namespace) error
	ListNamespaces(ctx context.Context) ([]corev1.Namespace, error)

	GetResourceQuota(ctx context.Context, namespace, name string) (*corev1.ResourceQuota, error)
	CreateResourceQuota(ctx context.Context, namespace string, quota *corev1.ResourceQuota) error
	UpdateResourceQuota(ctx context.Context, namespace string, quota *corev1.ResourceQuota) error

	GetLimitRange(ctx context.Context, namespace, name string) (*corev1.LimitRange, error)
	CreateLimitRange(ctx context.Context, namespace string, limitRange *corev1.LimitRange) error
	UpdateLimitRange(ctx context.Context, namespace string, limitRange *corev1.LimitRange) error

	GetPersistentVolumeClaim(ctx context.Context, namespace, name string) (*corev1.PersistentVolumeClaim, error)
	CreatePersistentVolumeClaim(ctx context.Context, namespace string, claim *corev1.PersistentVolumeClaim) error

	CreateConfigMap(ctx context.Context, namespace string, configMap *corev1.ConfigMap) error
	DeleteConfigMap(ctx context.Context, namespace, name string) error
	ListConfigMaps(ctx context.Context, namespace, labelSelector string) ([]corev1.ConfigMap, error)

	CreateWorkload(ctx context.Context, namespace string, workload *batchv1.Job) error
	GetWorkload(ctx context.Context, namespace, name string) (*batchv1.Job, error)
	DeleteWorkload(ctx context.Context, namespace, name string) error
	ListAllWorkloads(ctx context.Context) ([]batchv1.Job, error)

	ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error)
	ListAllPods(ctx context.Context) ([]corev1.Pod, error)
	ListNodes(ctx context.Context) ([]corev1.Node, error)
	ListStorageClasses(ctx context.Context) ([]storagev1.StorageClass, error)

	// GetPodLog reads the pod's log, tailed when tailLines is non-nil.
	GetPodLog(ctx context.Context, namespace, name string, tailLines *int64) (string, error)
}
