/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"

	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

// degraded is the port returned when no cluster credentials could be
// loaded. The process keeps serving read-only state from the database;
// every cluster operation fails fast with orchestrator-unavailable.
type degraded struct{}

func (degraded) Available() bool { return false }

func (degraded) GetNamespace(context.Context, string) (*corev1.Namespace, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreateNamespace(context.Context, *corev1.Namespace) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListNamespaces(context.Context) ([]corev1.Namespace, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) GetResourceQuota(context.Context, string, string) (*corev1.ResourceQuota, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreateResourceQuota(context.Context, string, *corev1.ResourceQuota) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) UpdateResourceQuota(context.Context, string, *corev1.ResourceQuota) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) GetLimitRange(context.Context, string, string) (*corev1.LimitRange, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreateLimitRange(context.Context, string, *corev1.LimitRange) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) UpdateLimitRange(context.Context, string, *corev1.LimitRange) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) GetPersistentVolumeClaim(context.Context, string, string) (*corev1.PersistentVolumeClaim, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreatePersistentVolumeClaim(context.Context, string, *corev1.PersistentVolumeClaim) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreateConfigMap(context.Context, string, *corev1.ConfigMap) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) DeleteConfigMap(context.Context, string, string) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListConfigMaps(context.Context, string, string) ([]corev1.ConfigMap, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) CreateWorkload(context.Context, string, *batchv1.Job) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) GetWorkload(context.Context, string, string) (*batchv1.Job, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) DeleteWorkload(context.Context, string, string) error {
	return commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListAllWorkloads(context.Context) ([]batchv1.Job, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListPods(context.Context, string, string) ([]corev1.Pod, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListAllPods(context.Context) ([]corev1.Pod, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListNodes(context.Context) ([]corev1.Node, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) ListStorageClasses(context.Context) ([]storagev1.StorageClass, error) {
	return nil, commonerrors.NewOrchestratorUnavailable()
}

func (degraded) GetPodLog(context.Context, string, string, *int64) (string, error) {
	return "", commonerrors.NewOrchestratorUnavailable()
}
