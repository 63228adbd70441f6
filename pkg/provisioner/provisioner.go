/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package provisioner converges a tenant's namespace-level isolation:
// the namespace itself, a resource quota, a limit range and the shared
// results volume claim. Every call is idempotent and patches drift.
package provisioner

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
)

const defaultClassAnnotation = "storageclass.kubernetes.io/is-default-class"

type Provisioner struct {
	orchestrator orchestrator.Interface
}

func New(orch orchestrator.Interface) *Provisioner {
	return &Provisioner{orchestrator: orch}
}

// QuotaName returns the tenant's resource quota name.
func QuotaName(namespace string) string { return namespace + "-quota" }

// LimitRangeName returns the tenant's limit range name.
func LimitRangeName(namespace string) string { return namespace + "-limits" }

// ResultsClaimName returns the tenant's shared results volume claim name.
func ResultsClaimName(namespace string) string { return "results-" + namespace }

// EnsureTenantIsolation converges the four isolation objects for the
// tenant. Existing objects whose captured limits drifted from the
// tenant row are updated in place.
func (p *Provisioner) EnsureTenantIsolation(ctx context.Context, tenant *dbclient.Tenant) error {
	if err := p.ensureNamespace(ctx, tenant.Namespace); err != nil {
		return err
	}
	if err := p.ensureResourceQuota(ctx, tenant); err != nil {
		return err
	}
	if err := p.ensureLimitRange(ctx, tenant); err != nil {
		return err
	}
	return p.ensureResultsClaim(ctx, tenant.Namespace)
}

func (p *Provisioner) ensureNamespace(ctx context.Context, namespace string) error {
	_, err := p.orchestrator.GetNamespace(ctx, namespace)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   namespace,
			Labels: map[string]string{"managed-by": "sumo-k8"},
		},
	}
	if err = p.orchestrator.CreateNamespace(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}
	klog.Infof("created namespace %s", namespace)
	return nil
}

func quotaSpec(tenant *dbclient.Tenant) corev1.ResourceQuotaSpec {
	cpu := resource.MustParse(fmt.Sprintf("%d", tenant.MaxCpu))
	memory := resource.MustParse(fmt.Sprintf("%dGi", tenant.MaxMemoryGi))
	pods := resource.MustParse(fmt.Sprintf("%d", tenant.MaxConcurrentJobs))
	return corev1.ResourceQuotaSpec{
		Hard: corev1.ResourceList{
			corev1.ResourceRequestsCPU:    cpu,
			corev1.ResourceLimitsCPU:      cpu,
			corev1.ResourceRequestsMemory: memory,
			corev1.ResourceLimitsMemory:   memory,
			corev1.ResourcePods:           pods,
		},
	}
}

func (p *Provisioner) ensureResourceQuota(ctx context.Context, tenant *dbclient.Tenant) error {
	name := QuotaName(tenant.Namespace)
	want := quotaSpec(tenant)
	existing, err := p.orchestrator.GetResourceQuota(ctx, tenant.Namespace, name)
	if apierrors.IsNotFound(err) {
		quota := &corev1.ResourceQuota{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: tenant.Namespace},
			Spec:       want,
		}
		return p.orchestrator.CreateResourceQuota(ctx, tenant.Namespace, quota)
	}
	if err != nil {
		return err
	}
	if quotaEqual(existing.Spec.Hard, want.Hard) {
		return nil
	}
	existing.Spec = want
	klog.Infof("updating drifted resource quota %s/%s", tenant.Namespace, name)
	return p.orchestrator.UpdateResourceQuota(ctx, tenant.Namespace, existing)
}

func quotaEqual(have, want corev1.ResourceList) bool {
	if len(have) != len(want) {
		return false
	}
	for key, quantity := range want {
		current, ok := have[key]
		if !ok || current.Cmp(quantity) != 0 {
			return false
		}
	}
	return true
}

func limitRangeSpec(tenant *dbclient.Tenant) corev1.LimitRangeSpec {
	return corev1.LimitRangeSpec{
		Limits: []corev1.LimitRangeItem{{
			Type: corev1.LimitTypeContainer,
			Default: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("1"),
				corev1.ResourceMemory: resource.MustParse("2Gi"),
			},
			DefaultRequest: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("100m"),
				corev1.ResourceMemory: resource.MustParse("256Mi"),
			},
			Max: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(fmt.Sprintf("%d", tenant.MaxCpu)),
				corev1.ResourceMemory: resource.MustParse(fmt.Sprintf("%dGi", tenant.MaxMemoryGi)),
			},
		}},
	}
}

func (p *Provisioner) ensureLimitRange(ctx context.Context, tenant *dbclient.Tenant) error {
	name := LimitRangeName(tenant.Namespace)
	want := limitRangeSpec(tenant)
	existing, err := p.orchestrator.GetLimitRange(ctx, tenant.Namespace, name)
	if apierrors.IsNotFound(err) {
		limitRange := &corev1.LimitRange{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: tenant.Namespace},
			Spec:       want,
		}
		return p.orchestrator.CreateLimitRange(ctx, tenant.Namespace, limitRange)
	}
	if err != nil {
		return err
	}
	if len(existing.Spec.Limits) == 1 &&
		quotaEqual(existing.Spec.Limits[0].Max, want.Limits[0].Max) {
		return nil
	}
	existing.Spec = want
	klog.Infof("updating drifted limit range %s/%s", tenant.Namespace, name)
	return p.orchestrator.UpdateLimitRange(ctx, tenant.Namespace, existing)
}

func (p *Provisioner) ensureResultsClaim(ctx context.Context, namespace string) error {
	name := ResultsClaimName(namespace)
	_, err := p.orchestrator.GetPersistentVolumeClaim(ctx, namespace, name)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}
	className, err := p.pickStorageClass(ctx)
	if err != nil {
		return err
	}
	size := resource.MustParse(fmt.Sprintf("%dGi", config.GetResultStorageSizeGi()))
	claim := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: size},
			},
			StorageClassName: &className,
		},
	}
	klog.Infof("creating results claim %s/%s with storage class %s", namespace, name, className)
	return p.orchestrator.CreatePersistentVolumeClaim(ctx, namespace, claim)
}

// pickStorageClass prefers the annotated default class, then the first
// class the cluster offers, then the configured fallback.
func (p *Provisioner) pickStorageClass(ctx context.Context) (string, error) {
	classes, err := p.orchestrator.ListStorageClasses(ctx)
	if err != nil {
		return "", err
	}
	for _, class := range classes {
		if class.Annotations[defaultClassAnnotation] == "true" {
			return class.Name, nil
		}
	}
	if len(classes) > 0 {
		return classes[0].Name, nil
	}
	return config.GetFallbackStorageClass(), nil
}
