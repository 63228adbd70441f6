/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package fake is an in-memory orchestrator port used by tests.
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
)

type Orchestrator struct {
	mu sync.Mutex

	namespaces     map[string]*corev1.Namespace
	quotas         map[string]*corev1.ResourceQuota
	limitRanges    map[string]*corev1.LimitRange
	claims         map[string]*corev1.PersistentVolumeClaim
	configMaps     map[string]*corev1.ConfigMap
	workloads      map[string]*batchv1.Job
	pods           map[string]*corev1.Pod
	nodes          []corev1.Node
	storageClasses []storagev1.StorageClass
	podLogs        map[string]string

	available bool

	// Writes counts mutating calls so tests can assert idempotence.
	Writes int
	// FailCreateConfigMapAfter makes the Nth CreateConfigMap call fail
	// when positive. Used to exercise partial-failure cleanup.
	FailCreateConfigMapAfter int
	configMapCreates         int
	// Errs injects an error for a named operation, e.g. "GetPodLog".
	Errs map[string]error
}

func New() *Orchestrator {
	return &Orchestrator{
		namespaces:  map[string]*corev1.Namespace{},
		quotas:      map[string]*corev1.ResourceQuota{},
		limitRanges: map[string]*corev1.LimitRange{},
		claims:      map[string]*corev1.PersistentVolumeClaim{},
		configMaps:  map[string]*corev1.ConfigMap{},
		workloads:   map[string]*batchv1.Job{},
		pods:        map[string]*corev1.Pod{},
		podLogs:     map[string]string{},
		available:   true,
		Errs:        map[string]error{},
	}
}

var _ orchestrator.Interface = (*Orchestrator)(nil)

func key(namespace, name string) string { return namespace + "/" + name }

func notFound(resource, name string) error {
	return apierrors.NewNotFound(schema.GroupResource{Resource: resource}, name)
}

func alreadyExists(resource, name string) error {
	return apierrors.NewAlreadyExists(schema.GroupResource{Resource: resource}, name)
}

// matchesSelector implements the "k=v,k2=v2" subset the controller uses.
func matchesSelector(labels map[string]string, selector string) bool {
	if selector == "" {
		return true
	}
	for _, term := range strings.Split(selector, ",") {
		parts := strings.SplitN(term, "=", 2)
		if len(parts) != 2 || labels[parts[0]] != parts[1] {
			return false
		}
	}
	return true
}

func (f *Orchestrator) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

func (f *Orchestrator) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *Orchestrator) GetNamespace(_ context.Context, name string) (*corev1.Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns, ok := f.namespaces[name]
	if !ok {
		return nil, notFound("namespaces", name)
	}
	return ns.DeepCopy(), nil
}

func (f *Orchestrator) CreateNamespace(_ context.Context, namespace *corev1.Namespace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.namespaces[namespace.Name]; ok {
		return alreadyExists("namespaces", namespace.Name)
	}
	f.Writes++
	f.namespaces[namespace.Name] = namespace.DeepCopy()
	return nil
}

func (f *Orchestrator) ListNamespaces(context.Context) ([]corev1.Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []corev1.Namespace
	for _, ns := range f.namespaces {
		out = append(out, *ns.DeepCopy())
	}
	return out, nil
}

func (f *Orchestrator) GetResourceQuota(_ context.Context, namespace, name string) (*corev1.ResourceQuota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quota, ok := f.quotas[key(namespace, name)]
	if !ok {
		return nil, notFound("resourcequotas", name)
	}
	return quota.DeepCopy(), nil
}

func (f *Orchestrator) CreateResourceQuota(_ context.Context, namespace string, quota *corev1.ResourceQuota) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	f.quotas[key(namespace, quota.Name)] = quota.DeepCopy()
	return nil
}

func (f *Orchestrator) UpdateResourceQuota(_ context.Context, namespace string, quota *corev1.ResourceQuota) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quotas[key(namespace, quota.Name)]; !ok {
		return notFound("resourcequotas", quota.Name)
	}
	f.Writes++
	f.quotas[key(namespace, quota.Name)] = quota.DeepCopy()
	return nil
}

func (f *Orchestrator) GetLimitRange(_ context.Context, namespace, name string) (*corev1.LimitRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lr, ok := f.limitRanges[key(namespace, name)]
	if !ok {
		return nil, notFound("limitranges", name)
	}
	return lr.DeepCopy(), nil
}

func (f *Orchestrator) CreateLimitRange(_ context.Context, namespace string, limitRange *corev1.LimitRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	f.limitRanges[key(namespace, limitRange.Name)] = limitRange.DeepCopy()
	return nil
}

func (f *Orchestrator) UpdateLimitRange(_ context.Context, namespace string, limitRange *corev1.LimitRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.limitRanges[key(namespace, limitRange.Name)]; !ok {
		return notFound("limitranges", limitRange.Name)
	}
	f.Writes++
	f.limitRanges[key(namespace, limitRange.Name)] = limitRange.DeepCopy()
	return nil
}

func (f *Orchestrator) GetPersistentVolumeClaim(_ context.Context, namespace, name string) (*corev1.PersistentVolumeClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[key(namespace, name)]
	if !ok {
		return nil, notFound("persistentvolumeclaims", name)
	}
	return claim.DeepCopy(), nil
}

func (f *Orchestrator) CreatePersistentVolumeClaim(_ context.Context, namespace string, claim *corev1.PersistentVolumeClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	f.claims[key(namespace, claim.Name)] = claim.DeepCopy()
	return nil
}

func (f *Orchestrator) CreateConfigMap(_ context.Context, namespace string, configMap *corev1.ConfigMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configMapCreates++
	if f.FailCreateConfigMapAfter > 0 && f.configMapCreates >= f.FailCreateConfigMapAfter {
		return fmt.Errorf("configmap quota exceeded")
	}
	if _, ok := f.configMaps[key(namespace, configMap.Name)]; ok {
		return alreadyExists("configmaps", configMap.Name)
	}
	f.Writes++
	f.configMaps[key(namespace, configMap.Name)] = configMap.DeepCopy()
	return nil
}

func (f *Orchestrator) DeleteConfigMap(_ context.Context, namespace, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.configMaps[key(namespace, name)]; !ok {
		return notFound("configmaps", name)
	}
	f.Writes++
	delete(f.configMaps, key(namespace, name))
	return nil
}

func (f *Orchestrator) ListConfigMaps(_ context.Context, namespace, labelSelector string) ([]corev1.ConfigMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []corev1.ConfigMap
	for k, cm := range f.configMaps {
		if namespace != "" && !strings.HasPrefix(k, namespace+"/") {
			continue
		}
		if matchesSelector(cm.Labels, labelSelector) {
			out = append(out, *cm.DeepCopy())
		}
	}
	return out, nil
}

func (f *Orchestrator) CreateWorkload(_ context.Context, namespace string, workload *batchv1.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workloads[key(namespace, workload.Name)]; ok {
		return alreadyExists("jobs", workload.Name)
	}
	f.Writes++
	copied := workload.DeepCopy()
	copied.Namespace = namespace
	f.workloads[key(namespace, workload.Name)] = copied
	return nil
}

func (f *Orchestrator) GetWorkload(_ context.Context, namespace, name string) (*batchv1.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	workload, ok := f.workloads[key(namespace, name)]
	if !ok {
		return nil, notFound("jobs", name)
	}
	return workload.DeepCopy(), nil
}

func (f *Orchestrator) DeleteWorkload(_ context.Context, namespace, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workloads[key(namespace, name)]; !ok {
		return notFound("jobs", name)
	}
	f.Writes++
	delete(f.workloads, key(namespace, name))
	return nil
}

func (f *Orchestrator) ListAllWorkloads(context.Context) ([]batchv1.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []batchv1.Job
	for _, workload := range f.workloads {
		out = append(out, *workload.DeepCopy())
	}
	return out, nil
}

func (f *Orchestrator) ListPods(_ context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []corev1.Pod
	for k, pod := range f.pods {
		if namespace != "" && !strings.HasPrefix(k, namespace+"/") {
			continue
		}
		if matchesSelector(pod.Labels, labelSelector) {
			out = append(out, *pod.DeepCopy())
		}
	}
	return out, nil
}

func (f *Orchestrator) ListAllPods(context.Context) ([]corev1.Pod, error) {
	return f.ListPods(context.Background(), "", "")
}

func (f *Orchestrator) ListNodes(context.Context) ([]corev1.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]corev1.Node{}, f.nodes...), nil
}

func (f *Orchestrator) ListStorageClasses(context.Context) ([]storagev1.StorageClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storagev1.StorageClass{}, f.storageClasses...), nil
}

func (f *Orchestrator) GetPodLog(_ context.Context, namespace, name string, tailLines *int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["GetPodLog"]; err != nil {
		return "", err
	}
	log, ok := f.podLogs[key(namespace, name)]
	if !ok {
		return "", notFound("pods", name)
	}
	if tailLines != nil {
		lines := strings.Split(strings.TrimSuffix(log, "\n"), "\n")
		if int64(len(lines)) > *tailLines {
			lines = lines[int64(len(lines))-*tailLines:]
		}
		return strings.Join(lines, "\n") + "\n", nil
	}
	return log, nil
}

// Seed helpers.

func (f *Orchestrator) AddNode(node corev1.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = append(f.nodes, node)
}

func (f *Orchestrator) AddStorageClass(class storagev1.StorageClass) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageClasses = append(f.storageClasses, class)
}

func (f *Orchestrator) AddPod(pod corev1.Pod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pods[key(pod.Namespace, pod.Name)] = pod.DeepCopy()
}

func (f *Orchestrator) RemovePod(namespace, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pods, key(namespace, name))
}

func (f *Orchestrator) AddWorkload(workload batchv1.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workloads[key(workload.Namespace, workload.Name)] = workload.DeepCopy()
}

func (f *Orchestrator) AddConfigMap(configMap corev1.ConfigMap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configMaps[key(configMap.Namespace, configMap.Name)] = configMap.DeepCopy()
}

func (f *Orchestrator) SetPodLog(namespace, name, log string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.podLogs[key(namespace, name)] = log
}

func (f *Orchestrator) ConfigMapNames(namespace string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.configMaps {
		if strings.HasPrefix(k, namespace+"/") {
			out = append(out, strings.TrimPrefix(k, namespace+"/"))
		}
	}
	return out
}

func (f *Orchestrator) WorkloadNames(namespace string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.workloads {
		if strings.HasPrefix(k, namespace+"/") {
			out = append(out, strings.TrimPrefix(k, namespace+"/"))
		}
	}
	return out
}
