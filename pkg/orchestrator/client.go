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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

const (
	defaultQPS   = 50
	defaultBurst = 100
)

type client struct {
	clientSet kubernetes.Interface
}

// New probes credentials in two steps: in-cluster first, then the external
// kubeconfig. When both fail the returned port is degraded and every
// operation fails with orchestrator-unavailable.
func New() Interface {
	restCfg, err := rest.InClusterConfig()
	if err == nil {
		klog.Infof("loaded in-cluster orchestrator config")
	} else {
		restCfg, err = ctrlconfig.GetConfig()
		if err != nil {
			klog.ErrorS(err, "orchestrator not available, entering degraded mode")
			return degraded{}
		}
		klog.Infof("loaded kubeconfig orchestrator config")
	}
	restCfg.QPS = defaultQPS
	restCfg.Burst = defaultBurst
	clientSet, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		klog.ErrorS(err, "failed to build orchestrator client, entering degraded mode")
		return degraded{}
	}
	return &client{clientSet: clientSet}
}

// NewWithClientSet wraps an existing clientset, used by tests.
func NewWithClientSet(clientSet kubernetes.Interface) Interface {
	return &client{clientSet: clientSet}
}

func (c *client) Available() bool { return true }

func (c *client) GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	return c.clientSet.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
}

func (c *client) CreateNamespace(ctx context.Context, namespace *corev1.Namespace) error {
	_, err := c.clientSet.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	return err
}

func (c *client) ListNamespaces(ctx context.Context) ([]corev1.Namespace, error) {
	list, err := c.clientSet.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) GetResourceQuota(ctx context.Context, namespace, name string) (*corev1.ResourceQuota, error) {
	return c.clientSet.CoreV1().ResourceQuotas(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *client) CreateResourceQuota(ctx context.Context, namespace string, quota *corev1.ResourceQuota) error {
	_, err := c.clientSet.CoreV1().ResourceQuotas(namespace).Create(ctx, quota, metav1.CreateOptions{})
	return err
}

func (c *client) UpdateResourceQuota(ctx context.Context, namespace string, quota *corev1.ResourceQuota) error {
	_, err := c.clientSet.CoreV1().ResourceQuotas(namespace).Update(ctx, quota, metav1.UpdateOptions{})
	return err
}

func (c *client) GetLimitRange(ctx context.Context, namespace, name string) (*corev1.LimitRange, error) {
	return c.clientSet.CoreV1().LimitRanges(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *client) CreateLimitRange(ctx context.Context, namespace string, limitRange *corev1.LimitRange) error {
	_, err := c.clientSet.CoreV1().LimitRanges(namespace).Create(ctx, limitRange, metav1.CreateOptions{})
	return err
}

func (c *client) UpdateLimitRange(ctx context.Context, namespace string, limitRange *corev1.LimitRange) error {
	_, err := c.clientSet.CoreV1().LimitRanges(namespace).Update(ctx, limitRange, metav1.UpdateOptions{})
	return err
}

func (c *client) GetPersistentVolumeClaim(ctx context.Context, namespace, name string) (*corev1.PersistentVolumeClaim, error) {
	return c.clientSet.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *client) CreatePersistentVolumeClaim(ctx context.Context, namespace string, claim *corev1.PersistentVolumeClaim) error {
	_, err := c.clientSet.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, claim, metav1.CreateOptions{})
	return err
}

func (c *client) CreateConfigMap(ctx context.Context, namespace string, configMap *corev1.ConfigMap) error {
	_, err := c.clientSet.CoreV1().ConfigMaps(namespace).Create(ctx, configMap, metav1.CreateOptions{})
	return err
}

func (c *client) DeleteConfigMap(ctx context.Context, namespace, name string) error {
	return c.clientSet.CoreV1().ConfigMaps(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

func (c *client) ListConfigMaps(ctx context.Context, namespace, labelSelector string) ([]corev1.ConfigMap, error) {
	list, err := c.clientSet.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) CreateWorkload(ctx context.Context, namespace string, workload *batchv1.Job) error {
	_, err := c.clientSet.BatchV1().Jobs(namespace).Create(ctx, workload, metav1.CreateOptions{})
	return err
}

func (c *client) GetWorkload(ctx context.Context, namespace, name string) (*batchv1.Job, error) {
	return c.clientSet.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *client) DeleteWorkload(ctx context.Context, namespace, name string) error {
	return c.clientSet.BatchV1().Jobs(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

func (c *client) ListAllWorkloads(ctx context.Context) ([]batchv1.Job, error) {
	list, err := c.clientSet.BatchV1().Jobs(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	list, err := c.clientSet.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) ListAllPods(ctx context.Context) ([]corev1.Pod, error) {
	list, err := c.clientSet.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := c.clientSet.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) ListStorageClasses(ctx context.Context) ([]storagev1.StorageClass, error) {
	list, err := c.clientSet.StorageV1().StorageClasses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *client) GetPodLog(ctx context.Context, namespace, name string, tailLines *int64) (string, error) {
	raw, err := c.clientSet.CoreV1().Pods(namespace).
		GetLogs(name, &corev1.PodLogOptions{TailLines: tailLines}).
		Do(ctx).Raw()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
