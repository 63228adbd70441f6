/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"strings"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

const uniqueViolation = "23505"

var insertTenantCmd = fmt.Sprintf(`INSERT INTO %s
	(tenant_id, namespace, api_key, max_cpu, max_memory_gi, max_concurrent_jobs)
	VALUES (:tenant_id, :namespace, :api_key, :max_cpu, :max_memory_gi, :max_concurrent_jobs)`, TTenant)

func (c *Client) InsertTenant(ctx context.Context, tenant *Tenant) error {
	if tenant == nil {
		return nil
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := db.NamedExecContext(ctx2, insertTenantCmd, tenant); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			if strings.Contains(pqErr.Error(), "namespace") {
				return commonerrors.NewConflict(fmt.Sprintf("Namespace %s already exists", tenant.Namespace))
			}
			return commonerrors.NewConflict(fmt.Sprintf("Tenant %s already exists", tenant.TenantId))
		}
		klog.ErrorS(err, "failed to insert tenant", "tenant", tenant.TenantId)
		return err
	}
	return c.reload(ctx, tenant)
}

func (c *Client) GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	return c.getTenant(ctx, sqrl.Eq{"tenant_id": tenantId}, "tenant", tenantId)
}

func (c *Client) GetTenantByApiKey(ctx context.Context, apiKey string) (*Tenant, error) {
	tenant, err := c.getTenant(ctx, sqrl.Eq{"api_key": apiKey}, "tenant", "")
	if commonerrors.IsNotFound(err) {
		return nil, commonerrors.NewUnauthenticated("Invalid API key")
	}
	return tenant, err
}

func (c *Client) ListTenants(ctx context.Context) ([]*Tenant, error) {
	query, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTenant).
		OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var tenants []*Tenant
	err = db.SelectContext(ctx2, &tenants, query, args...)
	return tenants, err
}

// UpdateTenantLimits applies the non-nil limits. A call with no limits set
// is rejected as a no-op update.
func (c *Client) UpdateTenantLimits(ctx context.Context, tenantId string,
	maxCpu, maxMemoryGi, maxConcurrentJobs *int) (*Tenant, error) {
	update := sqrl.Update(TTenant).PlaceholderFormat(sqrl.Dollar)
	updated := false
	if maxCpu != nil {
		update = update.Set("max_cpu", *maxCpu)
		updated = true
	}
	if maxMemoryGi != nil {
		update = update.Set("max_memory_gi", *maxMemoryGi)
		updated = true
	}
	if maxConcurrentJobs != nil {
		update = update.Set("max_concurrent_jobs", *maxConcurrentJobs)
		updated = true
	}
	if !updated {
		return nil, commonerrors.NewInvalidInput("No updates provided")
	}
	query, args, err := update.Where(sqrl.Eq{"tenant_id": tenantId}).ToSql()
	if err != nil {
		return nil, err
	}
	return c.execTenantUpdate(ctx, tenantId, query, args...)
}

func (c *Client) SetTenantApiKey(ctx context.Context, tenantId, apiKey string) (*Tenant, error) {
	cmd := fmt.Sprintf(`UPDATE %s SET api_key=$1 WHERE tenant_id=$2`, TTenant)
	return c.execTenantUpdate(ctx, tenantId, cmd, apiKey, tenantId)
}

func (c *Client) execTenantUpdate(ctx context.Context, tenantId, query string, args ...interface{}) (*Tenant, error) {
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	result, err := db.ExecContext(ctx2, query, args...)
	if err != nil {
		klog.ErrorS(err, "failed to update tenant", "tenant", tenantId)
		return nil, err
	}
	if rows, err2 := result.RowsAffected(); err2 == nil && rows == 0 {
		return nil, commonerrors.NewNotFound("tenant", tenantId)
	}
	return c.GetTenant(ctx, tenantId)
}

func (c *Client) getTenant(ctx context.Context, where sqrl.Sqlizer, kind, name string) (*Tenant, error) {
	query, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TTenant).
		Where(where).
		Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var tenants []*Tenant
	if err = db.SelectContext(ctx2, &tenants, query, args...); err != nil {
		klog.ErrorS(err, "failed to select tenant")
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, commonerrors.NewNotFound(kind, name)
	}
	return tenants[0], nil
}

// reload refreshes server-populated columns (created_at) after an insert.
func (c *Client) reload(ctx context.Context, tenant *Tenant) error {
	stored, err := c.GetTenant(ctx, tenant.TenantId)
	if err != nil {
		return err
	}
	*tenant = *stored
	return nil
}
