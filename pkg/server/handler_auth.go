/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

type registerRequest struct {
	TenantId          string `json:"tenant_id" binding:"required"`
	MaxCpu            *int   `json:"max_cpu"`
	MaxMemoryGi       *int   `json:"max_memory_gi"`
	MaxConcurrentJobs *int   `json:"max_concurrent_jobs"`
}

type updateTenantRequest struct {
	MaxCpu            *int `json:"max_cpu"`
	MaxMemoryGi       *int `json:"max_memory_gi"`
	MaxConcurrentJobs *int `json:"max_concurrent_jobs"`
}

func (s *Server) registerTenant(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var request registerRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, commonerrors.NewInvalidInput("tenant_id is required")
		}
		if length := len(request.TenantId); length < 1 || length > 100 {
			return nil, commonerrors.NewInvalidInput("tenant_id must be between 1 and 100 characters")
		}
		tenant := &dbclient.Tenant{
			TenantId:          request.TenantId,
			Namespace:         stringutil.NormalizeNamespace(request.TenantId),
			ApiKey:            stringutil.ApiKey(config.GetApiKeyPrefix(), config.GetApiKeyLength()),
			MaxCpu:            orDefault(request.MaxCpu, config.GetDefaultMaxCpu()),
			MaxMemoryGi:       orDefault(request.MaxMemoryGi, config.GetDefaultMaxMemoryGi()),
			MaxConcurrentJobs: orDefault(request.MaxConcurrentJobs, config.GetDefaultMaxConcurrentJobs()),
		}
		if err := s.store.InsertTenant(c.Request.Context(), tenant); err != nil {
			return nil, err
		}
		if err := s.provisioner.EnsureTenantIsolation(c.Request.Context(), tenant); err != nil {
			// The row exists; isolation converges again on first submit.
			klog.ErrorS(err, "failed to converge isolation at registration", "tenant", tenant.TenantId)
		}
		return tenant, nil
	})
}

func (s *Server) regenerateKey(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		tenant := currentTenant(c)
		key := stringutil.ApiKey(config.GetApiKeyPrefix(), config.GetApiKeyLength())
		return s.store.SetTenantApiKey(c.Request.Context(), tenant.TenantId, key)
	})
}

func (s *Server) listTenants(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return s.store.ListTenants(c.Request.Context())
	})
}

func (s *Server) getTenant(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return s.store.GetTenant(c.Request.Context(), c.Param("id"))
	})
}

// updateTenant patches the tenant's limits and immediately re-converges
// the namespace isolation so the quota reflects the new caps.
func (s *Server) updateTenant(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var request updateTenantRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, commonerrors.NewInvalidInput("malformed request body")
		}
		tenant, err := s.store.UpdateTenantLimits(c.Request.Context(), c.Param("id"),
			request.MaxCpu, request.MaxMemoryGi, request.MaxConcurrentJobs)
		if err != nil {
			return nil, err
		}
		if err = s.provisioner.EnsureTenantIsolation(c.Request.Context(), tenant); err != nil {
			return nil, err
		}
		return tenant, nil
	})
}

func orDefault(value *int, fallback int) int {
	if value != nil {
		return *value
	}
	return fallback
}
