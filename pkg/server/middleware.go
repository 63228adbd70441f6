/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

const tenantContextKey = "tenant"

// Logger records one line per request with latency and status.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.Infof("%s %s %d %v", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// Cors answers preflight requests and stamps the configured origins.
func Cors() gin.HandlerFunc {
	origins := strings.Join(config.GetCorsOrigins(), ", ")
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Admin-Key")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authenticated resolves the tenant from the Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func (s *Server) authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(
			c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			AbortWithApiError(c, commonerrors.NewUnauthenticated("Missing API key"))
			return
		}
		tenant, err := s.store.GetTenantByApiKey(c.Request.Context(), token)
		if err != nil {
			AbortWithApiError(c, err)
			return
		}
		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

// adminOnly gates the admin surface on the operator-configured key. An
// unset key leaves the surface open.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminKey := config.GetAdminKey()
		if adminKey != "" && c.GetHeader("X-Admin-Key") != adminKey {
			AbortWithApiError(c, commonerrors.NewUnauthenticated("Invalid admin key"))
			return
		}
		c.Next()
	}
}

func currentTenant(c *gin.Context) *dbclient.Tenant {
	value, _ := c.Get(tenantContextKey)
	tenant, _ := value.(*dbclient.Tenant)
	return tenant
}

// handle adapts a value-or-error handler onto gin.
func handle(c *gin.Context, fn func(c *gin.Context) (interface{}, error)) {
	result, err := fn(c)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AbortWithApiError maps a status error onto the HTTP response; anything
// else becomes a 500.
func AbortWithApiError(c *gin.Context, err error) {
	statusError, ok := err.(*apierrors.StatusError)
	if !ok {
		statusError = commonerrors.NewInternalError(err.Error())
	}
	status := statusError.Status()
	c.AbortWithStatusJSON(int(status.Code), gin.H{
		"kind":   string(status.Reason),
		"detail": status.Message,
	})
}
