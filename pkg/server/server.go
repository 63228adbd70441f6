/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server hosts the HTTP and SSE surface of the controller.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/logrelay"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
	"github.com/stprnvsh/sumo-k8/pkg/provisioner"
	"github.com/stprnvsh/sumo-k8/pkg/storage"
	"github.com/stprnvsh/sumo-k8/pkg/submission"
)

type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	store        dbclient.Interface
	orchestrator orchestrator.Interface
	pipeline     *submission.Pipeline
	provisioner  *provisioner.Provisioner
	planner      *storage.Planner
	relay        *logrelay.Relay
	// lister is nil unless the s3 backend is configured.
	lister storage.ObjectLister
}

func New(store dbclient.Interface, orch orchestrator.Interface, lister storage.ObjectLister) *Server {
	prov := provisioner.New(orch)
	s := &Server{
		engine:       gin.New(),
		store:        store,
		orchestrator: orch,
		pipeline:     submission.NewPipeline(store, orch, prov),
		provisioner:  prov,
		planner:      storage.NewPlanner(orch),
		relay:        logrelay.New(orch),
		lister:       lister,
	}
	s.engine.Use(Logger(), gin.Recovery(), Cors())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.engine.Group("/auth")
	auth.POST("/register", s.registerTenant)
	auth.POST("/regenerate-key", s.authenticated(), s.regenerateKey)
	auth.GET("/tenants", s.adminOnly(), s.listTenants)
	auth.GET("/tenants/:id", s.adminOnly(), s.getTenant)
	auth.PATCH("/tenants/:id", s.adminOnly(), s.updateTenant)

	jobs := s.engine.Group("/jobs", s.authenticated())
	jobs.POST("", s.submitJob)
	jobs.GET("", s.listJobs)
	jobs.GET("/:id", s.getJob)
	jobs.GET("/:id/logs", s.getJobLogs)
	jobs.GET("/:id/logs/stream", s.streamJobLogs)
	jobs.GET("/:id/results", s.getJobResults)

	s.engine.GET("/tenants/me/dashboard", s.authenticated(), s.dashboard)

	admin := s.engine.Group("/admin", s.adminOnly())
	admin.GET("/cluster", s.adminCluster)
	admin.GET("/jobs", s.adminJobs)
	admin.GET("/activity", s.adminActivity)
}

// Run serves until the context is cancelled, then shuts down within the
// configured graceful timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", config.GetServerPort()),
		Handler: s.engine,
	}
	errs := make(chan error, 1)
	go func() {
		klog.Infof("http server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetGracefulShutdownTimeout())
	defer cancel()
	klog.Infof("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"orchestrator": s.orchestrator.Available(),
	})
}

// ready keeps the pod out of rotation until both the store and the
// orchestrator answer.
func (s *Server) ready(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	if !s.orchestrator.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "orchestrator": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"orchestrator": true,
	})
}
