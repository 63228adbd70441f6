/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/stprnvsh/sumo-k8/pkg/config"
	"github.com/stprnvsh/sumo-k8/pkg/database"
	dbclient "github.com/stprnvsh/sumo-k8/pkg/database/client"
	"github.com/stprnvsh/sumo-k8/pkg/orchestrator"
	"github.com/stprnvsh/sumo-k8/pkg/reconciler"
	"github.com/stprnvsh/sumo-k8/pkg/server"
	"github.com/stprnvsh/sumo-k8/pkg/storage"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	config.Init()

	db, err := database.Connect(config.GetDatabaseURL(), config.GetDBPoolMin(), config.GetDBPoolMax())
	if err != nil {
		klog.ErrorS(err, "failed to connect database")
		os.Exit(1)
	}
	store := dbclient.NewClient(db)
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = store.EnsureSchema(ctx); err != nil {
		klog.ErrorS(err, "failed to ensure database schema")
		os.Exit(1)
	}

	orch := orchestrator.New()
	if !orch.Available() {
		klog.Warning("orchestrator unavailable, serving state-store reads only")
	}

	planner := storage.NewPlanner(orch)
	loops := reconciler.New(store, orch, planner)
	loops.Start()
	defer loops.Stop()

	var lister storage.ObjectLister
	if config.GetS3Bucket() != "" {
		s3Lister, err := storage.NewS3Lister(ctx)
		if err != nil {
			klog.ErrorS(err, "failed to initialize s3 result lister")
		} else {
			lister = s3Lister
		}
	}

	if err = server.New(store, orch, lister).Run(ctx); err != nil {
		klog.ErrorS(err, "http server failed")
		os.Exit(1)
	}
	klog.Infof("controller stopped")
}
