/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Client struct {
	db             *sqlx.DB
	RequestTimeout time.Duration
}

func NewClient(db *sqlx.DB) *Client {
	return &Client{
		db:             db,
		RequestTimeout: 15 * time.Second,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.db.PingContext(ctx2)
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
    tenant_id           VARCHAR(100) PRIMARY KEY,
    namespace           VARCHAR(100) NOT NULL UNIQUE,
    api_key             VARCHAR(128) NOT NULL,
    max_cpu             INTEGER NOT NULL,
    max_memory_gi       INTEGER NOT NULL,
    max_concurrent_jobs INTEGER NOT NULL,
    created_at          TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS jobs (
    job_id          UUID PRIMARY KEY,
    tenant_id       VARCHAR(100) NOT NULL REFERENCES tenants(tenant_id),
    workload_name   VARCHAR(63) NOT NULL,
    namespace       VARCHAR(100) NOT NULL,
    status          VARCHAR(16) NOT NULL,
    scenario_data   JSONB,
    cpu_request     INTEGER NOT NULL,
    memory_gi       INTEGER NOT NULL,
    submitted_at    TIMESTAMP NOT NULL DEFAULT NOW(),
    started_at      TIMESTAMP,
    finished_at     TIMESTAMP,
    result_location TEXT,
    result_files    JSONB
);

CREATE INDEX IF NOT EXISTS idx_jobs_tenant_status ON jobs (tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
`

// EnsureSchema creates the tenants and jobs tables when they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, schema)
	return err
}
