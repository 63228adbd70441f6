/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/stprnvsh/sumo-k8/pkg/errors"
)

var (
	insertJobCmd = fmt.Sprintf(`INSERT INTO %s
		(job_id, tenant_id, workload_name, namespace, status, scenario_data, cpu_request, memory_gi)
		VALUES (:job_id, :tenant_id, :workload_name, :namespace, :status, :scenario_data, :cpu_request, :memory_gi)`, TJob)

	// Transition statements guard on the current status so a stale sweep
	// can never move a row backwards.
	markRunningCmd = fmt.Sprintf(`UPDATE %s
		SET status='%s', started_at=NOW()
		WHERE job_id=$1 AND status='%s'`, TJob, JobRunning, JobPending)

	markTerminalCmd = fmt.Sprintf(`UPDATE %s
		SET status=$2,
		    finished_at=NOW(),
		    started_at=COALESCE(started_at, NOW()),
		    result_location=$3,
		    result_files=$4
		WHERE job_id=$1 AND status IN ('%s', '%s')`, TJob, JobPending, JobRunning)

	backfillTimestampsCmd = fmt.Sprintf(`UPDATE %s
		SET started_at=COALESCE(started_at, $2, submitted_at),
		    finished_at=COALESCE(finished_at, NOW())
		WHERE job_id=$1 AND status IN ('%s', '%s')`, TJob, JobSucceeded, JobFailed)
)

func (c *Client) InsertJob(ctx context.Context, job *Job) error {
	if job == nil {
		return nil
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := db.NamedExecContext(ctx2, insertJobCmd, job); err != nil {
		klog.ErrorS(err, "failed to insert job", "job", job.JobId)
		return err
	}
	return nil
}

func (c *Client) GetJob(ctx context.Context, jobId, tenantId string) (*Job, error) {
	where := sqrl.And{
		sqrl.Expr("job_id::text = ?", jobId),
		sqrl.Eq{"tenant_id": tenantId},
	}
	jobs, err := c.selectJobs(ctx, where, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, commonerrors.NewNotFoundWithMessage("Job not found")
	}
	return jobs[0], nil
}

func (c *Client) JobExists(ctx context.Context, jobId string) (bool, error) {
	query, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).
		From(TJob).
		Where(sqrl.Expr("job_id::text = ?", jobId)).ToSql()
	if err != nil {
		return false, err
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var cnt int
	if err = db.GetContext(ctx2, &cnt, query, args...); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (c *Client) CountActiveJobs(ctx context.Context, tenantId string) (int, error) {
	query, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).
		From(TJob).
		Where(sqrl.And{
			sqrl.Eq{"tenant_id": tenantId},
			sqrl.Eq{"status": []string{JobPending, JobRunning}},
		}).ToSql()
	if err != nil {
		return 0, err
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var cnt int
	err = db.GetContext(ctx2, &cnt, query, args...)
	return cnt, err
}

func (c *Client) ListRecentJobs(ctx context.Context, tenantId string, limit int) ([]*Job, error) {
	return c.selectJobs(ctx, sqrl.Eq{"tenant_id": tenantId},
		[]string{"submitted_at DESC"}, limit)
}

func (c *Client) ListAllJobs(ctx context.Context, status string, limit int) ([]*Job, error) {
	var where sqrl.Sqlizer
	if status != "" {
		where = sqrl.Eq{"status": status}
	}
	return c.selectJobs(ctx, where, []string{"submitted_at DESC"}, limit)
}

func (c *Client) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	cmd := fmt.Sprintf(`SELECT status, COUNT(*) AS count FROM %s GROUP BY status`, TJob)
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	if err := db.SelectContext(ctx2, &rows, cmd); err != nil {
		return nil, err
	}
	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

func (c *Client) TerminalJobsMissingTimestamps(ctx context.Context) ([]*Job, error) {
	where := sqrl.And{
		sqrl.Eq{"status": []string{JobSucceeded, JobFailed}},
		sqrl.Or{
			sqrl.Expr("started_at IS NULL"),
			sqrl.Expr("finished_at IS NULL"),
		},
	}
	return c.selectJobs(ctx, where, nil, -1)
}

// BackfillJobTimestamps fills missing timestamps on a terminal row. The
// orchestrator-reported start time wins when present, else submitted_at.
func (c *Client) BackfillJobTimestamps(ctx context.Context, jobId string, startedAt *time.Time) error {
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var reported pq.NullTime
	if startedAt != nil {
		reported = pq.NullTime{Time: startedAt.UTC(), Valid: true}
	}
	_, err := db.ExecContext(ctx2, backfillTimestampsCmd, jobId, reported)
	if err != nil {
		klog.ErrorS(err, "failed to backfill job timestamps", "job", jobId)
	}
	return err
}

func (c *Client) TerminalJobsMissingResultLocation(ctx context.Context) ([]*Job, error) {
	where := sqrl.And{
		sqrl.Eq{"status": []string{JobSucceeded, JobFailed}},
		sqrl.Expr("result_location IS NULL"),
	}
	return c.selectJobs(ctx, where, nil, -1)
}

func (c *Client) SetJobResult(ctx context.Context, jobId string, location sql.NullString, files []byte) error {
	cmd := fmt.Sprintf(`UPDATE %s SET result_location=$2, result_files=$3 WHERE job_id=$1`, TJob)
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := db.ExecContext(ctx2, cmd, jobId, location, files)
	if err != nil {
		klog.ErrorS(err, "failed to set job result", "job", jobId)
	}
	return err
}

// PendingUploadJobs returns SUCCEEDED rows whose upload side-workload has
// been emitted (result_location carries the object-store prefix) but whose
// completion has not been observed yet.
func (c *Client) PendingUploadJobs(ctx context.Context) ([]*Job, error) {
	where := sqrl.And{
		sqrl.Eq{"status": JobSucceeded},
		sqrl.Expr("result_files IS NULL"),
		sqrl.Expr("result_location LIKE '%results/%'"),
	}
	return c.selectJobs(ctx, where, nil, -1)
}

func (c *Client) SetJobResultFiles(ctx context.Context, jobId string, files []byte) error {
	cmd := fmt.Sprintf(`UPDATE %s SET result_files=$2 WHERE job_id=$1`, TJob)
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := db.ExecContext(ctx2, cmd, jobId, files)
	if err != nil {
		klog.ErrorS(err, "failed to set job result files", "job", jobId)
	}
	return err
}

func (c *Client) ActiveJobs(ctx context.Context) ([]*Job, error) {
	return c.selectJobs(ctx, sqrl.Eq{"status": []string{JobPending, JobRunning}}, nil, -1)
}

func (c *Client) MarkJobRunning(ctx context.Context, jobId string) error {
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := db.ExecContext(ctx2, markRunningCmd, jobId)
	if err != nil {
		klog.ErrorS(err, "failed to mark job running", "job", jobId)
	}
	return err
}

func (c *Client) MarkJobTerminal(ctx context.Context, jobId, status string, location sql.NullString, files []byte) error {
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := db.ExecContext(ctx2, markTerminalCmd, jobId, status, location, files)
	if err != nil {
		klog.ErrorS(err, "failed to mark job terminal", "job", jobId, "status", status)
	}
	return err
}

func (c *Client) selectJobs(ctx context.Context, where sqrl.Sqlizer, orderBy []string, limit int) ([]*Job, error) {
	builder := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).From(TJob)
	if where != nil {
		builder = builder.Where(where)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}
	if limit >= 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	db := c.db.Unsafe()
	ctx2, cancel := c.withTimeout(ctx)
	defer cancel()
	var jobs []*Job
	if err = db.SelectContext(ctx2, &jobs, query, args...); err != nil {
		klog.ErrorS(err, "failed to select jobs")
		return nil, err
	}
	return jobs, nil
}
