/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"k8s.io/klog/v2"
)

const driverName = "postgres"

// Connect opens the connection pool against the configured URL, retrying
// with exponential backoff so the controller survives a database that comes
// up after it does. minConns/maxConns bound the pool.
func Connect(url string, minConns, maxConns int) (*sqlx.DB, error) {
	var db *sqlx.DB
	operation := func() error {
		var err error
		db, err = sqlx.Connect(driverName, url)
		if err != nil {
			klog.ErrorS(err, "failed to connect database, retrying")
			return err
		}
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if minConns > 0 {
		db.SetMaxIdleConns(minConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	klog.Infof("database connection pool initialized (%d-%d connections)", minConns, maxConns)
	return db, nil
}

func ParseNullString(str sql.NullString) string {
	if str.Valid {
		return str.String
	}
	return ""
}

func NullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: str, Valid: true}
}

func ParseNullTime(t pq.NullTime) *time.Time {
	if t.Valid && !t.Time.IsZero() {
		result := t.Time
		return &result
	}
	return nil
}

func NullTime(t *time.Time) pq.NullTime {
	if t == nil || t.IsZero() {
		return pq.NullTime{Valid: false}
	}
	return pq.NullTime{Time: *t, Valid: true}
}
