/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"slices"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestDefaults(t *testing.T) {
	Init()

	assert.Equal(t, GetMaxFileSizeMB(), 100)
	assert.Equal(t, GetMaxJobDurationHours(), 24)
	assert.Equal(t, GetConfigMapCleanupDelay(), 300*time.Second)
	assert.Equal(t, GetDBPoolMin(), 2)
	assert.Equal(t, GetDBPoolMax(), 10)
	assert.Equal(t, GetApiKeyPrefix(), "sk-")
	assert.Equal(t, GetApiKeyLength(), 32)
	assert.Equal(t, GetResultStorageType(), "auto")
	assert.Equal(t, GetS3Region(), "us-east-1")
	assert.Equal(t, slices.Equal(GetCorsOrigins(), []string{"*"}), true)
}

func TestOverrides(t *testing.T) {
	Init()

	SetValue("MAX_FILE_SIZE_MB", 5)
	assert.Equal(t, GetMaxFileSizeMB(), 5)

	SetValue("CORS_ORIGINS", "https://a.example, https://b.example,")
	assert.Equal(t, slices.Equal(GetCorsOrigins(),
		[]string{"https://a.example", "https://b.example"}), true)

	SetValue("RESULT_STORAGE_TYPE", "s3")
	assert.Equal(t, GetResultStorageType(), "s3")
}
