/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	maxFileSizeMB          = "MAX_FILE_SIZE_MB"
	maxJobDurationHours    = "MAX_JOB_DURATION_HOURS"
	configMapCleanupDelay  = "CONFIGMAP_CLEANUP_DELAY_SECONDS"
	dbPoolMin              = "DB_POOL_MIN"
	dbPoolMax              = "DB_POOL_MAX"
	databaseURL            = "DATABASE_URL"
	defaultMaxCpu          = "DEFAULT_MAX_CPU"
	defaultMaxMemoryGi     = "DEFAULT_MAX_MEMORY_GI"
	defaultMaxConcurrent   = "DEFAULT_MAX_CONCURRENT_JOBS"
	apiKeyPrefix           = "API_KEY_PREFIX"
	apiKeyLength           = "API_KEY_LENGTH"
	adminKey               = "ADMIN_KEY"
	corsOrigins            = "CORS_ORIGINS"
	logLevel               = "LOG_LEVEL"
	serverPort             = "PORT"
	resultStorageType      = "RESULT_STORAGE_TYPE"
	resultStorageSizeGi    = "RESULT_STORAGE_SIZE_GI"
	fallbackStorageClass   = "FALLBACK_STORAGE_CLASS"
	s3Bucket               = "S3_BUCKET"
	s3Region               = "S3_REGION"
	gcsBucket              = "GCS_BUCKET"
	azureStorageAccount    = "AZURE_STORAGE_ACCOUNT"
	azureContainer         = "AZURE_CONTAINER"
	awsAccessKeyID         = "AWS_ACCESS_KEY_ID"
	awsSecretAccessKey     = "AWS_SECRET_ACCESS_KEY"
	awsSessionToken        = "AWS_SESSION_TOKEN"
	gcsCredentialsPath     = "GOOGLE_APPLICATION_CREDENTIALS"
	gcsServiceAccountKey   = "GCS_SERVICE_ACCOUNT_KEY"
	azureConnectionString  = "AZURE_STORAGE_CONNECTION_STRING"
	simulatorImage         = "SIMULATOR_IMAGE"
	gracefulShutdownSecond = "GRACEFUL_SHUTDOWN_SECONDS"
)
