/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Init binds every runtime knob to the environment and registers defaults.
// All configuration comes from environment variables.
func Init() {
	viper.AutomaticEnv()

	viper.SetDefault(maxFileSizeMB, 100)
	viper.SetDefault(maxJobDurationHours, 24)
	viper.SetDefault(configMapCleanupDelay, 300)
	viper.SetDefault(dbPoolMin, 2)
	viper.SetDefault(dbPoolMax, 10)
	viper.SetDefault(databaseURL, "postgresql://localhost/sumo_k8")
	viper.SetDefault(defaultMaxCpu, 10)
	viper.SetDefault(defaultMaxMemoryGi, 20)
	viper.SetDefault(defaultMaxConcurrent, 2)
	viper.SetDefault(apiKeyPrefix, "sk-")
	viper.SetDefault(apiKeyLength, 32)
	viper.SetDefault(corsOrigins, "*")
	viper.SetDefault(logLevel, "INFO")
	viper.SetDefault(serverPort, 8000)
	viper.SetDefault(resultStorageType, "auto")
	viper.SetDefault(resultStorageSizeGi, 10)
	viper.SetDefault(fallbackStorageClass, "ebs-gp3")
	viper.SetDefault(s3Region, "us-east-1")
	viper.SetDefault(simulatorImage, "ghcr.io/eclipse-sumo/sumo:latest")
	viper.SetDefault(gracefulShutdownSecond, 10)
}

// SetValue overrides a knob, used by tests.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

func GetMaxFileSizeMB() int { return viper.GetInt(maxFileSizeMB) }

func GetMaxJobDurationHours() int { return viper.GetInt(maxJobDurationHours) }

func GetConfigMapCleanupDelay() time.Duration {
	return time.Duration(viper.GetInt(configMapCleanupDelay)) * time.Second
}

func GetDBPoolMin() int { return viper.GetInt(dbPoolMin) }

func GetDBPoolMax() int { return viper.GetInt(dbPoolMax) }

func GetDatabaseURL() string { return viper.GetString(databaseURL) }

func GetDefaultMaxCpu() int { return viper.GetInt(defaultMaxCpu) }

func GetDefaultMaxMemoryGi() int { return viper.GetInt(defaultMaxMemoryGi) }

func GetDefaultMaxConcurrentJobs() int { return viper.GetInt(defaultMaxConcurrent) }

func GetApiKeyPrefix() string { return viper.GetString(apiKeyPrefix) }

func GetApiKeyLength() int { return viper.GetInt(apiKeyLength) }

func GetAdminKey() string { return viper.GetString(adminKey) }

func GetCorsOrigins() []string {
	return removeBlank(strings.Split(viper.GetString(corsOrigins), ","))
}

func GetLogLevel() string { return viper.GetString(logLevel) }

func GetServerPort() int { return viper.GetInt(serverPort) }

func GetResultStorageType() string { return viper.GetString(resultStorageType) }

func GetResultStorageSizeGi() int { return viper.GetInt(resultStorageSizeGi) }

func GetFallbackStorageClass() string { return viper.GetString(fallbackStorageClass) }

func GetS3Bucket() string { return viper.GetString(s3Bucket) }

func GetS3Region() string { return viper.GetString(s3Region) }

func GetGCSBucket() string { return viper.GetString(gcsBucket) }

func GetAzureStorageAccount() string { return viper.GetString(azureStorageAccount) }

func GetAzureContainer() string { return viper.GetString(azureContainer) }

func GetAWSAccessKeyID() string { return viper.GetString(awsAccessKeyID) }

func GetAWSSecretAccessKey() string { return viper.GetString(awsSecretAccessKey) }

func GetAWSSessionToken() string { return viper.GetString(awsSessionToken) }

func GetGCSCredentialsPath() string { return viper.GetString(gcsCredentialsPath) }

func GetGCSServiceAccountKey() string { return viper.GetString(gcsServiceAccountKey) }

func GetAzureConnectionString() string { return viper.GetString(azureConnectionString) }

func GetSimulatorImage() string { return viper.GetString(simulatorImage) }

func GetGracefulShutdownTimeout() time.Duration {
	return time.Duration(viper.GetInt(gracefulShutdownSecond)) * time.Second
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}
