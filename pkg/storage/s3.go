/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stprnvsh/sumo-k8/pkg/config"
)

// ObjectLister enumerates uploaded result files so the HTTP surface can
// report them without touching the cluster.
type ObjectLister interface {
	ListResults(ctx context.Context, prefix string) ([]ResultFile, error)
}

type ResultFile struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type S3Lister struct {
	client *s3.Client
	bucket string
}

func NewS3Lister(ctx context.Context) (*S3Lister, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.GetS3Region()),
	}
	if key := config.GetAWSAccessKeyID(); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				key, config.GetAWSSecretAccessKey(), config.GetAWSSessionToken())))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Lister{
		client: s3.NewFromConfig(cfg),
		bucket: config.GetS3Bucket(),
	}, nil
}

func (l *S3Lister) ListResults(ctx context.Context, prefix string) ([]ResultFile, error) {
	var files []ResultFile
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: &l.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, object := range page.Contents {
			file := ResultFile{}
			if object.Key != nil {
				file.Key = *object.Key
			}
			if object.Size != nil {
				file.Size = *object.Size
			}
			if object.LastModified != nil {
				file.LastModified = *object.LastModified
			}
			files = append(files, file)
		}
	}
	return files, nil
}
