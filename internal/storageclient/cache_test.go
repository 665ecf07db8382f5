// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package storageclient_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/model"
	"github.com/storj-labs/workspace-broker/internal/storageclient"
)

func testNode() model.StorageNode {
	return model.StorageNode{
		ID:              uuid.New(),
		Name:            "minio-1",
		APIURL:          "http://127.0.0.1:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := storageclient.CacheKey(storageclient.FlavorS3, "us-east-1", "http://x", "AK", "SK")
	b := storageclient.CacheKey(storageclient.FlavorS3, "us-east-1", "http://x", "AK", "SK")
	assert.Equal(t, a, b)
}

func TestCacheKey_CaseInsensitive(t *testing.T) {
	a := storageclient.CacheKey(storageclient.FlavorS3, "us-east-1", "http://x", "AK", "SK")
	b := storageclient.CacheKey(storageclient.FlavorS3, "us-east-1", "http://x", "ak", "sk")
	assert.Equal(t, a, b)
}

func TestCacheKey_DistinguishesFlavor(t *testing.T) {
	a := storageclient.CacheKey(storageclient.FlavorS3, "us-east-1", "http://x", "AK", "SK")
	b := storageclient.CacheKey(storageclient.FlavorSTS, "us-east-1", "http://x", "AK", "SK")
	assert.NotEqual(t, a, b)
}

func TestCache_S3Client_ReusesWarmEntry(t *testing.T) {
	cache := storageclient.New()
	node := testNode()

	first, err := cache.S3Client(node)
	require.NoError(t, err)

	second, err := cache.S3Client(node)
	require.NoError(t, err)

	assert.Same(t, first, second, "cache should reuse the same handle for the same derived key")
}

func TestCache_S3Client_ColdCreationSerializedPerKey(t *testing.T) {
	cache := storageclient.New()
	node := testNode()

	const goroutines = 16
	results := make([]*clientOrErr, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			defer wg.Done()
			cl, err := cache.S3Client(node)
			results[i] = &clientOrErr{cl, err}
		}()
	}
	wg.Wait()

	require.NoError(t, results[0].err)
	for _, r := range results[1:] {
		require.NoError(t, r.err)
		assert.Same(t, results[0].cl, r.cl)
	}
}

type clientOrErr struct {
	cl  interface{}
	err error
}

func TestCache_STSClient_EndpointSelection(t *testing.T) {
	cache := storageclient.New()
	ctx := context.Background()

	// MinIO-style node: no assume-role ARN, STS served from own URL.
	minioNode := testNode()
	cl, err := cache.STSClient(ctx, minioNode)
	require.NoError(t, err)
	assert.NotNil(t, cl)

	// AWS-style node with assume-role ARN set and no explicit
	// sts_api_url: endpoint defaults to the regional STS endpoint.
	awsNode := model.StorageNode{
		ID:            uuid.New(),
		APIURL:        "https://s3.amazonaws.com",
		Region:        "us-west-2",
		AssumeRoleARN: "arn:aws:iam::123456789012:role/broker",
	}
	cl2, err := cache.STSClient(ctx, awsNode)
	require.NoError(t, err)
	assert.NotNil(t, cl2)
}
