// Package storageclient is the process-wide client cache from spec
// §4.B: a write-through, cold-add-only pool mapping a storage node's
// derived key to an SDK client handle. Modeled on the teacher's
// pkg/cache.ExpiringLRU (a callback-driven cache with per-key
// cold-creation) but specialized to never evict: entries live for the
// process lifetime, and reads against an already-populated key never
// take a lock.
package storageclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// Flavor names the three kinds of handle the cache hands out.
type Flavor string

// The three client flavors named by spec §4.B.
const (
	FlavorS3      Flavor = "s3"      // signing v4 read/write client
	FlavorSTS     Flavor = "sts"     // AssumeRole client
	FlavorListing Flavor = "listing" // paginated list_objects_v2 client
)

// CacheKey hashes {client_type || region || api_url || access_key ||
// secret_key} lowercased, exactly as spec §4.B specifies. It is an
// opaque dedup key, not a security boundary (see spec §9 Open
// Questions on cache-key collisions).
func CacheKey(flavor Flavor, region, apiURL, accessKey, secretKey string) string {
	raw := strings.ToLower(string(flavor) + region + apiURL + accessKey + secretKey)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	once  sync.Once
	value interface{}
	err   error
}

// Cache is the process-wide client pool. The zero value is not usable;
// construct with New.
type Cache struct {
	entries sync.Map // string -> *entry
}

// New builds an empty client cache.
func New() *Cache {
	return &Cache{}
}

// getOrCreate serializes cold creation per key (via sync.Once stored
// behind a LoadOrStore) while letting warm reads proceed lock-free.
func (c *Cache) getOrCreate(key string, create func() (interface{}, error)) (interface{}, error) {
	actual, _ := c.entries.LoadOrStore(key, &entry{})
	e := actual.(*entry)
	e.once.Do(func() {
		e.value, e.err = create()
	})
	return e.value, e.err
}

// S3Client returns (creating if necessary) a minio-go v7 client for
// the node, used for signed read/write operations exactly the way the
// teacher's pkg/miniogw wraps a minio client per backing node.
func (c *Cache) S3Client(node model.StorageNode) (*minio.Client, error) {
	key := CacheKey(FlavorS3, node.Region, node.APIURL, node.AccessKeyID, node.SecretAccessKey)
	v, err := c.getOrCreate(key, func() (interface{}, error) {
		return newMinioClient(node)
	})
	if err != nil {
		return nil, err
	}
	return v.(*minio.Client), nil
}

func newMinioClient(node model.StorageNode) (*minio.Client, error) {
	endpoint, secure := splitEndpoint(node.APIURL)
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(node.AccessKeyID, node.SecretAccessKey, ""),
		Secure: secure,
		Region: node.Region,
	})
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to construct S3 client for node")
	}
	return cl, nil
}

// ListingClient returns an aws-sdk-go-v2 S3 client used exclusively
// for paginated ListObjectsV2 crawls: its continuation-token shape
// maps directly onto WorkspaceCrawlRound.LastIndexedKey (spec §4.G),
// which the channel-based minio-go listing API does not expose as
// cleanly.
func (c *Cache) ListingClient(ctx context.Context, node model.StorageNode) (*s3.Client, error) {
	key := CacheKey(FlavorListing, node.Region, node.APIURL, node.AccessKeyID, node.SecretAccessKey)
	v, err := c.getOrCreate(key, func() (interface{}, error) {
		return newListingClient(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	return v.(*s3.Client), nil
}

func newListingClient(ctx context.Context, node model.StorageNode) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(node.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(node.AccessKeyID, node.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to load AWS config for listing client")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &node.APIURL
		o.UsePathStyle = true
	}), nil
}

// STSClient returns an STS client able to mint AssumeRole credentials.
// For AWS-flavored nodes with an assume-role ARN set, sts_api_url
// defaults to the regional AWS STS endpoint; for MinIO the node's own
// API URL is used, since MinIO serves its STS-compatible API from the
// same listener (spec §4.B).
func (c *Cache) STSClient(ctx context.Context, node model.StorageNode) (*sts.Client, error) {
	key := CacheKey(FlavorSTS, node.Region, node.APIURL, node.AccessKeyID, node.SecretAccessKey)
	v, err := c.getOrCreate(key, func() (interface{}, error) {
		return newSTSClient(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	return v.(*sts.Client), nil
}

func newSTSClient(ctx context.Context, node model.StorageNode) (*sts.Client, error) {
	endpoint := stsEndpoint(node)
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(node.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(node.AccessKeyID, node.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to load AWS config for STS client")
	}
	return sts.NewFromConfig(cfg, func(o *sts.Options) {
		o.BaseEndpoint = &endpoint
	}), nil
}

// stsEndpoint implements spec §4.B's endpoint-selection rule.
func stsEndpoint(node model.StorageNode) string {
	if node.STSAPIURL != "" {
		return node.STSAPIURL
	}
	if node.AssumeRoleARN != "" {
		return "https://sts." + node.Region + ".amazonaws.com"
	}
	return node.APIURL
}

func splitEndpoint(apiURL string) (endpoint string, secure bool) {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return strings.TrimPrefix(apiURL, "https://"), true
	case strings.HasPrefix(apiURL, "http://"):
		return strings.TrimPrefix(apiURL, "http://"), false
	default:
		return apiURL, true
	}
}
