// Package mirror archives fetched bundles in S3-compatible storage. Each
// upload is recorded in a manifest object next to the bundles so a bundle
// that has not changed since the last run is not stored again.
package mirror

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/manifest"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// ManifestName is the manifest object name below the configured prefix.
const ManifestName = ".manifest.json"

// S3Client is the subset of *s3.Client the mirror needs.
type S3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Bundle is one downloaded project archive.
type Bundle struct {
	ProjectID string
	Name      string
	UpdatedAt time.Time
	Data      []byte
}

// Result describes what Upload did.
type Result struct {
	Key     string
	Size    int64
	Skipped bool
}

// Mirror uploads bundles to one bucket.
type Mirror struct {
	cfg    types.MirrorConfig
	client S3Client
	now    func() time.Time
}

// New creates a Mirror for cfg.
func New(cfg types.MirrorConfig, client S3Client) *Mirror {
	return &Mirror{cfg: cfg, client: client, now: time.Now}
}

// Upload stores b unless the manifest shows the same bundle is already
// mirrored and the object is still present. The manifest is updated only
// when it was read successfully or did not exist yet.
func (m *Mirror) Upload(ctx context.Context, b Bundle) (*Result, error) {
	manifestKey := ManifestKey(m.cfg.Prefix)

	// A manifest that exists but cannot be read is never overwritten.
	man, err := manifest.Load(ctx, m.client, m.cfg.Bucket, manifestKey)
	loaded := err == nil
	if !loaded {
		logging.Warn().Err(err).Msg("Failed to load mirror manifest, uploading without updating it")
		man = manifest.New()
	}

	sum := checksum(b.Data)
	size := int64(len(b.Data))

	if man.Current(b.ProjectID, sum) {
		prev := man.Projects[b.ProjectID]
		upload, err := ShouldUpload(ctx, m.client, m.cfg.Bucket, prev.Key, size)
		if err != nil {
			return nil, err
		}
		if !upload {
			logging.Debug().Str("key", prev.Key).Msg("bundle unchanged, skipping upload")
			return &Result{Key: prev.Key, Size: size, Skipped: true}, nil
		}
	}

	stamp := b.UpdatedAt
	if stamp.IsZero() {
		stamp = m.now()
	}
	key := BundleKey(m.cfg.Prefix, b.ProjectID, stamp, sum)

	uploader := manager.NewUploader(m.client, func(u *manager.Uploader) {
		u.Concurrency = 5
		u.PartSize = 5 * 1024 * 1024
	})
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	if !loaded {
		return &Result{Key: key, Size: size}, nil
	}

	man.Record(b.ProjectID, manifest.Entry{
		Name:       b.Name,
		UpdatedAt:  b.UpdatedAt,
		SHA256:     sum,
		Size:       size,
		Key:        key,
		UploadedAt: m.now(),
	})
	if err := manifest.Save(ctx, m.client, m.cfg.Bucket, manifestKey, man); err != nil {
		// The bundle itself is stored; the next run uploads it once more.
		logging.Warn().Err(err).Msg("Failed to save mirror manifest")
	}

	return &Result{Key: key, Size: size}, nil
}

// Manifest returns the current manifest.
func (m *Mirror) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	return manifest.Load(ctx, m.client, m.cfg.Bucket, ManifestKey(m.cfg.Prefix))
}

// ManifestKey returns the manifest object key for prefix.
func ManifestKey(prefix string) string {
	return normalizePrefix(prefix) + ManifestName
}

// BundleKey computes the object key of a bundle.
// Format: <prefix>bundles/<project-id>/<update-time>-<checksum[:12]>.zip
func BundleKey(prefix, projectID string, updatedAt time.Time, sum string) string {
	if len(sum) > 12 {
		sum = sum[:12]
	}
	return fmt.Sprintf("%sbundles/%s/%s-%s.zip",
		normalizePrefix(prefix), projectID, updatedAt.UTC().Format("20060102T150405Z"), sum)
}

func normalizePrefix(prefix string) string {
	prefix = strings.ReplaceAll(prefix, `\`, "/")
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
