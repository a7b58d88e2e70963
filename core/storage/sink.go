package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"seedgraph/core/reconcile"

	"github.com/go-openapi/inflect"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// FileName returns the seed file name for an entity type, e.g. "categories.yaml"
// for Category.
func FileName(typeName string, codec Codec) string {
	return inflect.Pluralize(inflect.Underscore(typeName)) + "." + codec.Extension()
}

// ObjectName joins prefix and the seed file name into an object key.
func ObjectName(prefix, typeName string, codec Codec) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return FileName(typeName, codec)
	}
	return path.Join(prefix, FileName(typeName, codec))
}

// SinkOption configures ObjectSink and DirSink.
type SinkOption func(*sinkOptions)

type sinkOptions struct {
	log    *zap.Logger
	region string
}

// WithSinkLogger sets the logger for uploads and pruning.
func WithSinkLogger(l *zap.Logger) SinkOption {
	return func(o *sinkOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRegion sets the region used when EnsureBucket creates the bucket.
func WithRegion(region string) SinkOption {
	return func(o *sinkOptions) {
		o.region = region
	}
}

func applySinkOptions(opts []SinkOption) sinkOptions {
	o := sinkOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ObjectSink uploads one seed file per batch to object storage under
// <prefix>/<plural_snake_type>.<ext>.
type ObjectSink struct {
	client Client
	bucket string
	prefix string
	codec  Codec
	opts   sinkOptions

	mu      sync.Mutex
	written []string
}

var _ reconcile.Sink = (*ObjectSink)(nil)

// NewObjectSink creates a sink writing to bucket.
func NewObjectSink(client Client, bucket, prefix string, codec Codec, opts ...SinkOption) *ObjectSink {
	return &ObjectSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		codec:  codec,
		opts:   applySinkOptions(opts),
	}
}

// NewObjectSinkFromConfig builds the client, codec and sink from configuration.
func NewObjectSinkFromConfig(cfg Config, opts ...SinkOption) (*ObjectSink, error) {
	codec, err := CodecFor(cfg.Format)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]SinkOption{WithRegion(cfg.Region)}, opts...)
	return NewObjectSink(client, cfg.Bucket, cfg.Prefix, codec, opts...), nil
}

// Bucket returns the target bucket.
func (s *ObjectSink) Bucket() string { return s.bucket }

// Codec returns the codec seed files are encoded with.
func (s *ObjectSink) Codec() Codec { return s.codec }

// ObjectName returns the key the batch for typeName is uploaded under.
func (s *ObjectSink) ObjectName(typeName string) string {
	return ObjectName(s.prefix, typeName, s.codec)
}

// EnsureBucket creates the target bucket when it does not exist.
func (s *ObjectSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.opts.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.opts.log.Info("Created bucket", zap.String("bucket", s.bucket))
	return nil
}

// Seed encodes the batch and uploads it, replacing any earlier file for the type.
func (s *ObjectSink) Seed(ctx context.Context, batch reconcile.Batch) error {
	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, batch.Records); err != nil {
		return fmt.Errorf("failed to encode %s: %w", batch.Name, err)
	}

	name := s.ObjectName(batch.Name)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: s.codec.ContentType(),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	s.mu.Lock()
	s.written = append(s.written, name)
	s.mu.Unlock()

	s.opts.log.Debug("Uploaded seed file",
		zap.String("object", name),
		zap.Int("records", batch.Len()),
	)
	return nil
}

// Written returns the object keys uploaded so far.
func (s *ObjectSink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// Prune removes seed files of this sink's format under the prefix that were
// not written by this sink. It returns the number of objects removed.
func (s *ObjectSink) Prune(ctx context.Context) (int, error) {
	keep := make(map[string]struct{})
	for _, name := range s.Written() {
		keep[name] = struct{}{}
	}

	prefix := strings.Trim(s.prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	var stale []minio.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", s.bucket, obj.Err)
		}
		if _, ok := keep[obj.Key]; ok {
			continue
		}
		if !strings.HasSuffix(obj.Key, "."+s.codec.Extension()) {
			continue
		}
		stale = append(stale, obj)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(stale))
	for _, obj := range stale {
		objectsCh <- obj
	}
	close(objectsCh)

	removed := len(stale)
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		s.opts.log.Error("Failed to remove stale seed file",
			zap.String("object", rerr.ObjectName),
			zap.Error(rerr.Err),
		)
		removed--
	}
	if removed < len(stale) {
		return removed, fmt.Errorf("failed to remove %d stale seed files", len(stale)-removed)
	}
	s.opts.log.Info("Pruned stale seed files", zap.Int("removed", removed))
	return removed, nil
}

// DirSink writes one seed file per batch into a local directory.
type DirSink struct {
	dir   string
	codec Codec
	opts  sinkOptions
}

var _ reconcile.Sink = (*DirSink)(nil)

// NewDirSink creates a sink writing under dir. The directory is created on
// first use.
func NewDirSink(dir string, codec Codec, opts ...SinkOption) *DirSink {
	return &DirSink{dir: dir, codec: codec, opts: applySinkOptions(opts)}
}

// Seed encodes the batch into <dir>/<plural_snake_type>.<ext>.
func (s *DirSink) Seed(ctx context.Context, batch reconcile.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, batch.Records); err != nil {
		return fmt.Errorf("failed to encode %s: %w", batch.Name, err)
	}

	file := filepath.Join(s.dir, FileName(batch.Name, s.codec))
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	s.opts.log.Debug("Wrote seed file", zap.String("file", file), zap.Int("records", batch.Len()))
	return nil
}
