// Package s3 provides a block device backed by an S3 bucket. Files map to
// objects, directories to zero-byte marker objects with a trailing slash.
// Whole objects are fetched on open and written back on close; the store
// exposes only the byte-level surface, metadata emulation happens above it.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/schemefs/schemefs/internal/storage"
	"github.com/schemefs/schemefs/pkg/retry"
)

// api is the slice of the S3 client the store uses. Tests substitute a
// fake; production wires the real client.
type api interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements storage.Store over an S3 bucket.
type Store struct {
	api     api
	bucket  string
	cfg     *Config
	logger  *slog.Logger
	retryer *retry.Retryer
}

// New connects to the bucket and verifies it is reachable.
func New(ctx context.Context, bucket string, cfg *Config, logger *slog.Logger) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st := newStore(client, bucket, cfg, logger)
	if _, err := st.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not reachable: %w", bucket, err)
	}
	logger.Info("s3 device attached", "bucket", bucket, "region", cfg.Region)
	return st, nil
}

func newStore(client api, bucket string, cfg *Config, logger *slog.Logger) *Store {
	r := retry.New(retry.Config{
		MaxAttempts: cfg.MaxRetries,
		Classify:    retryable,
	})
	return &Store{api: client, bucket: bucket, cfg: cfg, logger: logger, retryer: r}
}

// retryable marks transport-level failures worth another attempt. Service
// responses, including not-found, are final.
func retryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// key maps a store path to an object key without the leading slash. The
// root maps to the empty key.
func key(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// dirKey is the marker object key for a directory.
func dirKey(k string) string { return k + "/" }

func parentPath(p string) string {
	return path.Dir(path.Clean("/" + p))
}

// head returns object metadata, or nil when the object does not exist.
func (s *Store) head(k string) *s3.HeadObjectOutput {
	ctx, cancel := s.opCtx()
	defer cancel()
	var out *s3.HeadObjectOutput
	err := s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(k),
		})
		if isNotFound(err) {
			out = nil
			return nil
		}
		return err
	})
	if err != nil {
		s.logger.Warn("head failed", "key", k, "error", err)
		return nil
	}
	return out
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *s3types.NotFound
	var nk *s3types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nk)
}

func (s *Store) get(k string) ([]byte, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	var data []byte
	err := s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	return data, err
}

func (s *Store) put(k string, data []byte) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(k),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		return err
	})
}

func (s *Store) delete(k string) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(k),
		})
		return err
	})
}

// list returns the direct children of a prefix via delimiter grouping.
func (s *Store) list(prefix string) ([]string, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	var names []string
	var token *string
	for {
		var out *s3.ListObjectsV2Output
		err := s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			var err error
			out, err = s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.bucket),
				Prefix:            aws.String(prefix),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue // the marker object itself
			}
			names = append(names, name)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix)
			names = append(names, strings.TrimSuffix(name, "/"))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Exists(p string) bool {
	k := key(p)
	if k == "" {
		return true
	}
	return s.head(k) != nil || s.IsDir(p)
}

func (s *Store) IsDir(p string) bool {
	k := key(p)
	if k == "" {
		return true
	}
	if s.head(dirKey(k)) != nil {
		return true
	}
	// Buckets populated outside the store may hold implicit directories
	// with no marker object.
	names, err := s.list(dirKey(k))
	return err == nil && len(names) > 0
}

func (s *Store) ModTime(p string) time.Time {
	k := key(p)
	if k == "" {
		return time.Time{}
	}
	if out := s.head(k); out != nil {
		return aws.ToTime(out.LastModified)
	}
	if out := s.head(dirKey(k)); out != nil {
		return aws.ToTime(out.LastModified)
	}
	return time.Time{}
}

func (s *Store) Size(p string) int64 {
	if out := s.head(key(p)); out != nil {
		return aws.ToInt64(out.ContentLength)
	}
	return 0
}

func (s *Store) List(p string) ([]string, error) {
	k := key(p)
	prefix := ""
	if k != "" {
		if !s.IsDir(p) {
			return nil, fmt.Errorf("not a directory: %s", p)
		}
		prefix = dirKey(k)
	}
	return s.list(prefix)
}

// Remove deletes a file or an empty directory. The root and non-empty
// directories are refused.
func (s *Store) Remove(p string) bool {
	k := key(p)
	if k == "" {
		return false
	}
	if s.IsDir(p) {
		names, err := s.list(dirKey(k))
		if err != nil || len(names) > 0 {
			return false
		}
		return s.delete(dirKey(k)) == nil
	}
	if s.head(k) == nil {
		return false
	}
	return s.delete(k) == nil
}

// MkDir creates a directory marker. The entry must be new and the parent
// must already exist.
func (s *Store) MkDir(p string) bool {
	k := key(p)
	if k == "" || s.Exists(p) {
		return false
	}
	if parent := parentPath(p); parent != "/" && !s.IsDir(parent) {
		return false
	}
	return s.put(dirKey(k), nil) == nil
}

func (s *Store) Open(p, mode string) (storage.File, error) {
	k := key(p)
	if k == "" || s.IsDir(p) {
		return nil, fmt.Errorf("not a file: %s", p)
	}

	existing := s.head(k) != nil
	obj := &object{st: s, key: k, existed: existing}

	switch mode {
	case storage.ModeRead:
		if !existing {
			return nil, fmt.Errorf("no such file: %s", p)
		}
		data, err := s.get(k)
		if err != nil {
			return nil, err
		}
		obj.data = data
	case storage.ModeWrite:
		if parent := parentPath(p); parent != "/" && !s.IsDir(parent) {
			return nil, fmt.Errorf("no such directory: %s", parent)
		}
		obj.writable = true
		obj.dirty = existing
	case storage.ModeAppend:
		if parent := parentPath(p); parent != "/" && !s.IsDir(parent) {
			return nil, fmt.Errorf("no such directory: %s", parent)
		}
		if existing {
			data, err := s.get(k)
			if err != nil {
				return nil, err
			}
			obj.data = data
			obj.pos = len(data)
		}
		obj.writable = true
	case storage.ModeReadWrite:
		if !existing {
			return nil, fmt.Errorf("no such file: %s", p)
		}
		data, err := s.get(k)
		if err != nil {
			return nil, err
		}
		obj.data = data
		obj.writable = true
	default:
		return nil, fmt.Errorf("invalid open mode %q", mode)
	}
	return obj, nil
}

// object is an open handle over a whole-object snapshot. Writable handles
// upload on Close; the read path never touches the network after Open.
type object struct {
	st       *Store
	key      string
	data     []byte
	pos      int
	writable bool
	dirty    bool
	existed  bool
	closed   bool
}

func (o *object) Read(p []byte) (int, error) {
	if o.closed {
		return 0, fmt.Errorf("read on closed file")
	}
	if o.pos >= len(o.data) {
		return 0, io.EOF
	}
	n := copy(p, o.data[o.pos:])
	o.pos += n
	return n, nil
}

func (o *object) Write(p []byte) (int, error) {
	if o.closed {
		return 0, fmt.Errorf("write on closed file")
	}
	if !o.writable {
		return 0, fmt.Errorf("file not open for writing")
	}
	if need := o.pos + len(p); need > len(o.data) {
		grown := make([]byte, need)
		copy(grown, o.data)
		o.data = grown
	}
	copy(o.data[o.pos:], p)
	o.pos += len(p)
	o.dirty = true
	return len(p), nil
}

func (o *object) Seek(offset int64, whence int) (int64, error) {
	if o.closed {
		return 0, fmt.Errorf("seek on closed file")
	}
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(o.pos) + offset
	case io.SeekEnd:
		next = int64(len(o.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	o.pos = int(next)
	return next, nil
}

func (o *object) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	// An open-for-write handle that never existed still creates the
	// object, matching the memory store.
	if o.writable && (o.dirty || !o.existed) {
		return o.st.put(o.key, o.data)
	}
	return nil
}
