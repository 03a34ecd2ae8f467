// Package device resolves device URIs to backing stores. Two device
// families exist: mem:// for an in-process store and s3://bucket for an
// object-store bucket.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/schemefs/schemefs/internal/storage"
	"github.com/schemefs/schemefs/internal/storage/memory"
	"github.com/schemefs/schemefs/internal/storage/s3"
)

// Validate checks a device URI without opening it.
func Validate(device string) error {
	u, err := url.Parse(device)
	if err != nil {
		return fmt.Errorf("invalid device URI %q: %w", device, err)
	}
	switch u.Scheme {
	case "mem":
		return nil
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("s3 device URI %q names no bucket", device)
		}
		return nil
	default:
		return fmt.Errorf("unsupported device scheme %q", u.Scheme)
	}
}

// ParseS3 extracts the bucket name from an s3:// device URI.
func ParseS3(device string) (string, error) {
	if err := Validate(device); err != nil {
		return "", err
	}
	u, _ := url.Parse(device)
	if u.Scheme != "s3" {
		return "", fmt.Errorf("not an s3 device URI: %s", device)
	}
	return u.Host, nil
}

// Open resolves a device URI to a live store. S3 devices use the default
// client configuration; callers needing endpoint or credential overrides
// build the store directly.
func Open(ctx context.Context, device string, logger *slog.Logger) (storage.Store, error) {
	if err := Validate(device); err != nil {
		return nil, err
	}
	u, _ := url.Parse(device)
	switch u.Scheme {
	case "mem":
		return memory.New(), nil
	default:
		return s3.New(ctx, u.Host, s3.NewDefaultConfig(), logger)
	}
}
