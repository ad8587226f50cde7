package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"claimcheck/internal/config"
	"claimcheck/internal/services"
)

// Category is the evidence folder beneath a claim prefix.
type Category string

const (
	CategoryDocuments Category = "pdfs"
	CategoryImages    Category = "images"
)

// Store is the evidence store gateway.
type Store interface {
	// Store uploads one object and returns its public URL.
	Store(ctx context.Context, claimID string, category Category, filename string, data []byte) (string, error)
	// DeletePrefix removes every object under {claimID}/ and reports how many were removed.
	DeletePrefix(ctx context.Context, claimID string) (int, error)
	// Backend names the implementation for health output.
	Backend() string
}

// ObjectKey builds the key for one evidence object.
func ObjectKey(claimID string, category Category, filename string) (string, error) {
	if err := validateSegment("claim id", claimID); err != nil {
		return "", err
	}
	if category != CategoryDocuments && category != CategoryImages {
		return "", services.Wrap(services.ErrValidation, "storage", "object key", fmt.Sprintf("unknown category %q", category), nil)
	}
	if err := validateSegment("file name", filename); err != nil {
		return "", err
	}
	return claimID + "/" + string(category) + "/" + filename, nil
}

func claimPrefix(claimID string) (string, error) {
	if err := validateSegment("claim id", claimID); err != nil {
		return "", err
	}
	return claimID + "/", nil
}

func validateSegment(label, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return services.Wrap(services.ErrValidation, "storage", "validate", label+" is empty", nil)
	case value == "." || value == "..", strings.ContainsAny(value, `/\`):
		return services.Wrap(services.ErrValidation, "storage", "validate", fmt.Sprintf("%s %q is not a single path segment", label, value), nil)
	}
	return nil
}

// publicURL joins a base URL and an object key, escaping each key segment.
func publicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// New returns the backend selected by storage.backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "new", "config is nil", nil)
	}
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return NewS3(ctx, cfg.Storage)
	case config.StorageFilesystem, "":
		return NewFilesystem(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "new", fmt.Sprintf("unknown backend %q", cfg.Storage.Backend), nil)
	}
}
