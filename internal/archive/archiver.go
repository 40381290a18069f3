// Package archive keeps a copy of every analysis report in object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// ReportPrefix is the key prefix every archived report lives under.
const ReportPrefix = "reports/"

// ObjectStore is the subset of the bucket API the archiver needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes one archived report.
type ObjectInfo struct {
	Key          string    `json:"key"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Archiver writes JSON documents to an object store.
type Archiver struct {
	store ObjectStore
	now   func() time.Time
	log   zerolog.Logger
}

// New creates an archiver on top of store.
func New(store ObjectStore, log zerolog.Logger) *Archiver {
	return &Archiver{
		store: store,
		now:   time.Now,
		log:   log.With().Str("service", "archive").Logger(),
	}
}

// Store marshals v as JSON and uploads it under key.
func (a *Archiver) Store(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := a.store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return err
	}
	a.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("Archived document")
	return nil
}

// List returns the archived objects under prefix, newest first.
func (a *Archiver) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	infos := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		info := ObjectInfo{Key: *obj.Key}
		if obj.Size != nil {
			info.SizeBytes = *obj.Size
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// Rotate deletes reports older than retentionDays. Zero keeps everything.
// Individual delete failures are logged and skipped.
func (a *Archiver) Rotate(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	infos, err := a.List(ctx, ReportPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}

	cutoff := a.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, info := range infos {
		if !info.LastModified.Before(cutoff) {
			continue
		}
		if err := a.store.Delete(ctx, info.Key); err != nil {
			a.log.Error().Err(err).Str("key", info.Key).Msg("Failed to delete old report")
			continue
		}
		deleted++
	}

	a.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(infos)-deleted).
		Msg("Report rotation completed")
	return deleted, nil
}

// Nop discards every document.
type Nop struct{}

// Store implements the archiver contract without side effects.
func (Nop) Store(context.Context, string, any) error { return nil }
