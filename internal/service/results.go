package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
	"github.com/ankurclub/clever-video-summarizer/internal/report"
	"github.com/ankurclub/clever-video-summarizer/internal/storage"
	"github.com/ankurclub/clever-video-summarizer/internal/store"
)

// ExportURLExpiry is how long an export link stays valid on private buckets.
const ExportURLExpiry = 24 * time.Hour

// maxPutAttempts bounds id collision retries.
const maxPutAttempts = 3

// =============================================================================
// Interface Definition
// =============================================================================

// ResultService keeps generated artifacts for tiers entitled to history.
type ResultService interface {
	// Put saves content for id. Returns nil without saving when the tier
	// has no history access.
	Put(ctx context.Context, id domain.Identity, content string, kind domain.ArtifactKind) (*domain.StoredArtifact, error)

	// List returns id's artifacts, newest first. Empty without history access.
	List(ctx context.Context, id domain.Identity) ([]domain.StoredArtifact, error)

	// Get returns one artifact owned by id.
	Get(ctx context.Context, id domain.Identity, artifactID string) (domain.StoredArtifact, error)

	// Delete removes an artifact owned by id and reports whether it did.
	Delete(ctx context.Context, id domain.Identity, artifactID string) (bool, error)

	// Export renders an artifact in format, writes it to object storage and
	// returns a link to it. Requires content library access.
	Export(ctx context.Context, id domain.Identity, artifactID string, format report.Format) (ExportResult, error)
}

// ExportResult locates an exported artifact.
type ExportResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	FileName string `json:"file_name"`
}

// =============================================================================
// Implementation
// =============================================================================

type resultService struct {
	artifacts store.ArtifactStore
	objects   storage.Storage
	now       func() time.Time
	logger    *slog.Logger
}

// NewResultService creates a ResultService. objects may be nil, which
// disables Export.
func NewResultService(artifacts store.ArtifactStore, objects storage.Storage, logger *slog.Logger) ResultService {
	return &resultService{
		artifacts: artifacts,
		objects:   objects,
		now:       time.Now,
		logger:    logger,
	}
}

// Put stores a new artifact, suffixing the id if another artifact was
// created in the same instant.
func (s *resultService) Put(ctx context.Context, id domain.Identity, content string, kind domain.ArtifactKind) (*domain.StoredArtifact, error) {
	const op = "results.put"

	if !domain.LimitsFor(id.Tier).AllowHistory {
		return nil, nil
	}
	if !kind.Valid() {
		return nil, domain.Invalid(op, "unknown artifact type")
	}

	a := domain.NewArtifact(id.Key, kind, content, s.now())
	base := a.ID
	for attempt := 1; ; attempt++ {
		err := s.artifacts.PutArtifact(ctx, a)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) || attempt == maxPutAttempts {
			return nil, domain.Internal(err, op, "failed to save artifact")
		}
		a.ID = base + "_" + uuid.NewString()[:8]
	}

	metrics.ArtifactsStored.WithLabelValues(string(kind)).Inc()
	s.logger.Info("artifact stored",
		"identity", id.Key,
		"artifact_id", a.ID,
		"type", kind,
		"size", a.ByteSize,
	)
	return &a, nil
}

// List returns the owner's history.
func (s *resultService) List(ctx context.Context, id domain.Identity) ([]domain.StoredArtifact, error) {
	const op = "results.list"

	if !domain.LimitsFor(id.Tier).AllowHistory {
		return []domain.StoredArtifact{}, nil
	}

	list, err := s.artifacts.ListArtifacts(ctx, id.Key)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list artifacts")
	}
	return list, nil
}

// Get returns one artifact. Artifacts of other owners and tiers without
// history both read as not found.
func (s *resultService) Get(ctx context.Context, id domain.Identity, artifactID string) (domain.StoredArtifact, error) {
	const op = "results.get"

	if !domain.LimitsFor(id.Tier).AllowHistory {
		return domain.StoredArtifact{}, domain.NotFound(op, "artifact", artifactID)
	}

	a, err := s.artifacts.GetArtifact(ctx, artifactID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !a.OwnedBy(id.Key)) {
		return domain.StoredArtifact{}, domain.NotFound(op, "artifact", artifactID)
	}
	if err != nil {
		return domain.StoredArtifact{}, domain.Internal(err, op, "failed to load artifact")
	}
	return a, nil
}

// Delete removes an owned artifact.
func (s *resultService) Delete(ctx context.Context, id domain.Identity, artifactID string) (bool, error) {
	const op = "results.delete"

	if strings.TrimSpace(artifactID) == "" {
		return false, nil
	}

	deleted, err := s.artifacts.DeleteArtifact(ctx, id.Key, artifactID)
	if err != nil {
		s.logger.Error("failed to delete artifact", "error", err, "op", op, "artifact_id", artifactID)
		return false, domain.Internal(err, op, "failed to delete artifact")
	}
	if deleted {
		s.logger.Info("artifact deleted", "identity", id.Key, "artifact_id", artifactID)
	}
	return deleted, nil
}

// Export copies an artifact into object storage.
func (s *resultService) Export(ctx context.Context, id domain.Identity, artifactID string, format report.Format) (ExportResult, error) {
	const op = "results.export"

	if !domain.LimitsFor(id.Tier).AllowContentLibrary {
		return ExportResult{}, domain.PolicyDenied(op, id.Tier, domain.LimitFeature,
			"The content library is not available on the "+id.Tier.DisplayName()+" plan.")
	}
	if s.objects == nil {
		return ExportResult{}, domain.Errorf(domain.EUNAVAILABLE, op, "Export storage is not configured.")
	}

	a, err := s.Get(ctx, id, artifactID)
	if err != nil {
		return ExportResult{}, err
	}

	renderer := report.For(format)
	var buf bytes.Buffer
	if _, err := renderer.Render(ctx, a, &buf); err != nil {
		return ExportResult{}, domain.Internal(err, op, "failed to render export")
	}

	ext := renderer.Extension(a)
	key := storage.ExportKey(id.Key, ext)
	err = s.objects.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: storage.DetectContentType("", key),
	})
	if err != nil {
		return ExportResult{}, domain.Internal(err, op, "failed to write export")
	}

	url, err := s.objects.URL(ctx, key, ExportURLExpiry)
	if err != nil {
		return ExportResult{}, domain.Internal(err, op, "failed to create export link")
	}

	metrics.ArtifactsExported.Inc()
	s.logger.Info("artifact exported", "identity", id.Key, "artifact_id", a.ID, "key", key, "format", format)

	return ExportResult{
		URL:      url,
		Key:      key,
		FileName: a.FileName + ext,
	}, nil
}
