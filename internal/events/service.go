package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/storage"
)

// Store is the event persistence used by the service.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetOwned(ctx context.Context, id string, ownerID uuid.UUID) (*models.Event, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	DeleteWithVotes(ctx context.Context, id string, ownerID uuid.UUID) (int64, error)
}

// ReleaseQueue schedules a retry for an image that could not be released.
type ReleaseQueue interface {
	EnqueueImageRelease(ctx context.Context, eventID, ref string) error
}

// Service implements the event lifecycle.
type Service struct {
	store   Store
	images  storage.ImageStore
	retries ReleaseQueue
	logger  *zap.Logger
}

// NewService creates an event service. retries may be nil, in which case
// failed releases are only logged.
func NewService(store Store, images storage.ImageStore, retries ReleaseQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, images: images, retries: retries, logger: logger}
}

// Create validates the form, stores the uploaded images and persists the event.
// If persisting fails the stored images are released again.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, form Form, files []Upload) (*models.Event, error) {
	in, err := ParseForm(form)
	if err != nil {
		return nil, err
	}
	if err := checkUploads(in.CandidateImages, files); err != nil {
		return nil, err
	}
	refs, stored, err := s.storeImages(ctx, in.ID, in.CandidateImages, files)
	if err != nil {
		return nil, err
	}
	e := &models.Event{OwnerID: ownerID}
	apply(e, in, refs)
	if err := s.store.Create(ctx, e); err != nil {
		s.compensate(ctx, in.ID, stored)
		return nil, err
	}
	s.logger.Info("event created", zap.String("event_id", e.ID), zap.String("owner_id", ownerID.String()),
		zap.Int("candidates", len(e.SelectedData)), zap.Int("roster_rows", len(e.FileData)))
	return e, nil
}

// Update fully replaces an owned event. New images are stored before the row
// changes; the previous images no longer referenced are released after it commits.
func (s *Service) Update(ctx context.Context, id string, ownerID uuid.UUID, form Form, files []Upload) (*models.Event, error) {
	form.ID = id
	in, err := ParseForm(form)
	if err != nil {
		return nil, err
	}
	if err := checkUploads(in.CandidateImages, files); err != nil {
		return nil, err
	}
	old, err := s.store.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	refs, stored, err := s.storeImages(ctx, id, in.CandidateImages, files)
	if err != nil {
		return nil, err
	}
	updated := *old
	apply(&updated, in, refs)
	if err := s.store.Update(ctx, &updated); err != nil {
		s.compensate(ctx, id, stored)
		return nil, err
	}
	s.releaseBestEffort(ctx, id, unreferenced(old.ImageRefs(), updated.ImageRefs()))
	s.logger.Info("event updated", zap.String("event_id", id), zap.String("owner_id", ownerID.String()))
	return &updated, nil
}

// Delete removes an owned event and its votes atomically, then releases its images.
func (s *Service) Delete(ctx context.Context, id string, ownerID uuid.UUID) error {
	old, err := s.store.GetOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	votes, err := s.store.DeleteWithVotes(ctx, id, ownerID)
	if err != nil {
		return err
	}
	s.releaseBestEffort(ctx, id, old.ImageRefs())
	s.logger.Info("event deleted", zap.String("event_id", id), zap.Int64("votes_removed", votes))
	return nil
}

// Get returns an owned event.
func (s *Service) Get(ctx context.Context, id string, ownerID uuid.UUID) (*models.Event, error) {
	return s.store.GetOwned(ctx, id, ownerID)
}

// List returns the owner's events, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	list, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Event{}
	}
	return list, nil
}

func apply(e *models.Event, in *Input, images []models.CandidateImage) {
	e.ID = in.ID
	e.Date = in.Date
	e.StartTime = in.StartTime
	e.StopTime = in.StopTime
	e.Name = in.Name
	e.Description = in.Description
	e.SelectedData = in.SelectedData
	e.FileData = in.FileData
	e.CandidateImages = images
	e.Expiry = in.Expiry
	e.Link = in.Link
}

// storeImages zips uploads to declared entries in upload order. A position with
// no file keeps the declared fallback path. On failure every image stored so far
// is released and the error returned.
func (s *Service) storeImages(ctx context.Context, eventID string, declared []models.CandidateImage, files []Upload) ([]models.CandidateImage, []string, error) {
	refs := make([]models.CandidateImage, len(declared))
	var stored []string
	for i, d := range declared {
		refs[i] = d
		if i >= len(files) || files[i].empty() {
			continue
		}
		ref, err := s.saveUpload(ctx, eventID, files[i])
		if err != nil {
			s.compensate(ctx, eventID, stored)
			return nil, nil, fmt.Errorf("store image %d: %w", i, err)
		}
		refs[i].Image = ref
		stored = append(stored, ref)
	}
	return refs, stored, nil
}

func (s *Service) saveUpload(ctx context.Context, eventID string, f Upload) (string, error) {
	body, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()
	contentType := f.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(f.Filename)
	}
	return s.images.Save(ctx, eventID, f.Filename, contentType, body, f.Size)
}

// compensate releases images stored by an operation that did not complete.
func (s *Service) compensate(ctx context.Context, eventID string, refs []string) {
	if len(refs) == 0 {
		return
	}
	s.logger.Warn("rolling back stored images", zap.String("event_id", eventID), zap.Int("count", len(refs)))
	s.releaseBestEffort(ctx, eventID, refs)
}

// releaseBestEffort never fails the caller: each failed release is logged and queued for retry.
// Only images stored under this event's own prefix are released; foreign fallback paths are left alone.
func (s *Service) releaseBestEffort(ctx context.Context, eventID string, refs []string) {
	ctx = context.WithoutCancel(ctx)
	prefix := "/" + storage.EventPrefix(eventID)
	for _, ref := range refs {
		if !strings.Contains(ref, prefix) {
			s.logger.Debug("image not owned by event, skipping release", zap.String("event_id", eventID), zap.String("ref", ref))
			continue
		}
		err := s.images.Release(ctx, ref)
		if err == nil {
			continue
		}
		s.logger.Warn("image release failed", zap.String("event_id", eventID), zap.String("ref", ref), zap.Error(err))
		if s.retries == nil {
			continue
		}
		if qerr := s.retries.EnqueueImageRelease(ctx, eventID, ref); qerr != nil {
			s.logger.Error("enqueue image release failed", zap.String("ref", ref), zap.Error(qerr))
		}
	}
}

// unreferenced returns refs in old that are absent from current.
func unreferenced(old, current []string) []string {
	keep := make(map[string]bool, len(current))
	for _, r := range current {
		keep[r] = true
	}
	var out []string
	for _, r := range old {
		if !keep[r] {
			out = append(out, r)
		}
	}
	return out
}
