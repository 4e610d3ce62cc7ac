package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// imageStager keeps uploaded images in a private temporary directory until
// the form referencing them is submitted, the image is removed, or the
// upload expires.
type imageStager struct {
	dir       string
	ttl       time.Duration
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	files map[string]*models.StagedFile
	holds map[string]int
}

func newImageStager(cfg config.UploadConfig, v *validation.Validator, m *metrics.Metrics, log zerolog.Logger) (*imageStager, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	dir, err := os.MkdirTemp(cfg.Dir, "content-dashboard-uploads-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &imageStager{
		dir:       dir,
		ttl:       cfg.TTL,
		validator: v,
		metrics:   m,
		log:       log.With().Str("service", "uploads").Logger(),
		now:       time.Now,
		files:     make(map[string]*models.StagedFile),
		holds:     make(map[string]int),
	}, nil
}

// Stage writes r to disk, sniffs its type and validates it as an image
func (s *imageStager) Stage(ctx context.Context, filename string, r io.Reader) (*models.StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path := filepath.Join(s.dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	limit := s.validator.MaxFileSize()
	size, copyErr := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	contentType, err := validation.DetectImageFile(path)
	if err == nil {
		err = s.validator.ValidateUpload(contentType, size)
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	staged := &models.StagedFile{
		ID:          id,
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Size:        size,
		Path:        path,
		StagedAt:    s.now(),
	}

	s.mu.Lock()
	s.files[id] = staged
	count := len(s.files)
	s.mu.Unlock()
	s.metrics.SetStagedUploads(count)

	s.log.Debug().Str("upload_id", id).Str("content_type", contentType).Int64("size", size).Msg("Image staged")
	return staged, nil
}

func (s *imageStager) Get(id string) (*models.StagedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	return f, ok
}

// Release deletes a staged file
func (s *imageStager) Release(id string) error {
	s.mu.Lock()
	f, ok := s.files[id]
	delete(s.files, id)
	count := len(s.files)
	s.mu.Unlock()

	if !ok {
		return ErrUploadNotFound
	}
	s.metrics.SetStagedUploads(count)
	return s.remove(f)
}

// Hold protects the form's uploads from Sweep until done is called. It fails
// when an upload has already been released or expired.
func (s *imageStager) Hold(form *models.ContentForm) (func(), error) {
	uploads := form.Uploads()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range uploads {
		if _, ok := s.files[f.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, f.Filename)
		}
	}
	for _, f := range uploads {
		s.holds[f.ID]++
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, f := range uploads {
				if s.holds[f.ID]--; s.holds[f.ID] <= 0 {
					delete(s.holds, f.ID)
				}
			}
		})
	}, nil
}

// ReleaseForm releases every upload the form references
func (s *imageStager) ReleaseForm(form *models.ContentForm) {
	for _, f := range form.Uploads() {
		if err := s.Release(f.ID); err != nil && !errors.Is(err, ErrUploadNotFound) {
			s.log.Warn().Err(err).Str("upload_id", f.ID).Msg("Failed to release staged image")
		}
	}
}

// Sweep releases uploads older than the configured TTL. Held uploads are
// skipped.
func (s *imageStager) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	var expired []*models.StagedFile
	s.mu.Lock()
	for id, f := range s.files {
		if s.holds[id] > 0 {
			continue
		}
		if now.Sub(f.StagedAt) > s.ttl {
			expired = append(expired, f)
			delete(s.files, id)
		}
	}
	count := len(s.files)
	s.mu.Unlock()

	for _, f := range expired {
		if err := s.remove(f); err != nil {
			s.log.Warn().Err(err).Str("upload_id", f.ID).Msg("Failed to remove expired image")
		}
	}
	if len(expired) > 0 {
		s.metrics.SetStagedUploads(count)
		s.log.Info().Int("count", len(expired)).Msg("Expired staged images released")
	}
	return len(expired)
}

func (s *imageStager) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Close releases everything and removes the staging directory
func (s *imageStager) Close() error {
	s.mu.Lock()
	s.files = make(map[string]*models.StagedFile)
	s.holds = make(map[string]int)
	s.mu.Unlock()
	s.metrics.SetStagedUploads(0)

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove staging directory: %w", err)
	}
	return nil
}

func (s *imageStager) remove(f *models.StagedFile) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
