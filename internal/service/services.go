package service

import (
	"context"
	"io"
	"time"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/validation"
	"github.com/rs/zerolog"
)

// StatusService defines the status transition control
type StatusService interface {
	Options(current models.Status) (options []models.Status, known bool)
	Change(ctx context.Context, session models.Session, change models.StatusChange) (models.StatusState, error)
	State(id int64) (models.StatusState, bool)
	Observe(items []models.ContentItem)
}

// ListService defines the paginated list view
type ListService interface {
	Page(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int) (*models.ListView, error)
	Retry(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int) (*models.ListView, error)
	EditForm(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int, id int64) (*models.ContentForm, error)
}

// FormService defines create and edit submission
type FormService interface {
	Submit(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error)
}

// ImageStager holds uploaded images on disk until their form is submitted
type ImageStager interface {
	Stage(ctx context.Context, filename string, r io.Reader) (*models.StagedFile, error)
	Get(id string) (*models.StagedFile, bool)
	Release(id string) error
	Hold(form *models.ContentForm) (done func(), err error)
	ReleaseForm(form *models.ContentForm)
	Sweep(now time.Time) int
	Count() int
	Close() error
}

// DeletionService defines the two-step delete confirmation
type DeletionService interface {
	Request(session models.Session, contentID, categoryID, subcategoryID int64) (*models.PendingDeletion, error)
	Confirm(ctx context.Context, session models.Session, token string) error
	Cancel(token string) error
	Sweep(now time.Time) int
}

// Notifier records transient user-facing notifications
type Notifier interface {
	Notify(level models.NotificationLevel, message string) models.Notification
	Success(message string) models.Notification
	Error(message string) models.Notification
	Recent(limit int) []models.Notification
}

// TaxonomyService defines category and subcategory reads
type TaxonomyService interface {
	Categories(ctx context.Context, session models.Session) ([]models.Category, error)
	Subcategories(ctx context.Context, session models.Session, categoryID int64) ([]models.Subcategory, error)
}

// Janitor expires abandoned uploads and pending deletions in the background
type Janitor interface {
	StartSweeper(ctx context.Context)
	StopSweeper()
}

// Services holds all service interfaces
type Services struct {
	Status    StatusService
	List      ListService
	Form      FormService
	Uploads   ImageStager
	Deletions DeletionService
	Notifier  Notifier
	Taxonomy  TaxonomyService
	Janitor   Janitor
	Validator *validation.Validator
}

// Dependencies groups the collaborators shared by every service
type Dependencies struct {
	Store   client.ContentStore
	Cache   *cache.QueryCache
	Metrics *metrics.Metrics
	Config  *config.Config
	Log     zerolog.Logger
}

// NewServices creates all services
func NewServices(deps Dependencies) (*Services, error) {
	cfg := deps.Config
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidator(
		validation.WithLocation(loc),
		validation.WithMaxFileSize(cfg.Uploads.MaxFileSize),
	)

	uploads, err := newImageStager(cfg.Uploads, validator, deps.Metrics, deps.Log)
	if err != nil {
		return nil, err
	}

	notifier := newNotifier(defaultNotificationCapacity, deps.Log)
	statusSvc := newStatusService(deps.Store, deps.Cache, notifier, deps.Metrics, deps.Log)
	listSvc := newListService(deps.Store, deps.Cache, statusSvc, cfg.ContentAPI.PerPage, deps.Log)
	formSvc := newFormService(deps.Store, deps.Cache, validator, uploads, notifier, deps.Metrics, deps.Log)
	deletionSvc := newDeletionService(deps.Store, deps.Cache, notifier, deps.Metrics, cfg.Uploads.DeletionTTL, deps.Log)
	taxonomySvc := newTaxonomyService(deps.Store, deps.Cache, deps.Log)
	janitor := newJanitor(cfg.Uploads.SweepInterval, deps.Log, uploads, deletionSvc)

	return &Services{
		Status:    statusSvc,
		List:      listSvc,
		Form:      formSvc,
		Uploads:   uploads,
		Deletions: deletionSvc,
		Notifier:  notifier,
		Taxonomy:  taxonomySvc,
		Janitor:   janitor,
		Validator: validator,
	}, nil
}

// Close stops background work and releases staged files
func (s *Services) Close() error {
	s.Janitor.StopSweeper()
	return s.Uploads.Close()
}
