package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/models"
)

// MockContentStore is an in-memory implementation of client.ContentStore
// that behaves like the content API, including its failure envelopes.
type MockContentStore struct {
	mu sync.Mutex

	Items         map[int64]*models.ContentItem
	NextID        int64
	Categories    []models.Category
	Subcategories map[int64][]models.Subcategory

	ListFunc   func(ctx context.Context, categoryID, subcategoryID int64, page, perPage int) (*models.ContentPage, error)
	CreateFunc func(ctx context.Context, form *models.ContentForm) (*models.ContentItem, error)
	UpdateFunc func(ctx context.Context, form *models.ContentForm) (*models.ContentItem, error)
	DeleteFunc func(ctx context.Context, id int64) error
	StatusFunc func(ctx context.Context, id int64, status models.Status) error

	ListCalls      int
	CreatedForms   []models.ContentForm
	UpdatedForms   []models.ContentForm
	DeletedIDs     []int64
	StatusRequests []models.StatusChange
	Sessions       []models.Session
}

// Verify interface compliance
var _ client.ContentStore = (*MockContentStore)(nil)

func NewMockContentStore() *MockContentStore {
	return &MockContentStore{
		Items:         make(map[int64]*models.ContentItem),
		NextID:        1,
		Subcategories: make(map[int64][]models.Subcategory),
	}
}

// AddItem seeds an item, assigning an id when it has none
func (m *MockContentStore) AddItem(item models.ContentItem) *models.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == 0 {
		item.ID = m.NextID
	}
	if item.ID >= m.NextID {
		m.NextID = item.ID + 1
	}
	m.Items[item.ID] = &item
	return &item
}

func (m *MockContentStore) ListContents(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page, perPage int) (*models.ContentPage, error) {
	m.mu.Lock()
	m.ListCalls++
	m.Sessions = append(m.Sessions, session)
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx, categoryID, subcategoryID, page, perPage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.ContentItem
	for _, item := range m.Items {
		if item.CategoryID == categoryID && item.SubcategoryID == subcategoryID {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if perPage < 1 {
		perPage = models.DefaultPerPage
	}
	result := &models.ContentPage{
		Data:        []models.ContentItem{},
		CurrentPage: page,
		PerPage:     perPage,
		Total:       len(matched),
		TotalPages:  (len(matched) + perPage - 1) / perPage,
	}
	start := (page - 1) * perPage
	if start < len(matched) {
		end := start + perPage
		if end > len(matched) {
			end = len(matched)
		}
		result.Data = matched[start:end]
	}
	return result, nil
}

func (m *MockContentStore) CreateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error) {
	m.mu.Lock()
	m.CreatedForms = append(m.CreatedForms, *form)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, form)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item := itemFromForm(form)
	item.ID = m.NextID
	now := time.Now()
	item.Status = models.StatusDraft
	item.CreatedAt = &now
	m.NextID++
	m.Items[item.ID] = item

	out := *item
	return &out, nil
}

func (m *MockContentStore) UpdateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error) {
	m.mu.Lock()
	m.UpdatedForms = append(m.UpdatedForms, *form)
	m.mu.Unlock()

	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, form)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Items[form.ID]
	if !ok {
		return nil, notFound()
	}
	item := itemFromForm(form)
	item.ID = existing.ID
	item.Status = existing.Status
	item.CreatedAt = existing.CreatedAt
	now := time.Now()
	item.UpdatedAt = &now
	m.Items[item.ID] = item

	out := *item
	return &out, nil
}

func (m *MockContentStore) DeleteContent(ctx context.Context, session models.Session, id int64) error {
	m.mu.Lock()
	m.DeletedIDs = append(m.DeletedIDs, id)
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Items[id]; !ok {
		return notFound()
	}
	delete(m.Items, id)
	return nil
}

func (m *MockContentStore) ChangeStatus(ctx context.Context, session models.Session, id int64, status models.Status) error {
	m.mu.Lock()
	m.StatusRequests = append(m.StatusRequests, models.StatusChange{ContentID: id, Target: status})
	m.mu.Unlock()

	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, id, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.Items[id]
	if !ok {
		return notFound()
	}
	item.Status = status
	return nil
}

func (m *MockContentStore) ListCategories(ctx context.Context, session models.Session) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Category(nil), m.Categories...), nil
}

func (m *MockContentStore) ListSubcategories(ctx context.Context, session models.Session, categoryID int64) ([]models.Subcategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Subcategory(nil), m.Subcategories[categoryID]...), nil
}

// Item returns a copy of the stored item
func (m *MockContentStore) Item(id int64) (models.ContentItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.Items[id]
	if !ok {
		return models.ContentItem{}, false
	}
	return *item, true
}

func notFound() error {
	return &client.ApplicationError{StatusCode: 200, Message: "Content not found"}
}

// itemFromForm mimics the API hosting uploads under a CDN URL
func itemFromForm(form *models.ContentForm) *models.ContentItem {
	item := models.ItemFromForm(form)
	item.Images = nil
	for _, img := range form.Images {
		switch img.Kind {
		case models.ImageKindURL:
			item.Images = append(item.Images, img.Href)
		case models.ImageKindUpload:
			item.Images = append(item.Images, "https://cdn.example.com/"+img.Upload.Filename)
		}
	}
	return item
}
