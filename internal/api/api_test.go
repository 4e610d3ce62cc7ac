package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/content-dashboard/internal/api"
	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/mocks"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockContentStore, *service.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()

	m := metrics.New("test")
	store := mocks.NewMockContentStore()
	services, err := service.NewServices(service.Dependencies{
		Store:   store,
		Cache:   cache.NewQueryCache(cache.NewMemoryStore(), zerolog.Nop(), cache.WithMetrics(m)),
		Metrics: m,
		Config:  cfg,
		Log:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	t.Cleanup(func() { services.Close() })

	router := api.NewRouter(services, cfg, m, zerolog.Nop())
	gin.SetMode(gin.TestMode)
	return router, store, services
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

// contentForm builds a multipart create/update body
func contentForm(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	defaults := map[string]string{
		"category_id":      "3",
		"subcategory_id":   "9",
		"heading":          "<p>Hello</p>",
		"sub_heading":      "<p>World</p>",
		"body1":            "<p>Body text</p>",
		"author":           "Jane",
		"date":             time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
		"tags":             `["a","b"]`,
		"meta_title":       "Meta",
		"meta_description": "Description",
	}
	for k, v := range fields {
		defaults[k] = v
	}
	for k, v := range defaults {
		if v != "" {
			writer.WriteField(k, v)
		}
	}
	for name, data := range files {
		part, err := writer.CreateFormFile(name, "photo.png")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		part.Write(data)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/health", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "content-dashboard" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	doRequest(router, "GET", "/v1/statuses", nil, "", nil)
	w := doRequest(router, "GET", "/metrics", nil, "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `test_http_requests_total{method="GET",route="/v1/statuses",status="200"} 1`) {
		t.Errorf("Expected request counter in metrics output")
	}
}

func TestStatusesEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/v1/statuses", nil, "", nil)
	response := decode(t, w)

	statuses := response["statuses"].([]interface{})
	if len(statuses) != 7 {
		t.Fatalf("Expected 7 statuses, got %d", len(statuses))
	}
	if statuses[5] != "Needs Revision" {
		t.Errorf("Expected 'Needs Revision' at index 5, got %v", statuses[5])
	}
}

func TestSessionMiddleware(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"default role", nil, http.StatusOK},
		{"viewer", map[string]string{"X-Dashboard-Role": "viewer"}, http.StatusOK},
		{"unknown role", map[string]string{"X-Dashboard-Role": "owner"}, http.StatusBadRequest},
		{"non bearer auth", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents", nil, "", tt.headers)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	if len(store.Sessions) == 0 || store.Sessions[0].Token != "test-token" {
		t.Errorf("Expected bearer token forwarded to the content API, got %+v", store.Sessions)
	}
}

func TestListContents(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	for i := 0; i < 9; i++ {
		store.AddItem(models.ContentItem{CategoryID: 3, SubcategoryID: 9, Heading: fmt.Sprintf("Item %d", i), Status: models.StatusDraft})
	}

	w := doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents?page=2", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var view models.ListView
	json.Unmarshal(w.Body.Bytes(), &view)
	if view.Page != 2 || len(view.Rows) != 2 {
		t.Errorf("Expected page 2 with 2 rows, got page %d with %d rows", view.Page, len(view.Rows))
	}
	if view.Summary != "Showing 8 to 9 of 9" {
		t.Errorf("Unexpected summary %q", view.Summary)
	}

	w = doRequest(router, "GET", "/v1/categories/abc/subcategories/9/contents", nil, "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad category id, got %d", w.Code)
	}
}

func TestRefreshContents(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents", nil, "", nil)
	doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents", nil, "", nil)
	if store.ListCalls != 1 {
		t.Fatalf("Expected cached listing, got %d list requests", store.ListCalls)
	}

	w := doRequest(router, "POST", "/v1/categories/3/subcategories/9/contents/refresh", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if store.ListCalls != 2 {
		t.Errorf("Expected refresh to refetch, got %d list requests", store.ListCalls)
	}
}

func TestCreateContent(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	body, contentType := contentForm(t, map[string]string{"image2[1]": "https://cdn.example.com/2.png"}, map[string][]byte{"image2[0]": pngBytes})
	w := doRequest(router, "POST", "/v1/contents", body, contentType, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.CreatedForms) != 1 {
		t.Fatalf("Expected one create request, got %d", len(store.CreatedForms))
	}

	form := store.CreatedForms[0]
	if form.CategoryID != 3 || form.SubcategoryID != 9 {
		t.Errorf("Unexpected taxonomy ids %d/%d", form.CategoryID, form.SubcategoryID)
	}
	if len(form.Tags) != 2 || form.Tags[0] != "a" || form.Tags[1] != "b" {
		t.Errorf("Unexpected tags %v", form.Tags)
	}
	if len(form.Images) != 2 || form.Images[0].Kind != models.ImageKindUpload || form.Images[1].Kind != models.ImageKindURL {
		t.Errorf("Expected upload then URL image, got %+v", form.Images)
	}

	// Round trip: the new item appears in the listing
	w = doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents", nil, "", nil)
	var view models.ListView
	json.Unmarshal(w.Body.Bytes(), &view)
	if view.Total != 1 {
		t.Errorf("Expected created item listed, got total %d", view.Total)
	}
}

func TestCreateContent_ValidationError(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	body, contentType := contentForm(t, map[string]string{
		"heading":   "<p>H</p>",
		"date":      time.Now().AddDate(0, 0, 5).Format("2006-01-02"),
		"image2[0]": "not a url",
	}, nil)
	w := doRequest(router, "POST", "/v1/contents", body, contentType, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	errs, ok := response["errors"].([]interface{})
	if !ok || len(errs) != 3 {
		t.Errorf("Expected 3 field errors, got %v", response["errors"])
	}
	if len(store.CreatedForms) != 0 {
		t.Error("Expected no request for an invalid form")
	}
}

func TestCreateContent_ServerFailureKeepsStagedImages(t *testing.T) {
	router, store, services := setupTestRouter(t)
	store.CreateFunc = func(ctx context.Context, form *models.ContentForm) (*models.ContentItem, error) {
		return nil, &client.ApplicationError{StatusCode: 200, Message: "Heading already used"}
	}

	body, contentType := contentForm(t, nil, map[string][]byte{"image2[0]": pngBytes})
	w := doRequest(router, "POST", "/v1/contents", body, contentType, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}
	response := decode(t, w)
	if response["error"] != "Heading already used" {
		t.Errorf("Expected server message, got %v", response["error"])
	}
	staged, _ := response["staged"].([]interface{})
	if len(staged) != 1 {
		t.Fatalf("Expected staged image reference, got %v", response["staged"])
	}

	// Retry with the staged reference instead of re-uploading
	store.CreateFunc = nil
	body, contentType = contentForm(t, map[string]string{"image2[0]": staged[0].(string)}, nil)
	w = doRequest(router, "POST", "/v1/contents", body, contentType, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected retry to succeed, got %d: %s", w.Code, w.Body.String())
	}
	if services.Uploads.Count() != 0 {
		t.Error("Expected staged image released after successful submit")
	}
}

func TestCreateContent_ViewerForbidden(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	body, contentType := contentForm(t, map[string]string{"image2[0]": "https://cdn.example.com/1.png"}, nil)
	w := doRequest(router, "POST", "/v1/contents", body, contentType, map[string]string{"X-Dashboard-Role": "viewer"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestUpdateContent(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.AddItem(models.ContentItem{ID: 42, CategoryID: 3, SubcategoryID: 9, Heading: "Old"})

	tests := []struct {
		name       string
		method     string
		path       string
		fields     map[string]string
		wantStatus int
	}{
		{"put", "PUT", "/v1/contents/42", nil, http.StatusOK},
		{"override in body", "POST", "/v1/contents/42", map[string]string{"_method": "PUT"}, http.StatusOK},
		{"override in query", "POST", "/v1/contents/42?_method=PUT", nil, http.StatusOK},
		{"post without override", "POST", "/v1/contents/42", nil, http.StatusMethodNotAllowed},
		{"unknown id", "PUT", "/v1/contents/77", nil, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{"heading": "<p>New heading</p>", "image2[0]": "https://cdn.example.com/1.png"}
			for k, v := range tt.fields {
				fields[k] = v
			}
			body, contentType := contentForm(t, fields, nil)
			w := doRequest(router, tt.method, tt.path, body, contentType, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	item, _ := store.Item(42)
	if item.Heading != "<p>New heading</p>" {
		t.Errorf("Expected heading updated, got %q", item.Heading)
	}
}

func TestEditForm(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.AddItem(models.ContentItem{ID: 42, CategoryID: 3, SubcategoryID: 9, Heading: "Existing", Images: models.StringList{"https://cdn.example.com/1.png"}})

	w := doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents/42/form", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var form models.ContentForm
	json.Unmarshal(w.Body.Bytes(), &form)
	if form.ID != 42 || form.Heading != "Existing" || len(form.Images) != 1 {
		t.Errorf("Unexpected form %+v", form)
	}

	w = doRequest(router, "GET", "/v1/categories/3/subcategories/9/contents/43/form", nil, "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing row, got %d", w.Code)
	}
}

func TestChangeStatus(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.AddItem(models.ContentItem{ID: 42, CategoryID: 3, SubcategoryID: 9, Status: models.StatusDraft})

	w := doRequest(router, "POST", "/v1/contents/42/status",
		jsonBody(map[string]interface{}{"status": "Published", "current": "Draft", "category_id": 3, "subcategory_id": 9}),
		"application/json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := store.StatusRequests[0]; got.ContentID != 42 || got.Target != models.StatusPublished {
		t.Errorf("Unexpected status request %+v", got)
	}

	w = doRequest(router, "POST", "/v1/contents/42/status", jsonBody(map[string]string{"status": "Deleted"}), "application/json", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown status, got %d", w.Code)
	}
}

func TestChangeStatus_ApplicationFailure(t *testing.T) {
	router, store, services := setupTestRouter(t)
	store.StatusFunc = func(ctx context.Context, id int64, status models.Status) error {
		return &client.ApplicationError{StatusCode: 200, Message: "Not allowed to publish"}
	}

	w := doRequest(router, "POST", "/v1/contents/42/status",
		jsonBody(map[string]interface{}{"status": "Published", "current": "Draft"}), "application/json", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}

	response := decode(t, w)
	if response["error"] != "Not allowed to publish" {
		t.Errorf("Expected server message, got %v", response["error"])
	}
	state := response["state"].(map[string]interface{})
	if state["displayed"] != "Draft" {
		t.Errorf("Expected rollback to Draft, got %v", state["displayed"])
	}

	notes := services.Notifier.Recent(1)
	if len(notes) != 1 || notes[0].Message != "Not allowed to publish" {
		t.Errorf("Expected error notification, got %+v", notes)
	}
}

func TestDeletionFlow(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.AddItem(models.ContentItem{ID: 42, CategoryID: 3, SubcategoryID: 9})

	w := doRequest(router, "POST", "/v1/contents/42/deletion", jsonBody(map[string]int{"category_id": 3, "subcategory_id": 9}), "application/json", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	token := decode(t, w)["token"].(string)

	w = doRequest(router, "POST", "/v1/deletions/"+token+"/confirm", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := store.Item(42); ok {
		t.Error("Expected item deleted")
	}

	w = doRequest(router, "POST", "/v1/deletions/"+token+"/confirm", nil, "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a spent token, got %d", w.Code)
	}

	// Deleting again reports the API's failure instead of crashing
	w = doRequest(router, "POST", "/v1/contents/42/deletion", nil, "", nil)
	token = decode(t, w)["token"].(string)
	w = doRequest(router, "POST", "/v1/deletions/"+token+"/confirm", nil, "", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for an already deleted id, got %d", w.Code)
	}
}

func TestCancelDeletion(t *testing.T) {
	router, store, _ := setupTestRouter(t)

	w := doRequest(router, "POST", "/v1/contents/42/deletion", nil, "", nil)
	token := decode(t, w)["token"].(string)

	w = doRequest(router, "DELETE", "/v1/deletions/"+token, nil, "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if len(store.DeletedIDs) != 0 {
		t.Error("Cancel must not send a delete")
	}
}

func TestUploads(t *testing.T) {
	router, _, services := setupTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "photo.png")
	part.Write(pngBytes)
	writer.Close()

	w := doRequest(router, "POST", "/v1/uploads", body, writer.FormDataContentType(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	upload := decode(t, w)["upload"].(map[string]interface{})
	if upload["content_type"] != "image/png" {
		t.Errorf("Expected image/png, got %v", upload["content_type"])
	}
	if services.Uploads.Count() != 1 {
		t.Errorf("Expected one staged upload")
	}

	w = doRequest(router, "DELETE", "/v1/uploads/"+upload["id"].(string), nil, "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = doRequest(router, "DELETE", "/v1/uploads/"+upload["id"].(string), nil, "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestUploads_RejectsNonImage(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.png")
	part.Write([]byte("just some text"))
	writer.Close()

	w := doRequest(router, "POST", "/v1/uploads", body, writer.FormDataContentType(), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	router, _, services := setupTestRouter(t)
	services.Notifier.Success("Content created")

	w := doRequest(router, "GET", "/v1/notifications?limit=5", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	data := decode(t, w)["data"].([]interface{})
	if len(data) != 1 {
		t.Errorf("Expected one notification, got %d", len(data))
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.Categories = []models.Category{{ID: 3, Name: "News"}}
	store.Subcategories[3] = []models.Subcategory{{ID: 9, CategoryID: 3, Name: "Local"}}

	w := doRequest(router, "GET", "/v1/categories", nil, "", nil)
	if w.Code != http.StatusOK || len(decode(t, w)["data"].([]interface{})) != 1 {
		t.Errorf("Unexpected categories response %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(router, "GET", "/v1/categories/3/subcategories", nil, "", nil)
	if w.Code != http.StatusOK || len(decode(t, w)["data"].([]interface{})) != 1 {
		t.Errorf("Unexpected subcategories response %d: %s", w.Code, w.Body.String())
	}
}
