package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = models.Session{Token: "secret-token", Role: models.RoleEditor}

func newTestClient(t *testing.T, handler http.HandlerFunc, mode string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&config.ContentAPIConfig{BaseURL: srv.URL, UpdateMode: mode}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func stageFile(t *testing.T, name string, data []byte) *models.StagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return &models.StagedFile{ID: "staged-1", Filename: name, ContentType: "image/png", Size: int64(len(data)), Path: path}
}

func TestListContents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/content-dashboard/3/9", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("paginate_count"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		w.Write([]byte(`{"status":true,"data":{"data":[{"id":42,"heading":"Hello","status":"Draft","tags":"[\"a\",\"b\"]","image2":["https://cdn.example.com/1.png"]}],"current_page":2,"per_page":7,"total":8,"total_pages":2}}`))
	}, "override")

	page, err := c.ListContents(context.Background(), testSession, 3, 9, 2, 7)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(42), page.Data[0].ID)
	assert.Equal(t, models.StringList{"a", "b"}, page.Data[0].Tags)
	assert.Equal(t, models.StatusDraft, page.Data[0].Status)
	assert.Equal(t, 2, page.Pages())
	assert.Equal(t, "Showing 8 to 8 of 8", page.Summary())
}

func TestCreateContent_MultipartPayload(t *testing.T) {
	var gotFields map[string][]string
	var gotFile []byte
	var gotFileType string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/contents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		gotFields = r.MultipartForm.Value

		fh := r.MultipartForm.File["image2[0]"]
		require.Len(t, fh, 1)
		gotFileType = fh[0].Header.Get("Content-Type")
		f, err := fh[0].Open()
		require.NoError(t, err)
		defer f.Close()
		gotFile, _ = io.ReadAll(f)

		w.Write([]byte(`{"status":true,"message":"Content created","data":{"id":100,"heading":"Hello"}}`))
	}, "override")

	today := models.NewDate(time.Now())
	form := &models.ContentForm{
		CategoryID:      3,
		SubcategoryID:   9,
		Heading:         "Hello",
		Author:          "Jane",
		Date:            today,
		Tags:            models.TagList{"a", "b"},
		MetaTitle:       "T",
		MetaDescription: "D",
		Images:          []models.ImageRef{models.UploadImage(stageFile(t, "photo.png", []byte("png-bytes")))},
	}

	item, err := c.CreateContent(context.Background(), testSession, form)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(100), item.ID)

	assert.Equal(t, []string{"3"}, gotFields["category_id"])
	assert.Equal(t, []string{"9"}, gotFields["subcategory_id"])
	assert.Equal(t, []string{today.String()}, gotFields["date"])
	assert.Equal(t, []string{"Hello"}, gotFields["heading"])
	assert.Equal(t, []string{"Jane"}, gotFields["author"])
	assert.NotContains(t, gotFields, "_method")

	var tags []string
	require.NoError(t, json.Unmarshal([]byte(gotFields["tags"][0]), &tags))
	assert.Equal(t, []string{"a", "b"}, tags)

	assert.Equal(t, []byte("png-bytes"), gotFile)
	assert.Equal(t, "image/png", gotFileType)
}

func TestCreateContent_ResponseWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"status":true,"message":"Content created"}`))
	}, "override")

	form := &models.ContentForm{
		CategoryID:    3,
		SubcategoryID: 9,
		Heading:       "Hello",
		Tags:          models.TagList{"a"},
		Images: []models.ImageRef{
			models.URLImage("https://cdn.example.com/1.png"),
			models.UploadImage(stageFile(t, "photo.png", []byte("png-bytes"))),
		},
	}

	item, err := c.CreateContent(context.Background(), testSession, form)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(0), item.ID)
	assert.Equal(t, "Hello", item.Heading)
	assert.Equal(t, int64(3), item.CategoryID)
	assert.Equal(t, models.StringList{"a"}, item.Tags)
	assert.Equal(t, models.StringList{"https://cdn.example.com/1.png"}, item.Images)
}

func TestUpdateContent_MethodOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/contents/42", r.URL.Path)
		assert.Equal(t, "PUT", r.URL.Query().Get("_method"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "PUT", r.FormValue("_method"))
		// Mixed list: a hosted URL stays a plain field
		assert.Equal(t, "https://cdn.example.com/1.png", r.MultipartForm.Value["image2[0]"][0])
		w.Write([]byte(`{"status":true,"data":{"id":42,"heading":"Updated"}}`))
	}, "override")

	form := &models.ContentForm{
		ID:            42,
		CategoryID:    3,
		SubcategoryID: 9,
		Heading:       "Updated",
		Images:        []models.ImageRef{models.URLImage("https://cdn.example.com/1.png")},
	}
	item, err := c.UpdateContent(context.Background(), testSession, form)
	require.NoError(t, err)
	assert.Equal(t, "Updated", item.Heading)
}

func TestUpdateContent_PutMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Empty(t, r.URL.Query().Get("_method"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.MultipartForm.Value["_method"])
		w.Write([]byte(`{"status":true}`))
	}, "put")

	item, err := c.UpdateContent(context.Background(), testSession, &models.ContentForm{ID: 42})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestUpdateContent_RequiresID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "override")

	_, err := c.UpdateContent(context.Background(), testSession, &models.ContentForm{})
	assert.Error(t, err)
}

func TestChangeStatus(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/status/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"status":false,"message":"Not allowed to publish"}`))
	}, "override")

	err := c.ChangeStatus(context.Background(), testSession, 42, models.StatusPublished)
	assert.Equal(t, map[string]string{"status": "Published"}, body)

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Not allowed to publish", appErr.Message)
	assert.Equal(t, "Not allowed to publish", UserMessage(err, "fallback"))
}

func TestChangeStatus_RejectsUnknownStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid status")
	}, "override")

	err := c.ChangeStatus(context.Background(), testSession, 42, models.Status("Deleted"))
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestDeleteContent_Errors(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		wantApp     bool
		wantMessage string
	}{
		{"application failure", http.StatusOK, `{"status":false,"message":"Content not found"}`, true, "Content not found"},
		{"http failure with message", http.StatusUnprocessableEntity, `{"status":false,"message":"Locked"}`, false, "Locked"},
		{"http failure without body", http.StatusInternalServerError, ``, false, "fallback"},
		{"success", http.StatusOK, `{"status":true}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/contents/7", r.URL.Path)
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}, "override")

			err := c.DeleteContent(context.Background(), testSession, 7)
			if tt.wantMessage == "" {
				assert.NoError(t, err)
				return
			}

			var appErr *ApplicationError
			var transportErr *TransportError
			if tt.wantApp {
				assert.True(t, errors.As(err, &appErr))
			} else {
				assert.True(t, errors.As(err, &transportErr))
				assert.Equal(t, tt.code, transportErr.StatusCode)
			}
			assert.Equal(t, tt.wantMessage, UserMessage(err, "fallback"))
		})
	}
}

func TestTransportFailure(t *testing.T) {
	c, err := New(&config.ContentAPIConfig{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop())
	require.NoError(t, err)

	err = c.DeleteContent(context.Background(), testSession, 1)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 0, transportErr.StatusCode)
	assert.Equal(t, "Something went wrong", UserMessage(err, "Something went wrong"))
}

func TestListCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/categories":
			w.Write([]byte(`{"status":true,"data":[{"id":3,"name":"News"}]}`))
		case "/api/categories/3/subcategories":
			w.Write([]byte(`{"status":true,"data":[{"id":9,"category_id":3,"name":"Local"}]}`))
		default:
			http.NotFound(w, r)
		}
	}, "override")

	cats, err := c.ListCategories(context.Background(), testSession)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "News", cats[0].Name)

	subs, err := c.ListSubcategories(context.Background(), testSession, 3)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(9), subs[0].ID)
}
