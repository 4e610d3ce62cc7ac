package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/content-dashboard/internal/validation"
	"github.com/gin-gonic/gin"
)

// stagedPrefix marks an image2 value that refers to an earlier upload
const stagedPrefix = "staged:"

const maxFormMemory = 32 << 20

var imageFieldPattern = regexp.MustCompile(`^image2\[(\d+)\]$`)

// formBinder turns a multipart or urlencoded request into a ContentForm.
// Files arriving with the form are staged so a failed submission can be
// retried with "staged:<id>" references.
type formBinder struct {
	uploads service.ImageStager
}

type boundForm struct {
	form   *models.ContentForm
	staged []*models.StagedFile
}

func (b *formBinder) bind(c *gin.Context) (*boundForm, error) {
	req := c.Request
	if err := req.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	if req.MultipartForm == nil {
		if err := req.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
	}

	values := req.PostForm
	var files map[string][]*multipart.FileHeader
	if req.MultipartForm != nil {
		values = req.MultipartForm.Value
		files = req.MultipartForm.File
	}
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	var fieldErrs []validation.ValidationError
	addErr := func(field, message, value string) {
		fieldErrs = append(fieldErrs, validation.ValidationError{Field: field, Message: message, Value: value})
	}

	form := &models.ContentForm{
		Heading:         get("heading"),
		SubHeading:      get("sub_heading"),
		Body:            get("body1"),
		Author:          get("author"),
		MetaTitle:       get("meta_title"),
		MetaDescription: get("meta_description"),
	}

	for field, dst := range map[string]*int64{
		"category_id":             &form.CategoryID,
		"subcategory_id":          &form.SubcategoryID,
		"original_category_id":    &form.OriginalCategoryID,
		"original_subcategory_id": &form.OriginalSubcategoryID,
	} {
		raw := get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			addErr(field, "must be a number", raw)
			continue
		}
		*dst = n
	}

	if raw := get("date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			addErr("date", "must be a date in YYYY-MM-DD format", raw)
		} else {
			form.Date = d
		}
	}

	for _, tag := range parseTags(values) {
		form.Tags.Add(tag)
	}

	bound := &boundForm{form: form}
	for _, slot := range imageSlots(values, files) {
		field := fmt.Sprintf("image2[%d]", slot)

		if fhs := files[field]; len(fhs) > 0 {
			staged, err := b.stage(c, fhs[0])
			if err != nil {
				if !errors.Is(err, validation.ErrUnsupportedImage) && !errors.Is(err, validation.ErrImageTooLarge) {
					// Nothing the user can fix; drop what this request staged
					b.release(bound)
					return nil, fmt.Errorf("stage %s: %w", field, err)
				}
				addErr(field, err.Error(), fhs[0].Filename)
				continue
			}
			bound.staged = append(bound.staged, staged)
			form.Images = append(form.Images, models.UploadImage(staged))
			continue
		}

		raw := ""
		if v := values[field]; len(v) > 0 {
			raw = strings.TrimSpace(v[0])
		}
		if id, ok := strings.CutPrefix(raw, stagedPrefix); ok {
			staged, found := b.uploads.Get(id)
			if !found {
				addErr(field, "staged image has expired or was removed", raw)
				continue
			}
			form.Images = append(form.Images, models.UploadImage(staged))
			continue
		}
		if raw != "" {
			form.Images = append(form.Images, models.URLImage(raw))
		}
	}

	if len(fieldErrs) > 0 {
		return bound, &validation.FormError{Errors: fieldErrs}
	}
	return bound, nil
}

func (b *formBinder) stage(c *gin.Context, fh *multipart.FileHeader) (*models.StagedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer f.Close()
	return b.uploads.Stage(c.Request.Context(), fh.Filename, f)
}

// release drops files staged for this request only
func (b *formBinder) release(bound *boundForm) {
	if bound == nil {
		return
	}
	for _, f := range bound.staged {
		b.uploads.Release(f.ID)
	}
}

// parseTags accepts a JSON array in "tags", repeated "tags[]" fields, or a
// comma separated "tags" value.
func parseTags(values map[string][]string) []string {
	if list := values["tags[]"]; len(list) > 0 {
		return list
	}
	raw := ""
	if v := values["tags"]; len(v) > 0 {
		raw = strings.TrimSpace(v[0])
	}
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return tags
		}
	}
	return strings.Split(raw, ",")
}

// imageSlots returns the image2[i] indices present, in order
func imageSlots(values map[string][]string, files map[string][]*multipart.FileHeader) []int {
	seen := map[int]bool{}
	collect := func(key string) {
		if m := imageFieldPattern.FindStringSubmatch(key); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				seen[n] = true
			}
		}
	}
	for key := range values {
		collect(key)
	}
	for key := range files {
		collect(key)
	}

	slots := make([]int, 0, len(seen))
	for n := range seen {
		slots = append(slots, n)
	}
	sort.Ints(slots)
	return slots
}
