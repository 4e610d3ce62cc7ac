package client

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/content-dashboard/internal/models"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// FormEncoder writes a content form as the multipart body the content API
// expects.
type FormEncoder struct {
	w *multipart.Writer
}

// NewFormEncoder creates an encoder writing to w
func NewFormEncoder(w io.Writer) *FormEncoder {
	return &FormEncoder{w: multipart.NewWriter(w)}
}

// ContentType returns the multipart content type including the boundary
func (e *FormEncoder) ContentType() string {
	return e.w.FormDataContentType()
}

// Encode writes every field, then closes the multipart writer
func (e *FormEncoder) Encode(form *models.ContentForm, methodOverride bool) error {
	tags := []string(form.Tags)
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	fields := []struct{ name, value string }{
		{"category_id", strconv.FormatInt(form.CategoryID, 10)},
		{"subcategory_id", strconv.FormatInt(form.SubcategoryID, 10)},
		{"heading", form.Heading},
		{"author", form.Author},
		{"meta_title", form.MetaTitle},
		{"meta_description", form.MetaDescription},
		{"date", form.Date.String()},
		{"sub_heading", form.SubHeading},
		{"body1", form.Body},
		{"tags", string(tagsJSON)},
	}
	for _, f := range fields {
		if err := e.w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for i, img := range form.Images {
		name := fmt.Sprintf("image2[%d]", i)
		switch img.Kind {
		case models.ImageKindURL:
			if err := e.w.WriteField(name, img.Href); err != nil {
				return fmt.Errorf("write field %s: %w", name, err)
			}
		case models.ImageKindUpload:
			if err := e.writeFile(name, img.Upload); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown image kind %q", name, img.Kind)
		}
	}

	if methodOverride {
		if err := e.w.WriteField("_method", "PUT"); err != nil {
			return fmt.Errorf("write field _method: %w", err)
		}
	}

	return e.w.Close()
}

func (e *FormEncoder) writeFile(name string, f *models.StagedFile) error {
	if f == nil {
		return fmt.Errorf("%s: upload has no file", name)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filepath.Base(f.Filename))))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := e.w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open staged file %s: %w", f.ID, err)
	}
	defer src.Close()

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy staged file %s: %w", f.ID, err)
	}
	return nil
}
