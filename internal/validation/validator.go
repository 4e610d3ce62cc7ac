package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/content-dashboard/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// MaxImageSize is the per-file ceiling for uploaded images
const MaxImageSize int64 = 10 * 1024 * 1024

// AllowedImageTypes is the MIME allow-list for uploaded images
var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
}

var (
	ErrUnsupportedImage = errors.New("unsupported image type, allowed: png, jpeg, jpg, gif, webp, avif")
	ErrImageTooLarge    = errors.New("image exceeds the maximum file size")
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// FormError carries every validation failure of a rejected form
type FormError struct {
	Errors []ValidationError
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, ve.Field+": "+ve.Message)
	}
	return "form validation failed: " + strings.Join(parts, "; ")
}

// Validator checks content forms before anything is sent to the content API
type Validator struct {
	validate    *validator.Validate
	now         func() time.Time
	location    *time.Location
	maxFileSize int64
}

// Option configures a Validator
type Option func(*Validator)

// WithClock overrides the time source used for the future-date check
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithLocation sets the timezone that defines "today"
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) { v.location = loc }
}

// WithMaxFileSize overrides the per-file upload ceiling
func WithMaxFileSize(n int64) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxFileSize = n
		}
	}
}

// NewValidator creates a new validator instance
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		validate:    validator.New(),
		now:         time.Now,
		location:    time.Local,
		maxFileSize: MaxImageSize,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Report fields by their wire names
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.validate.RegisterValidation("textmin", validateTextMin)

	return v
}

// MaxFileSize returns the per-file upload ceiling
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// ValidateForm validates every field of a content form
func (v *Validator) ValidateForm(form *models.ContentForm) []ValidationError {
	var errs []ValidationError

	if err := v.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []ValidationError{{Field: "form", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Value:   safeValue(fe),
			})
		}
	}

	for i, tag := range form.Tags {
		if strings.TrimSpace(tag) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tags[%d]", i), Message: "tag must not be empty"})
		}
	}

	errs = append(errs, v.validateDate(form.Date)...)

	for i, img := range form.Images {
		if err := v.ValidateImage(img); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("image2[%d]", i),
				Message: err.Error(),
			})
		}
	}

	return errs
}

// Check runs ValidateForm and wraps any failures in a *FormError
func (v *Validator) Check(form *models.ContentForm) error {
	if errs := v.ValidateForm(form); len(errs) > 0 {
		return &FormError{Errors: errs}
	}
	return nil
}

func (v *Validator) validateDate(d models.Date) []ValidationError {
	if d.IsZero() {
		return []ValidationError{{Field: "date", Message: "date is required"}}
	}
	today := models.Today(v.now(), v.location)
	if d.After(today) {
		return []ValidationError{{Field: "date", Message: "date must not be in the future", Value: d.String()}}
	}
	return nil
}

// ValidateImage validates one entry of the image list
func (v *Validator) ValidateImage(img models.ImageRef) error {
	switch img.Kind {
	case models.ImageKindUpload:
		if img.Upload == nil {
			return errors.New("upload is missing its file")
		}
		return v.ValidateUpload(img.Upload.ContentType, img.Upload.Size)
	case models.ImageKindURL:
		return validateImageURL(img.Href)
	default:
		return fmt.Errorf("unknown image kind %q", img.Kind)
	}
}

// ValidateUpload checks a file's MIME type and size
func (v *Validator) ValidateUpload(contentType string, size int64) error {
	if !AllowedImageTypes[normalizeMIME(contentType)] {
		return fmt.Errorf("%w (got %s)", ErrUnsupportedImage, contentType)
	}
	if size > v.maxFileSize {
		return fmt.Errorf("%w of %d MB", ErrImageTooLarge, v.maxFileSize/(1024*1024))
	}
	return nil
}

// DetectImageType sniffs the MIME type from the first bytes of a file
func DetectImageType(head []byte) string {
	return normalizeMIME(mimetype.Detect(head).String())
}

// DetectImageFile sniffs the MIME type of a file on disk
func DetectImageFile(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}
	return normalizeMIME(mt.String()), nil
}

func normalizeMIME(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func validateImageURL(href string) error {
	href = strings.TrimSpace(href)
	if href == "" {
		return errors.New("image URL is required")
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid image URL %q", href)
	}
	return nil
}

// VisibleText strips markup from a rich-text value and collapses whitespace
func VisibleText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func validateTextMin(fl validator.FieldLevel) bool {
	min, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(VisibleText(fl.Field().String())) >= min
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array

	switch fe.Tag() {
	case "textmin", "min":
		if isList {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		if s, ok := fe.Value().(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Sprintf("%s is required", field)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("%s must contain at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "gt":
		return fmt.Sprintf("%s is required", field)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// safeValue keeps error payloads small: list values are reported by length
func safeValue(fe validator.FieldError) interface{} {
	switch fe.Kind() {
	case reflect.Slice, reflect.Array:
		return reflect.ValueOf(fe.Value()).Len()
	case reflect.String:
		s := fmt.Sprint(fe.Value())
		if len(s) > 64 {
			return s[:64]
		}
		return s
	}
	return fe.Value()
}
