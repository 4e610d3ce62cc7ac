package models

import (
	"io"
	"os"
	"time"
)

// ImageKind tags the two sources an image slot can hold
type ImageKind string

const (
	ImageKindUpload ImageKind = "upload"
	ImageKindURL    ImageKind = "url"
)

// ImageRef is one entry of a form's ordered image list: either a file staged
// for upload or an already hosted URL.
type ImageRef struct {
	Kind   ImageKind   `json:"kind"`
	Upload *StagedFile `json:"upload,omitempty"`
	Href   string      `json:"href,omitempty"`
}

// UploadImage wraps a staged file
func UploadImage(f *StagedFile) ImageRef {
	return ImageRef{Kind: ImageKindUpload, Upload: f}
}

// URLImage wraps a hosted image URL
func URLImage(href string) ImageRef {
	return ImageRef{Kind: ImageKindURL, Href: href}
}

// StagedFile is an uploaded image held on local disk until the form that
// references it is submitted or the image is removed.
type StagedFile struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Path        string    `json:"-"`
	StagedAt    time.Time `json:"staged_at"`
}

// Open returns a reader over the staged bytes
func (f *StagedFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}
