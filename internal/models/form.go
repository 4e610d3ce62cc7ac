package models

import "strings"

// MaxTags and MaxImages bound the form's list fields
const (
	MaxTags   = 10
	MaxImages = 10
	MinImages = 1
)

// ContentForm holds the editable fields of a content item. A zero ID means
// create mode.
type ContentForm struct {
	ID              int64      `json:"id,omitempty" form:"id"`
	CategoryID      int64      `json:"category_id" form:"category_id" validate:"gt=0"`
	SubcategoryID   int64      `json:"subcategory_id" form:"subcategory_id" validate:"gt=0"`
	Heading         string     `json:"heading" form:"heading" validate:"textmin=2"`
	SubHeading      string     `json:"sub_heading" form:"sub_heading" validate:"textmin=2"`
	Body            string     `json:"body1" form:"body1" validate:"textmin=2"`
	Author          string     `json:"author" form:"author" validate:"min=2"`
	Date            Date       `json:"date" form:"date"`
	Tags            TagList    `json:"tags" form:"tags" validate:"max=10,unique"`
	MetaTitle       string     `json:"meta_title" form:"meta_title" validate:"min=2"`
	MetaDescription string     `json:"meta_description" form:"meta_description" validate:"min=2"`
	Images          []ImageRef `json:"image2" form:"image2" validate:"min=1,max=10"`

	// OriginalCategoryID and OriginalSubcategoryID record where an edited
	// item was listed before the edit. They are not sent to the content API.
	OriginalCategoryID    int64 `json:"original_category_id,omitempty" form:"original_category_id"`
	OriginalSubcategoryID int64 `json:"original_subcategory_id,omitempty" form:"original_subcategory_id"`
}

// OriginalScope returns the listing the edited item came from, falling back
// to the form's target when unknown.
func (f *ContentForm) OriginalScope() (categoryID, subcategoryID int64) {
	if f.OriginalCategoryID > 0 && f.OriginalSubcategoryID > 0 {
		return f.OriginalCategoryID, f.OriginalSubcategoryID
	}
	return f.CategoryID, f.SubcategoryID
}

// IsEdit reports whether the form updates an existing item
func (f *ContentForm) IsEdit() bool {
	return f.ID > 0
}

// Reset clears every field except the target category and subcategory
func (f *ContentForm) Reset() {
	*f = ContentForm{CategoryID: f.CategoryID, SubcategoryID: f.SubcategoryID}
}

// Uploads returns the staged files referenced by the form
func (f *ContentForm) Uploads() []*StagedFile {
	var files []*StagedFile
	for _, img := range f.Images {
		if img.Kind == ImageKindUpload && img.Upload != nil {
			files = append(files, img.Upload)
		}
	}
	return files
}

// FormFromItem pre-fills an edit form from an existing record
func FormFromItem(item *ContentItem) *ContentForm {
	form := &ContentForm{
		ID:                    item.ID,
		CategoryID:            item.CategoryID,
		SubcategoryID:         item.SubcategoryID,
		OriginalCategoryID:    item.CategoryID,
		OriginalSubcategoryID: item.SubcategoryID,
		Heading:         item.Heading,
		SubHeading:      item.SubHeading,
		Body:            item.Body,
		Author:          item.Author,
		Date:            item.Date,
		MetaTitle:       item.MetaTitle,
		MetaDescription: item.MetaDescription,
	}
	for _, tag := range item.Tags {
		form.Tags.Add(tag)
	}
	for _, href := range item.ImageURLs() {
		form.Images = append(form.Images, URLImage(href))
	}
	return form
}

// ItemFromForm describes the item a form saves. Staged uploads have no
// hosted URL yet and are left out of Images.
func ItemFromForm(form *ContentForm) *ContentItem {
	item := &ContentItem{
		ID:              form.ID,
		CategoryID:      form.CategoryID,
		SubcategoryID:   form.SubcategoryID,
		Heading:         form.Heading,
		SubHeading:      form.SubHeading,
		Body:            form.Body,
		Author:          form.Author,
		Date:            form.Date,
		Tags:            StringList(append([]string(nil), form.Tags...)),
		MetaTitle:       form.MetaTitle,
		MetaDescription: form.MetaDescription,
	}
	for _, img := range form.Images {
		if img.Kind == ImageKindURL {
			item.Images = append(item.Images, img.Href)
		}
	}
	return item
}

// TagList is an ordered list of unique, non-empty tags
type TagList []string

// Add appends tag unless it is blank, already present (exact match) or the
// list is full. It reports whether the list changed.
func (l *TagList) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(*l) >= MaxTags || l.Contains(tag) {
		return false
	}
	*l = append(*l, tag)
	return true
}

// Remove deletes tag by value
func (l *TagList) Remove(tag string) bool {
	for i, existing := range *l {
		if existing == tag {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports an exact, case-sensitive match
func (l TagList) Contains(tag string) bool {
	for _, existing := range l {
		if existing == tag {
			return true
		}
	}
	return false
}
