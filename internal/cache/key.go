package cache

import (
	"fmt"
	"strings"
)

// Query names used as the first key segment
const (
	QueryAllContents   = "all-contents"
	QueryCategories    = "categories"
	QuerySubcategories = "subcategories"
)

const keySeparator = ":"

// Key is a semantic cache key such as ["all-contents", "3", "9", "1"]
type Key []string

// NewKey builds a key from arbitrary printable parts
func NewKey(parts ...interface{}) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

// ContentsKey identifies one page of a subcategory listing
func ContentsKey(categoryID, subcategoryID int64, page int) Key {
	return NewKey(QueryAllContents, categoryID, subcategoryID, page)
}

// ContentsPrefix covers every page of a subcategory listing
func ContentsPrefix(categoryID, subcategoryID int64) Key {
	return NewKey(QueryAllContents, categoryID, subcategoryID)
}

func CategoriesKey() Key {
	return Key{QueryCategories}
}

func SubcategoriesKey(categoryID int64) Key {
	return NewKey(QuerySubcategories, categoryID)
}

func (k Key) String() string {
	return strings.Join(k, keySeparator)
}

// Query returns the key's first segment
func (k Key) Query() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether every segment of prefix matches k
func (k Key) HasPrefix(prefix Key) bool {
	return matchesPrefix(k.String(), prefix.String())
}

// matchesPrefix compares encoded keys segment-wise, so "all-contents:3:1"
// does not match a key under "all-contents:3:10".
func matchesPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+keySeparator)
}
