package service

import "errors"

var (
	// ErrForbidden is returned when the session's role may not mutate content
	ErrForbidden = errors.New("session role may not modify content")

	ErrDeletionNotFound = errors.New("pending deletion not found")
	ErrUploadNotFound   = errors.New("staged upload not found")
	ErrContentNotFound  = errors.New("content not found on page")
)

// fallbackMessage is shown when the content API gives no message
const fallbackMessage = "Something went wrong"

// ErrInvalidScope is returned when a listing lacks a category or subcategory
var ErrInvalidScope = errors.New("category and subcategory ids must be positive")
