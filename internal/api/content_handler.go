package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContentHandler handles listing, form, status and deletion endpoints
type ContentHandler struct {
	services *service.Services
	binder   *formBinder
	log      zerolog.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(services *service.Services, log zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		services: services,
		binder:   &formBinder{uploads: services.Uploads},
		log:      log.With().Str("handler", "content").Logger(),
	}
}

// ListContents handles GET /v1/categories/:category_id/subcategories/:subcategory_id/contents
func (h *ContentHandler) ListContents(c *gin.Context) {
	categoryID, subcategoryID, ok := scopeParams(c)
	if !ok {
		return
	}

	view, err := h.services.List.Page(c.Request.Context(), sessionFrom(c), categoryID, subcategoryID, pageParam(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RefreshContents handles POST .../contents/refresh, the list view's retry
func (h *ContentHandler) RefreshContents(c *gin.Context) {
	categoryID, subcategoryID, ok := scopeParams(c)
	if !ok {
		return
	}

	view, err := h.services.List.Retry(c.Request.Context(), sessionFrom(c), categoryID, subcategoryID, pageParam(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EditForm handles GET .../contents/:id/form
func (h *ContentHandler) EditForm(c *gin.Context) {
	categoryID, subcategoryID, ok := scopeParams(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	form, err := h.services.List.EditForm(c.Request.Context(), sessionFrom(c), categoryID, subcategoryID, pageParam(c), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, form)
}

// CreateContent handles POST /v1/contents
func (h *ContentHandler) CreateContent(c *gin.Context) {
	h.submit(c, 0)
}

// UpdateContent handles PUT /v1/contents/:id
func (h *ContentHandler) UpdateContent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	h.submit(c, id)
}

// OverrideUpdate handles POST /v1/contents/:id, which must carry _method=PUT
// in the query or the form body.
func (h *ContentHandler) OverrideUpdate(c *gin.Context) {
	method := c.Query("_method")
	if method == "" {
		method = c.PostForm("_method")
	}
	if !strings.EqualFold(method, http.MethodPut) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "use PUT or send _method=PUT"})
		return
	}
	h.UpdateContent(c)
}

func (h *ContentHandler) submit(c *gin.Context, id int64) {
	session := sessionFrom(c)
	if !session.CanEdit() {
		respondError(c, h.log, service.ErrForbidden, nil)
		return
	}

	bound, err := h.binder.bind(c)
	if err != nil {
		respondError(c, h.log, err, stagedRefs(bound))
		return
	}
	bound.form.ID = id

	item, err := h.services.Form.Submit(c.Request.Context(), session, bound.form)
	if err != nil {
		// Keep staged files so the retry can reference them
		respondError(c, h.log, err, stagedRefs(bound))
		return
	}

	code := http.StatusCreated
	message := "Content created"
	if id > 0 {
		code = http.StatusOK
		message = "Content updated"
	}
	c.JSON(code, gin.H{"message": message, "data": item})
}

// ChangeStatus handles POST /v1/contents/:id/status
func (h *ContentHandler) ChangeStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status        string `json:"status" binding:"required"`
		Current       string `json:"current"`
		CategoryID    int64  `json:"category_id"`
		SubcategoryID int64  `json:"subcategory_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	change := models.StatusChange{
		ContentID:     id,
		Current:       models.Status(req.Current),
		Target:        models.Status(req.Status),
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	}
	state, err := h.services.Status.Change(c.Request.Context(), sessionFrom(c), change)
	if err != nil {
		var extra gin.H
		if state.ContentID != 0 {
			extra = gin.H{"state": state}
		}
		respondError(c, h.log, err, extra)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "state": state})
}

// RequestDeletion handles POST /v1/contents/:id/deletion
func (h *ContentHandler) RequestDeletion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CategoryID    int64 `json:"category_id"`
		SubcategoryID int64 `json:"subcategory_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	pending, err := h.services.Deletions.Request(sessionFrom(c), id, req.CategoryID, req.SubcategoryID)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, pending)
}

// ConfirmDeletion handles POST /v1/deletions/:token/confirm
func (h *ContentHandler) ConfirmDeletion(c *gin.Context) {
	if err := h.services.Deletions.Confirm(c.Request.Context(), sessionFrom(c), c.Param("token")); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Content deleted"})
}

// CancelDeletion handles DELETE /v1/deletions/:token
func (h *ContentHandler) CancelDeletion(c *gin.Context) {
	if err := h.services.Deletions.Cancel(c.Param("token")); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func stagedRefs(bound *boundForm) gin.H {
	if bound == nil || len(bound.staged) == 0 {
		return nil
	}
	refs := make([]string, 0, len(bound.staged))
	for _, f := range bound.staged {
		refs = append(refs, stagedPrefix+f.ID)
	}
	return gin.H{"staged": refs}
}

func scopeParams(c *gin.Context) (int64, int64, bool) {
	categoryID, ok := idParam(c, "category_id")
	if !ok {
		return 0, 0, false
	}
	subcategoryID, ok := idParam(c, "subcategory_id")
	if !ok {
		return 0, 0, false
	}
	return categoryID, subcategoryID, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// pageParam reads ?page=N; the list service clamps values below 1
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}
