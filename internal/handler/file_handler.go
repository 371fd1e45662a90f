package handler

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
	"github.com/noah-isme/lms-admin-api/pkg/storage"
)

// FileHandler serves objects stored by the local driver. It is only mounted
// when the local storage driver is active; with S3 the signed URLs point at
// the bucket directly.
type FileHandler struct {
	store *storage.LocalStore
}

// NewFileHandler creates a new file handler.
func NewFileHandler(store *storage.LocalStore) *FileHandler {
	return &FileHandler{store: store}
}

// Download godoc
// @Summary Download a stored object
// @Description Serve a locally stored object after validating its signed token
// @Tags Files
// @Produce octet-stream
// @Param key path string true "Object key"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{key} [get]
func (h *FileHandler) Download(c *gin.Context) {
	key := c.Param("key")
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token is required"))
		return
	}

	file, err := h.store.Open(key, token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat object"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filepath.Base(key)))
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
