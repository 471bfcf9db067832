package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"gallery-service/internal/audit"
	"gallery-service/internal/auth"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/types"
	"gallery-service/internal/upload"
	apperrors "gallery-service/pkg/errors"
	"gallery-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

type UploadHandler struct {
	galleries   GalleryGetter
	uploader    BatchUploader
	limits      UploadLimits
	outcomes    types.OutcomeRecorder
	auditLogger types.AuditLogger
}

func NewUploadHandler(
	galleries GalleryGetter,
	uploader BatchUploader,
	limits UploadLimits,
	outcomes types.OutcomeRecorder,
	auditLogger types.AuditLogger,
) *UploadHandler {
	return &UploadHandler{
		galleries:   galleries,
		uploader:    uploader,
		limits:      limits,
		outcomes:    outcomes,
		auditLogger: auditLogger,
	}
}

// UploadPhotos accepts a multipart batch. Files rejected before processing
// are reported alongside the coordinator's per-file errors; the request only
// fails as a whole when nothing was uploaded.
func (h *UploadHandler) UploadPhotos(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	galleryID, err := parseUUIDParam(c, paramID, msgInvalidGalleryID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	g, err := h.galleries.GetByID(c.Request().Context(), galleryID)
	if err != nil || g.IsDeleted() {
		if err == nil || errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgGalleryNotFound)
		}
		return RespondWithMappedError(c, err)
	}
	if g.OwnerID != userID {
		return respondError(c, http.StatusForbidden, msgNotGalleryOwner)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidMultipartForm)
	}
	headers := form.File[formFieldFiles]
	if len(headers) == 0 {
		headers = form.File[formFieldFile]
	}
	if len(headers) == 0 {
		return respondError(c, http.StatusBadRequest, msgNoFilesProvided)
	}
	if h.limits.MaxFiles > 0 && len(headers) > h.limits.MaxFiles {
		return respondError(c, http.StatusBadRequest, fmt.Sprintf(msgTooManyFilesFmt, h.limits.MaxFiles))
	}

	files := make([]upload.File, 0, len(headers))
	var rejected []upload.FileError
	for _, fh := range headers {
		f, err := h.readFile(fh)
		if err != nil {
			rejected = append(rejected, upload.NewFileError(fh.Filename, err))
			continue
		}
		files = append(files, f)
	}

	result := &upload.BatchResult{}
	if len(files) > 0 {
		result = h.uploader.UploadBatch(c.Request().Context(), galleryID, userID, files)
	}
	result.Errors = append(rejected, result.Errors...)
	if result.Uploaded == nil {
		result.Uploaded = []*photo.Photo{}
	}
	if result.Errors == nil {
		result.Errors = []upload.FileError{}
	}

	if h.outcomes != nil {
		h.outcomes.RecordUploads(len(result.Uploaded), len(result.Errors))
	}
	h.audit(c, galleryID, result)

	status := http.StatusOK
	if result.AllFailed() {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}

func (h *UploadHandler) readFile(fh *multipart.FileHeader) (upload.File, error) {
	name := filepath.Base(fh.Filename)
	if err := validator.FileName(name); err != nil {
		return upload.File{}, apperrors.Validation(err.Error())
	}
	if err := validator.ImageContentType(fh.Header.Get(echo.HeaderContentType)); err != nil {
		return upload.File{}, apperrors.InvalidImage(err.Error())
	}
	if h.limits.MaxFileSize > 0 && fh.Size > h.limits.MaxFileSize {
		return upload.File{}, apperrors.InvalidImage(fmt.Sprintf(msgFileTooLargeFmt, h.limits.MaxFileSize))
	}

	src, err := fh.Open()
	if err != nil {
		return upload.File{}, apperrors.InternalServer(msgReadUploadFail, err)
	}
	defer src.Close()

	var r io.Reader = src
	if h.limits.MaxFileSize > 0 {
		r = io.LimitReader(src, h.limits.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return upload.File{}, apperrors.InternalServer(msgReadUploadFail, err)
	}
	if h.limits.MaxFileSize > 0 && int64(len(data)) > h.limits.MaxFileSize {
		return upload.File{}, apperrors.InvalidImage(fmt.Sprintf(msgFileTooLargeFmt, h.limits.MaxFileSize))
	}
	return upload.File{Name: name, Data: data}, nil
}

func (h *UploadHandler) audit(c echo.Context, galleryID uuid.UUID, result *upload.BatchResult) {
	if h.auditLogger == nil {
		return
	}
	status := audit.StatusSuccess
	switch {
	case result.AllFailed():
		status = audit.StatusFailure
	case len(result.Errors) > 0:
		status = audit.StatusPartial
	}
	_ = h.auditLogger.LogFromContext(c, audit.ResourceTypeGallery, &galleryID, audit.ActionUpload, status, map[string]any{
		"uploaded": len(result.Uploaded),
		"failed":   len(result.Errors),
	})
}
