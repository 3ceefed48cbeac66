package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

type UploadHandler struct {
	ingestion   services.IngestionService
	batch       services.BatchProcessor
	maxFileSize int64
}

func NewUploadHandler(
	ingestion services.IngestionService,
	batch services.BatchProcessor,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		ingestion:   ingestion,
		batch:       batch,
		maxFileSize: maxFileSize,
	}
}

// HandleUpload godoc
// @Summary      Upload a CV
// @Description  Extracts, embeds and stores one PDF CV. A CV whose email is already known replaces that candidate.
// @Tags         cv
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CV in PDF format"
// @Success      201  {object}  models.UploadResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Router       /cv/upload [post]
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'file' field in multipart form",
			"code":  fiber.StatusBadRequest,
		})
	}

	content, err := h.readFile(fh)
	if err != nil {
		return err
	}

	resp, err := h.ingestion.IngestCV(c.UserContext(), fh.Filename, content)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleBatchUpload godoc
// @Summary      Upload several CVs
// @Description  Ingests every file independently and reports successes and failures in upload order.
// @Tags         cv
// @Accept       multipart/form-data
// @Produce      json
// @Param        files  formData  file  true  "CV files in PDF format"
// @Success      200  {object}  models.BatchUploadResponse
// @Failure      400  {object}  map[string]interface{}
// @Router       /cv/upload/batch [post]
func (h *UploadHandler) HandleBatchUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
			"code":  fiber.StatusBadRequest,
		})
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no files uploaded, use the 'files' field",
			"code":  fiber.StatusBadRequest,
		})
	}

	files := make([]services.UploadFile, len(headers))
	for i, fh := range headers {
		content, err := h.readFile(fh)
		files[i] = services.UploadFile{Filename: fh.Filename, Content: content, ReadErr: err}
	}

	return c.JSON(h.batch.Process(c.UserContext(), files))
}

func (h *UploadHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return nil, &services.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d byte limit", h.maxFileSize),
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return content, nil
}
