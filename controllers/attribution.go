package controllers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"closetapi/models"
	"closetapi/services"
)

type AttributionController struct {
	Settings services.Settings
	Service  *services.AttributionService
	Records  services.RecordStore
	Blobs    services.BlobStore
}

func (controller *AttributionController) Routes(e *echo.Echo) {
	e.GET("/health", controller.Health)
	e.GET("/storage-info", controller.StorageInfo)
	e.POST("/attribute_clothes", controller.AttributeClothes)
}

func (controller *AttributionController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// StorageInfo reports which backends this process ended up on after the
// startup probes, plus the limits clients care about.
func (controller *AttributionController) StorageInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"record_backend":      controller.Records.BackendType(),
		"blob_backend":        controller.Blobs.BackendType(),
		"user_data_directory": controller.Settings.UserDataDirectory,
		"image_directory":     controller.Settings.ImageDirectory,
		"avoid_duplicates":    controller.Settings.AvoidDuplicates,
		"max_file_size_mb":    controller.Settings.MaxFileSizeMB,
		"max_batch_size":      controller.Settings.MaxBatchSize,
	})
}

// AttributeClothes accepts a multipart batch under the "files" field and runs
// each image through the attribution pipeline.
func (controller *AttributionController) AttributeClothes(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id query parameter is required"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "expected multipart form data with a 'files' field"})
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no files provided"})
	}

	// One byte past the size cap is enough for validation to reject the file;
	// an oversized upload never gets buffered whole.
	maxBytes := controller.Settings.MaxFileSizeMB * 1024 * 1024
	images := make([]services.UploadedImage, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			sentry.CaptureException(fmt.Errorf("failed to open upload [file=%v]: %w", header.Filename, err))
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("could not read file '%v'", header.Filename)})
		}
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		file.Close()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("could not read file '%v'", header.Filename)})
		}
		images = append(images, services.UploadedImage{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	response, err := controller.Service.AnalyzeBatch(c.Request().Context(), userID, images)
	if err != nil {
		return clientErrorJSON(c, err)
	}
	return c.JSON(http.StatusOK, response)
}
