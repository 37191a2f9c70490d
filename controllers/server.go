package controllers

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"closetapi/services"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	settings services.Settings,
	records services.RecordStore,
	blobs services.BlobStore,
	vision services.VisionGenerator,
	text services.TextGenerator,
	urlCache services.URLCacheServiceProvider,
) *echo.Echo {

	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Local processed images are served straight off disk; the R2 backend
	// hands out presigned URLs instead.
	if blobs.BackendType() == "local" {
		e.Static("/images", settings.ImageDirectory)
	}

	attributionController := AttributionController{
		Settings: settings,
		Service:  services.NewAttributionService(settings, records, blobs, vision, urlCache),
		Records:  records,
		Blobs:    blobs,
	}
	attributionController.Routes(e)

	stylerController := StylerController{
		Service: services.NewStylingService(settings, records, blobs, text, urlCache),
	}
	stylerController.Routes(e)

	return e
}

// clientErrorJSON maps service-level client errors onto HTTP responses and
// everything else onto a 500.
func clientErrorJSON(c echo.Context, err error) error {
	if clientErr, ok := err.(*services.ClientError); ok {
		return c.JSON(clientErr.Status, map[string]string{"error": clientErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
