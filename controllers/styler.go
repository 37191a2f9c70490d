package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"closetapi/services"
)

type StylerIn struct {
	UserID   string `query:"user_id" validate:"required"`
	City     string `query:"city" validate:"omitempty,max=200"`
	Weather  string `query:"weather" validate:"omitempty,max=200"`
	Occasion string `query:"occasion" validate:"omitempty,max=200"`
}

type StylerController struct {
	Service *services.StylingService
}

func (controller *StylerController) Routes(e *echo.Echo) {
	e.POST("/styler", controller.Style)
}

func (controller *StylerController) Style(c echo.Context) error {
	in := new(StylerIn)
	// The default binder skips query params on POST, bind them explicitly.
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query parameters"})
	}
	if err := c.Validate(in); err != nil {
		return err
	}

	params, err := services.ValidateStylingParams(in.City, in.Weather, in.Occasion)
	if err != nil {
		return clientErrorJSON(c, err)
	}

	response, err := controller.Service.GenerateOutfit(c.Request().Context(), in.UserID, params)
	if err != nil {
		return clientErrorJSON(c, err)
	}
	return c.JSON(http.StatusOK, response)
}
