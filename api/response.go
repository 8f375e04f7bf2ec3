package api

import (
	"github.com/gofiber/fiber/v2"

	"telegram-places-bot/apperror"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *apperror.AppError `json:"error"`
}

type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError writes err's AppError, or a generic internal error for anything else.
func SendError(c *fiber.Ctx, err error) error {
	appErr := apperror.From(err)
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Error: appErr,
	})
}
