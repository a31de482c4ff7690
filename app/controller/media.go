package controller

import (
	"context"
	"errors"
	"net/http"

	appdto "github.com/lumeo-studio/site-auth/app/dto"
	dto "github.com/lumeo-studio/site-auth/app/dto/http"
	"github.com/lumeo-studio/site-auth/app/middleware"
	"github.com/lumeo-studio/site-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type mediaService interface {
	UploadURL(ctx context.Context, userID, filename, contentType string) (*appdto.UploadURLResult, error)
}

type MediaController struct {
	media mediaService
}

func NewMediaController(media mediaService) *MediaController {
	return &MediaController{media: media}
}

func (c *MediaController) UploadURL(ctx echo.Context) error {
	var req dto.UploadURLRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Filename == "" || req.ContentType == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "filename and content_type are required"})
	}

	identity := middleware.IdentityFromContext(ctx)
	result, err := c.media.UploadURL(ctx.Request().Context(), identity.UserID, req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedMedia) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "only image uploads are supported"})
		}
		if errors.Is(err, service.ErrMissingFilename) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "filename is required"})
		}
		logrus.WithError(err).WithField("user_id", identity.UserID).Error("Upload URL minting failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.UploadURLResponse{
		URL:       result.URL,
		Method:    result.Method,
		Key:       result.Key,
		ExpiresIn: result.ExpiresIn,
	})
}
