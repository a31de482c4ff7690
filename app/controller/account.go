package controller

import (
	"context"
	"errors"
	"net/http"

	dto "github.com/lumeo-studio/site-auth/app/dto/http"
	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/middleware"
	"github.com/lumeo-studio/site-auth/app/policy"
	"github.com/lumeo-studio/site-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type accountService interface {
	Disable(ctx context.Context, actor policy.Identity, targetID, reason string) (*entity.DisabledAccount, error)
	Enable(ctx context.Context, actor policy.Identity, targetID string) error
	ListDisabled(ctx context.Context, actor policy.Identity) ([]*entity.DisabledAccount, error)
}

type AccountController struct {
	accounts accountService
}

func NewAccountController(accounts accountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) DisableAccount(ctx echo.Context) error {
	var req dto.DisableAccountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "user_id is required"})
	}

	actor := middleware.IdentityFromContext(ctx)
	record, err := c.accounts.Disable(ctx.Request().Context(), actor, req.UserID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "not authorized"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrAlreadyDisabled) {
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "account is already disabled"})
		}
		logrus.WithError(err).WithField("user_id", req.UserID).Error("Disable account failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, toDisabledAccountResponse(record))
}

func (c *AccountController) EnableAccount(ctx echo.Context) error {
	var req dto.EnableAccountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "user_id is required"})
	}

	actor := middleware.IdentityFromContext(ctx)
	if err := c.accounts.Enable(ctx.Request().Context(), actor, req.UserID); err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "not authorized"})
		}
		if errors.Is(err, service.ErrNotDisabled) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "account is not disabled"})
		}
		logrus.WithError(err).WithField("user_id", req.UserID).Error("Enable account failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "account enabled successfully"})
}

func (c *AccountController) DisabledAccounts(ctx echo.Context) error {
	actor := middleware.IdentityFromContext(ctx)
	records, err := c.accounts.ListDisabled(ctx.Request().Context(), actor)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "not authorized"})
		}
		logrus.WithError(err).Error("List disabled accounts failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	response := dto.DisabledAccountsResponse{
		Accounts: make([]dto.DisabledAccountResponse, 0, len(records)),
	}
	for _, record := range records {
		response.Accounts = append(response.Accounts, toDisabledAccountResponse(record))
	}

	return ctx.JSON(http.StatusOK, response)
}

func toDisabledAccountResponse(record *entity.DisabledAccount) dto.DisabledAccountResponse {
	return dto.DisabledAccountResponse{
		UserID:     record.UserID.Hex(),
		Email:      record.Email,
		Reason:     record.Reason,
		DisabledBy: record.DisabledBy.Hex(),
		DisabledAt: record.DisabledAt,
	}
}
