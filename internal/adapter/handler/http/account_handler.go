package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/middleware/auth"
	"github.com/tasyapp/billing/internal/usecase"
	pkgErrors "github.com/tasyapp/billing/pkg/errors"
	"go.uber.org/zap"
)

// AccountHandler serves the signed-in user's credits and subscription
type AccountHandler struct {
	logger  *zap.Logger
	account *usecase.AccountService
}

// NewAccountHandler creates a new account handler instance
func NewAccountHandler(logger *zap.Logger, account *usecase.AccountService) *AccountHandler {
	return &AccountHandler{
		logger:  logger,
		account: account,
	}
}

// GetCredits handles GET /api/v1/credits
func (h *AccountHandler) GetCredits(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	credits, err := h.account.GetCredits(c.Request().Context(), user.UserID)
	if err != nil {
		return h.fail(err, "failed to retrieve credits", user.UserID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": user.UserID,
		"credits": credits,
	})
}

// GetCurrentSubscription handles GET /api/v1/subscriptions/current
func (h *AccountHandler) GetCurrentSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	sub, err := h.account.GetCurrentSubscription(c.Request().Context(), user.UserID)
	if err != nil {
		return h.fail(err, "failed to retrieve subscription", user.UserID)
	}

	return c.JSON(http.StatusOK, sub)
}

// GetCreditHistory handles GET /api/v1/credits/history
func (h *AccountHandler) GetCreditHistory(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit, offset := 0, 0
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit parameter")
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset parameter")
		}
	}

	txs, err := h.account.GetCreditHistory(c.Request().Context(), user.UserID, limit, offset)
	if err != nil {
		return h.fail(err, "failed to retrieve credit history", user.UserID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transactions": txs,
		"count":        len(txs),
	})
}

// fail maps domain lookups that found nothing to 404 and everything else to
// a logged 500 with message as the response text.
func (h *AccountHandler) fail(err error, message string, userID uuid.UUID) error {
	switch {
	case errors.Is(err, domainErrors.ErrProfileNotFound):
		err = pkgErrors.NewAppError(pkgErrors.ErrNotFound, "profile not found", err)
	case errors.Is(err, domainErrors.ErrSubscriptionNotFound):
		err = pkgErrors.NewAppError(pkgErrors.ErrNotFound, "no subscription", err)
	default:
		err = pkgErrors.Wrap(err, message)
	}

	if pkgErrors.CodeOf(err) == pkgErrors.ErrInternal {
		pkgErrors.LogError(h.logger, err, "Account request failed",
			zap.String("user_id", userID.String()))
	}
	return pkgErrors.ToHTTPError(err)
}
