package handlers

import (
	"net/http"

	"github.com/anonto42/storydesk/backend/internal/middleware"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler serves the signed-in staff account
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetProfile)
}

// GetProfile returns the account the request's token was issued to
func (h *UserHandler) GetProfile(c echo.Context) error {
	claims, found := middleware.Claims(c)
	if !found {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing credentials")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, user)
}
