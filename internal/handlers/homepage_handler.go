package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// HomepageHandler previews how published stories fill the homepage
type HomepageHandler struct {
	storyRepository repositories.StoryRepository
}

// NewHomepageHandler creates a new HomepageHandler
func NewHomepageHandler(storyRepo repositories.StoryRepository) *HomepageHandler {
	return &HomepageHandler{storyRepository: storyRepo}
}

// RegisterHomepageRoutes registers the homepage preview route
func (h *HomepageHandler) RegisterHomepageRoutes(g *echo.Group) {
	g.GET("/homepage", h.GetHomepage)
}

// Homepage groups published stories the way the public homepage does
type Homepage struct {
	Banners     []models.Story `json:"banners"`
	NewLaunches []models.Story `json:"new_launches"`
	Ranked      []models.Story `json:"ranked"`
}

// GetHomepage builds the three homepage collections. Stories without the
// rank a collection sorts on are left out of it.
func (h *HomepageHandler) GetHomepage(c echo.Context) error {
	ctx := c.Request().Context()
	published, yes := true, true

	var lang models.Language
	if v := c.QueryParam("language"); v != "" {
		lang = models.Language(v)
		if !validLanguage(lang) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown language "+strconv.Quote(v))
		}
	}

	var (
		page Homepage
		err  error
	)
	page.Banners, err = h.storyRepository.List(ctx, repositories.StoryFilter{
		Published: &published, Language: lang, Banner: &yes, Order: repositories.OrderHomepageRank,
	})
	if err != nil {
		return err
	}
	page.NewLaunches, err = h.storyRepository.List(ctx, repositories.StoryFilter{
		Published: &published, Language: lang, NewLaunch: &yes, Order: repositories.OrderNewLaunchRank,
	})
	if err != nil {
		return err
	}
	page.Ranked, err = h.storyRepository.List(ctx, repositories.StoryFilter{
		Published: &published, Language: lang, Order: repositories.OrderRank,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}
