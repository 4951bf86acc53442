package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	storyRepository   repositories.StoryRepository
	episodeRepository repositories.EpisodeRepository
	schema            validators.SchemaRevision
}

// NewStoryHandler creates a new StoryHandler. schema selects the rule set
// new and edited stories are normalized against.
func NewStoryHandler(storyRepo repositories.StoryRepository, episodeRepo repositories.EpisodeRepository, schema validators.SchemaRevision) *StoryHandler {
	return &StoryHandler{
		storyRepository:   storyRepo,
		episodeRepository: episodeRepo,
		schema:            schema,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStories)
	g.GET("/stories/:id", h.GetStory)
	g.POST("/stories", h.CreateStory)
	g.PUT("/stories/:id", h.UpdateStory)
	g.PATCH("/stories/:id/publish", h.PublishStory)
	g.DELETE("/stories/:id", h.DeleteStory)
}

// StoryResponse is a story with its episodes in listing order
type StoryResponse struct {
	*models.Story
	Episodes []models.Episode `json:"episodes"`
}

// GetStories lists stories, newest first unless an order is given
func (h *StoryHandler) GetStories(c echo.Context) error {
	filter, err := storyFilter(c)
	if err != nil {
		return err
	}
	stories, err := h.storyRepository.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, stories)
}

// GetStory returns one story with its episodes
func (h *StoryHandler) GetStory(c echo.Context) error {
	ctx := c.Request().Context()
	story, err := h.storyRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	episodes, err := h.episodeRepository.List(ctx, repositories.EpisodeFilter{StoryID: story.ID})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, StoryResponse{Story: story, Episodes: episodes})
}

// CreateStory normalizes the submitted form and stores a new story
func (h *StoryHandler) CreateStory(c echo.Context) error {
	var in models.StoryInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	story, err := validators.NormalizeStoryWithSchema(in, h.schema)
	if err != nil {
		return err
	}
	if err := h.storyRepository.Insert(c.Request().Context(), story); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, story)
}

// UpdateStory replaces every editable field of a story with the submitted
// form
func (h *StoryHandler) UpdateStory(c echo.Context) error {
	var in models.StoryInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	story, err := validators.NormalizeStoryWithSchema(in, h.schema)
	if err != nil {
		return err
	}
	updated, err := h.storyRepository.Update(c.Request().Context(), c.Param("id"), story.Columns())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated)
}

// PublishStory sets or clears the published flag
func (h *StoryHandler) PublishStory(c echo.Context) error {
	var req models.PublishRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	updated, err := h.storyRepository.Update(c.Request().Context(), c.Param("id"), map[string]interface{}{
		"is_published": *req.IsPublished,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated)
}

// DeleteStory removes a story. Its episodes are not touched.
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	if err := h.storyRepository.DeleteByID(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Story deleted"})
}

func storyFilter(c echo.Context) (repositories.StoryFilter, error) {
	var filter repositories.StoryFilter
	if v := c.QueryParam("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "published must be true or false")
		}
		filter.Published = &b
	}
	if v := c.QueryParam("language"); v != "" {
		lang := models.Language(v)
		if !validLanguage(lang) {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "unknown language "+strconv.Quote(v))
		}
		filter.Language = lang
	}
	order, err := repositories.ParseOrder(c.QueryParam("order"))
	if err != nil {
		return filter, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	filter.Order = order
	return filter, nil
}

func validLanguage(lang models.Language) bool {
	for _, l := range models.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
