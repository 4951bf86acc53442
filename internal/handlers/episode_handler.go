package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/anonto42/storydesk/backend/internal/slides"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

// EpisodeHandler handles episode and slide HTTP requests
type EpisodeHandler struct {
	storyRepository   repositories.StoryRepository
	episodeRepository repositories.EpisodeRepository
}

// NewEpisodeHandler creates a new EpisodeHandler
func NewEpisodeHandler(storyRepo repositories.StoryRepository, episodeRepo repositories.EpisodeRepository) *EpisodeHandler {
	return &EpisodeHandler{
		storyRepository:   storyRepo,
		episodeRepository: episodeRepo,
	}
}

// RegisterEpisodeRoutes registers episode-related routes
func (h *EpisodeHandler) RegisterEpisodeRoutes(g *echo.Group) {
	g.GET("/stories/:id/episodes", h.GetEpisodes)
	g.POST("/stories/:id/episodes", h.CreateEpisode)
	g.GET("/episodes/:id", h.GetEpisode)
	g.PUT("/episodes/:id", h.UpdateEpisode)
	g.PATCH("/episodes/:id/publish", h.PublishEpisode)
	g.DELETE("/episodes/:id", h.DeleteEpisode)

	g.POST("/episodes/:id/slides", h.AppendSlide)
	g.PATCH("/episodes/:id/slides/:index", h.UpdateSlide)
	g.DELETE("/episodes/:id/slides/:index", h.RemoveSlide)
}

// GetEpisodes lists the episodes of a story
func (h *EpisodeHandler) GetEpisodes(c echo.Context) error {
	ctx := c.Request().Context()
	story, err := h.storyRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	filter := repositories.EpisodeFilter{StoryID: story.ID}
	if v := c.QueryParam("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "published must be true or false")
		}
		filter.Published = &b
	}
	episodes, err := h.episodeRepository.List(ctx, filter)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, episodes)
}

// CreateEpisode adds an episode to the story in the path
func (h *EpisodeHandler) CreateEpisode(c echo.Context) error {
	ctx := c.Request().Context()
	var in models.EpisodeInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	story, err := h.storyRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	in.StoryID = story.ID

	episode, err := validators.NormalizeEpisode(in)
	if err != nil {
		return err
	}
	if err := h.episodeRepository.Insert(ctx, episode); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, episode)
}

// GetEpisode returns one episode
func (h *EpisodeHandler) GetEpisode(c echo.Context) error {
	episode, err := h.episodeRepository.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, episode)
}

// UpdateEpisode replaces every editable field of an episode. The owning
// story cannot change.
func (h *EpisodeHandler) UpdateEpisode(c echo.Context) error {
	ctx := c.Request().Context()
	var in models.EpisodeInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	current, err := h.episodeRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	in.StoryID = current.StoryID

	episode, err := validators.NormalizeEpisode(in)
	if err != nil {
		return err
	}
	updated, err := h.episodeRepository.Update(ctx, current.ID, episode.Columns())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated)
}

// PublishEpisode sets or clears the published flag
func (h *EpisodeHandler) PublishEpisode(c echo.Context) error {
	var req models.PublishRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	updated, err := h.episodeRepository.Update(c.Request().Context(), c.Param("id"), map[string]interface{}{
		"is_published": *req.IsPublished,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated)
}

// DeleteEpisode removes an episode
func (h *EpisodeHandler) DeleteEpisode(c echo.Context) error {
	if err := h.episodeRepository.DeleteByID(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Episode deleted"})
}

// AppendSlide adds a slide at the end of the deck. The body fills in the new
// slide; a slide without an image is rejected when the episode is
// re-validated.
func (h *EpisodeHandler) AppendSlide(c echo.Context) error {
	var patch models.SlidePatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	if err := c.Validate(&patch); err != nil {
		return err
	}
	return h.editSlides(c, func(e *slides.Editor) error {
		e.Append()
		return e.UpdateAt(e.Len()-1, patch)
	})
}

// UpdateSlide merges the body into the slide at :index
func (h *EpisodeHandler) UpdateSlide(c echo.Context) error {
	index, err := slideIndex(c)
	if err != nil {
		return err
	}
	var patch models.SlidePatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	if err := c.Validate(&patch); err != nil {
		return err
	}
	return h.editSlides(c, func(e *slides.Editor) error {
		return e.UpdateAt(index, patch)
	})
}

// RemoveSlide deletes the slide at :index; later slides move up
func (h *EpisodeHandler) RemoveSlide(c echo.Context) error {
	index, err := slideIndex(c)
	if err != nil {
		return err
	}
	return h.editSlides(c, func(e *slides.Editor) error {
		return e.RemoveAt(index)
	})
}

// editSlides loads the episode, applies one edit to its deck, re-validates
// the whole episode and persists the new deck.
func (h *EpisodeHandler) editSlides(c echo.Context, edit func(*slides.Editor) error) error {
	ctx := c.Request().Context()
	episode, err := h.episodeRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	editor := slides.New(episode.Slides, func(s []models.Slide) {
		episode.Slides = s
	})
	if err := edit(editor); err != nil {
		return err
	}

	normalized, err := validators.NormalizeEpisode(episode.Input())
	if err != nil {
		return err
	}
	updated, err := h.episodeRepository.Update(ctx, episode.ID, map[string]interface{}{
		"slides": datatypes.JSONSlice[models.Slide](normalized.Slides),
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated)
}

func slideIndex(c echo.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "slide index must be an integer")
	}
	return index, nil
}
