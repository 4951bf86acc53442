package validators

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anonto42/storydesk/backend/internal/models"
)

type episodeDraft struct {
	StoryID  string       `json:"story_id" validate:"required"`
	Title    string       `json:"title" validate:"required"`
	AudioURL string       `json:"audio_url" validate:"required"`
	Slides   []slideDraft `json:"slides" validate:"dive"`
}

type slideDraft struct {
	ImageURL string `json:"image_url" validate:"required"`
}

// NormalizeEpisode returns either a fully typed episode or FieldErrors.
// Every slide is checked on its own; an empty or absent slide list is fine
// and normalizes to nil.
func NormalizeEpisode(in models.EpisodeInput) (*models.Episode, error) {
	draft := episodeDraft{
		StoryID:  strings.TrimSpace(in.StoryID),
		Title:    strings.TrimSpace(in.Title),
		AudioURL: strings.TrimSpace(in.AudioURL),
	}
	for _, s := range in.Slides {
		draft.Slides = append(draft.Slides, slideDraft{ImageURL: strings.TrimSpace(s.ImageURL)})
	}

	errs, err := check(draft)
	if err != nil {
		return nil, err
	}

	episodeNumber := softInt(&errs, "episode_number", in.EpisodeNumber)

	var slides []models.Slide
	for i, s := range in.Slides {
		start, ok := startTime(&errs, fmt.Sprintf("slides[%d].start_time", i), s.StartTime)
		if !ok {
			continue
		}
		slides = append(slides, models.Slide{ImageURL: draft.Slides[i].ImageURL, StartTime: start})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Episode{
		StoryID:       draft.StoryID,
		Title:         draft.Title,
		Description:   optionalText(in.Description),
		AudioURL:      draft.AudioURL,
		EpisodeNumber: episodeNumber,
		IsPublished:   in.IsPublished,
		Slides:        slides,
	}, nil
}

func startTime(errs *FieldErrors, field string, raw models.RawNumber) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		errs.add(field, MissingRequiredField, "%s is required", field)
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		errs.add(field, InvalidNumber, "%s must be a number of seconds", field)
		return 0, false
	}
	if f < 0 {
		errs.add(field, InvalidNumber, "%s must not be negative", field)
		return 0, false
	}
	return f, true
}
