package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Slide is a timed image cue inside an episode's playback. It has no identity
// of its own; its position in the episode's list is its only ordering.
type Slide struct {
	ImageURL  string  `json:"image_url" bson:"image_url"`
	StartTime float64 `json:"start_time" bson:"start_time"` // seconds
}

// Episode is an audio-narrated unit belonging to exactly one story
type Episode struct {
	ID            string                     `json:"id" gorm:"column:id;primaryKey;type:varchar(36)" bson:"_id"`
	StoryID       string                     `json:"story_id" gorm:"column:story_id;type:varchar(36);not null;index" bson:"story_id"`
	Title         string                     `json:"title" gorm:"column:title;not null" bson:"title"`
	Description   *string                    `json:"description" gorm:"column:description" bson:"description"`
	AudioURL      string                     `json:"audio_url" gorm:"column:audio_url;not null" bson:"audio_url"`
	EpisodeNumber *int                       `json:"episode_number" gorm:"column:episode_number" bson:"episode_number"`
	IsPublished   bool                       `json:"is_published" gorm:"column:is_published;not null" bson:"is_published"`
	Slides        datatypes.JSONSlice[Slide] `json:"slides" gorm:"column:slides" bson:"slides"`
	CreatedAt     time.Time                  `json:"created_at" gorm:"column:created_at" bson:"created_at"`
}

func (Episode) TableName() string {
	return "episodes"
}

// EpisodeColumns are the columns an update may replace. story_id is fixed at
// creation.
var EpisodeColumns = []string{
	"title",
	"description",
	"audio_url",
	"episode_number",
	"is_published",
	"slides",
}

// Columns returns every mutable field keyed by column name.
func (e *Episode) Columns() map[string]interface{} {
	return map[string]interface{}{
		"title":          e.Title,
		"description":    e.Description,
		"audio_url":      e.AudioURL,
		"episode_number": e.EpisodeNumber,
		"is_published":   e.IsPublished,
		"slides":         e.Slides,
	}
}

// Input rebuilds the raw form fields that would normalize into this record.
func (e *Episode) Input() EpisodeInput {
	in := EpisodeInput{
		StoryID:       e.StoryID,
		Title:         e.Title,
		Description:   deref(e.Description),
		AudioURL:      e.AudioURL,
		EpisodeNumber: RawInt(e.EpisodeNumber),
		IsPublished:   e.IsPublished,
	}
	for _, s := range e.Slides {
		in.Slides = append(in.Slides, s.Input())
	}
	return in
}

// Input rebuilds the raw editor fields of a slide.
func (s Slide) Input() SlideInput {
	return SlideInput{
		ImageURL:  s.ImageURL,
		StartTime: RawNumber(strconv.FormatFloat(s.StartTime, 'f', -1, 64)),
	}
}

// EpisodeInput holds the raw user-entered fields of the episode form
type EpisodeInput struct {
	StoryID       string       `json:"story_id" form:"story_id"`
	Title         string       `json:"title" form:"title"`
	Description   string       `json:"description" form:"description"`
	AudioURL      string       `json:"audio_url" form:"audio_url"`
	EpisodeNumber RawNumber    `json:"episode_number" form:"episode_number"`
	IsPublished   bool         `json:"is_published" form:"is_published"`
	Slides        []SlideInput `json:"slides"`
}

// SlideInput is one row of the slide editor as entered
type SlideInput struct {
	ImageURL  string    `json:"image_url"`
	StartTime RawNumber `json:"start_time"`
}

// SlidePatch carries the fields of a single in-place slide edit
type SlidePatch struct {
	ImageURL  *string  `json:"image_url"`
	StartTime *float64 `json:"start_time" validate:"omitempty,gte=0"`
}
