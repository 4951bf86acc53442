package models

import (
	"time"
)

// Language is the narration language of a story
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageTamil   Language = "ta"
)

// Languages lists every supported language in display order
var Languages = []Language{LanguageEnglish, LanguageHindi, LanguageTamil}

// Story is a top-level publishable content item
type Story struct {
	ID             string    `json:"id" gorm:"column:id;primaryKey;type:varchar(36)" bson:"_id"`
	Title          string    `json:"title" gorm:"column:title;not null" bson:"title"`
	Description    *string   `json:"description" gorm:"column:description" bson:"description"`
	CoverImageURL  *string   `json:"cover_image_url" gorm:"column:cover_image_url" bson:"cover_image_url"`
	BannerImageURL string    `json:"banner_image_url" gorm:"column:banner_image_url" bson:"banner_image_url"`
	TileImageURL   string    `json:"tile_image_url" gorm:"column:tile_image_url" bson:"tile_image_url"`
	Language       Language  `json:"language" gorm:"column:language;size:2;not null;index" bson:"language"`
	ReleaseDate    *string   `json:"release_date" gorm:"column:release_date" bson:"release_date"`
	IsPublished    bool      `json:"is_published" gorm:"column:is_published;not null;index" bson:"is_published"`
	Rank           *int      `json:"rank" gorm:"column:rank" bson:"rank"`
	HomepageRank   *int      `json:"homepage_rank" gorm:"column:homepage_rank" bson:"homepage_rank"`
	IsBanner       bool      `json:"is_banner" gorm:"column:is_banner;not null" bson:"is_banner"`
	IsNewLaunch    bool      `json:"is_new_launch" gorm:"column:is_new_launch;not null" bson:"is_new_launch"`
	NewLaunchRank  *int      `json:"new_launch_rank" gorm:"column:new_launch_rank" bson:"new_launch_rank"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at" bson:"created_at"`
}

func (Story) TableName() string {
	return "stories"
}

// StoryColumns are the columns an update may replace. id and created_at are
// assigned once by the gateway.
var StoryColumns = []string{
	"title",
	"description",
	"cover_image_url",
	"banner_image_url",
	"tile_image_url",
	"language",
	"release_date",
	"is_published",
	"rank",
	"homepage_rank",
	"is_banner",
	"is_new_launch",
	"new_launch_rank",
}

// Columns returns every mutable field keyed by column name, ready for a
// full-record update.
func (s *Story) Columns() map[string]interface{} {
	return map[string]interface{}{
		"title":            s.Title,
		"description":      s.Description,
		"cover_image_url":  s.CoverImageURL,
		"banner_image_url": s.BannerImageURL,
		"tile_image_url":   s.TileImageURL,
		"language":         s.Language,
		"release_date":     s.ReleaseDate,
		"is_published":     s.IsPublished,
		"rank":             s.Rank,
		"homepage_rank":    s.HomepageRank,
		"is_banner":        s.IsBanner,
		"is_new_launch":    s.IsNewLaunch,
		"new_launch_rank":  s.NewLaunchRank,
	}
}

// EffectiveNewLaunchRank is the new-launch rank readers should act on. The
// stored value is kept when the story leaves the new-launch collection but it
// carries no meaning there.
func (s *Story) EffectiveNewLaunchRank() *int {
	if !s.IsNewLaunch {
		return nil
	}
	return s.NewLaunchRank
}

// Input rebuilds the raw form fields that would normalize into this record.
func (s *Story) Input() StoryInput {
	return StoryInput{
		Title:          s.Title,
		Description:    deref(s.Description),
		CoverImageURL:  deref(s.CoverImageURL),
		BannerImageURL: s.BannerImageURL,
		TileImageURL:   s.TileImageURL,
		Language:       string(s.Language),
		ReleaseDate:    deref(s.ReleaseDate),
		IsPublished:    s.IsPublished,
		Rank:           RawInt(s.Rank),
		HomepageRank:   RawInt(s.HomepageRank),
		IsBanner:       s.IsBanner,
		IsNewLaunch:    s.IsNewLaunch,
		NewLaunchRank:  RawInt(s.NewLaunchRank),
	}
}

// StoryInput holds the raw user-entered fields of the story form
type StoryInput struct {
	Title          string    `json:"title" form:"title"`
	Description    string    `json:"description" form:"description"`
	CoverImageURL  string    `json:"cover_image_url" form:"cover_image_url"`
	BannerImageURL string    `json:"banner_image_url" form:"banner_image_url"`
	TileImageURL   string    `json:"tile_image_url" form:"tile_image_url"`
	Language       string    `json:"language" form:"language"`
	ReleaseDate    string    `json:"release_date" form:"release_date"`
	IsPublished    bool      `json:"is_published" form:"is_published"`
	Rank           RawNumber `json:"rank" form:"rank"`
	HomepageRank   RawNumber `json:"homepage_rank" form:"homepage_rank"`
	IsBanner       bool      `json:"is_banner" form:"is_banner"`
	IsNewLaunch    bool      `json:"is_new_launch" form:"is_new_launch"`
	NewLaunchRank  RawNumber `json:"new_launch_rank" form:"new_launch_rank"`
}

// PublishRequest toggles the published flag of a story or episode
type PublishRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}
