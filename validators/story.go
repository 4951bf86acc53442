package validators

import (
	"fmt"
	"strings"

	"github.com/anonto42/storydesk/backend/internal/models"
)

// SchemaRevision selects the rule set a story is normalized against. The two
// revisions disagree on which images and ranks are required and are never
// combined.
type SchemaRevision string

const (
	// SchemaHomepage is the current story schema: optional cover, required
	// banner and tile images, required homepage rank.
	SchemaHomepage SchemaRevision = "homepage"

	// SchemaLegacy is the first story schema with a single required
	// cover image.
	//
	// Deprecated: kept only to re-validate records created before the
	// homepage fields existed. Use SchemaHomepage.
	SchemaLegacy SchemaRevision = "legacy"
)

// ParseSchemaRevision maps a configuration value onto a revision. An empty
// value selects SchemaHomepage.
func ParseSchemaRevision(s string) (SchemaRevision, error) {
	switch SchemaRevision(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemaHomepage:
		return SchemaHomepage, nil
	case SchemaLegacy:
		return SchemaLegacy, nil
	}
	return "", fmt.Errorf("unknown story schema revision %q", s)
}

type storyDraft struct {
	Title          string `json:"title" validate:"required"`
	Language       string `json:"language" validate:"oneof=en hi ta"`
	BannerImageURL string `json:"banner_image_url" validate:"required"`
	TileImageURL   string `json:"tile_image_url" validate:"required"`
	ReleaseDate    string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

type legacyStoryDraft struct {
	Title         string `json:"title" validate:"required"`
	Language      string `json:"language" validate:"oneof=en hi ta"`
	CoverImageURL string `json:"cover_image_url" validate:"required"`
	ReleaseDate   string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

// NormalizeStory validates raw story fields against SchemaHomepage.
func NormalizeStory(in models.StoryInput) (*models.Story, error) {
	return NormalizeStoryWithSchema(in, SchemaHomepage)
}

// NormalizeStoryWithSchema returns either a fully typed story ready for
// persistence or FieldErrors, never both. ID and CreatedAt are left for the
// gateway to assign.
func NormalizeStoryWithSchema(in models.StoryInput, rev SchemaRevision) (*models.Story, error) {
	title := strings.TrimSpace(in.Title)
	language := strings.TrimSpace(in.Language)
	cover := strings.TrimSpace(in.CoverImageURL)
	banner := strings.TrimSpace(in.BannerImageURL)
	tile := strings.TrimSpace(in.TileImageURL)
	releaseDate := strings.TrimSpace(in.ReleaseDate)

	var (
		errs FieldErrors
		err  error
	)
	switch rev {
	case SchemaHomepage:
		errs, err = check(storyDraft{
			Title:          title,
			Language:       language,
			BannerImageURL: banner,
			TileImageURL:   tile,
			ReleaseDate:    releaseDate,
		})
	case SchemaLegacy:
		errs, err = check(legacyStoryDraft{
			Title:         title,
			Language:      language,
			CoverImageURL: cover,
			ReleaseDate:   releaseDate,
		})
	default:
		return nil, fmt.Errorf("unknown story schema revision %q", rev)
	}
	if err != nil {
		return nil, err
	}

	rank := softInt(&errs, "rank", in.Rank)
	newLaunchRank := softInt(&errs, "new_launch_rank", in.NewLaunchRank)
	var homepageRank *int
	if rev == SchemaHomepage {
		homepageRank = requiredInt(&errs, "homepage_rank", in.HomepageRank)
	} else {
		homepageRank = softInt(&errs, "homepage_rank", in.HomepageRank)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Story{
		Title:          title,
		Description:    optionalText(in.Description),
		CoverImageURL:  optionalText(cover),
		BannerImageURL: banner,
		TileImageURL:   tile,
		Language:       models.Language(language),
		ReleaseDate:    optionalText(releaseDate),
		IsPublished:    in.IsPublished,
		Rank:           rank,
		HomepageRank:   homepageRank,
		IsBanner:       in.IsBanner,
		IsNewLaunch:    in.IsNewLaunch,
		NewLaunchRank:  newLaunchRank,
	}, nil
}
