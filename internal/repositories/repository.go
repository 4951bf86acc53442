package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/anonto42/storydesk/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrImmutableField = errors.New("field cannot be updated")
	ErrUnknownField   = errors.New("unknown field")
)

// Order selects how a story listing is sorted
type Order string

const (
	// OrderCreatedDesc lists newest first; the dashboard default.
	OrderCreatedDesc Order = "created_at_desc"
	// The rank orders list ascending and leave out stories without that rank.
	OrderRank          Order = "rank"
	OrderHomepageRank  Order = "homepage_rank"
	OrderNewLaunchRank Order = "new_launch_rank"
)

// ParseOrder validates an order taken from a query string. Empty means
// OrderCreatedDesc.
func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case "":
		return OrderCreatedDesc, nil
	case OrderCreatedDesc, OrderRank, OrderHomepageRank, OrderNewLaunchRank:
		return o, nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// StoryFilter narrows a story listing. Nil and empty fields match everything.
type StoryFilter struct {
	Published *bool
	Language  models.Language
	Banner    *bool
	NewLaunch *bool
	Order     Order
}

// EpisodeFilter narrows an episode listing
type EpisodeFilter struct {
	StoryID   string
	Published *bool
}

// StoryRepository stores stories. Update replaces only the named columns.
type StoryRepository interface {
	Insert(ctx context.Context, story *models.Story) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Story, error)
	GetByID(ctx context.Context, id string) (*models.Story, error)
	List(ctx context.Context, filter StoryFilter) ([]models.Story, error)
	DeleteByID(ctx context.Context, id string) error
}

// EpisodeRepository stores episodes. Episodes of a story list by
// episode_number ascending with unnumbered ones last, then newest first.
type EpisodeRepository interface {
	Insert(ctx context.Context, episode *models.Episode) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Episode, error)
	GetByID(ctx context.Context, id string) (*models.Episode, error)
	List(ctx context.Context, filter EpisodeFilter) ([]models.Episode, error)
	DeleteByID(ctx context.Context, id string) error
}

var (
	storyImmutable   = []string{"id", "created_at"}
	episodeImmutable = []string{"id", "created_at", "story_id"}
)

func checkColumns(fields map[string]interface{}, allowed, immutable []string) error {
	for key := range fields {
		if contains(immutable, key) {
			return fmt.Errorf("%w: %s", ErrImmutableField, key)
		}
		if !contains(allowed, key) {
			return fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// rankOf returns the rank a listing order sorts on, nil when the order is
// by creation time.
func rankOf(s *models.Story, o Order) *int {
	switch o {
	case OrderRank:
		return s.Rank
	case OrderHomepageRank:
		return s.HomepageRank
	case OrderNewLaunchRank:
		return s.NewLaunchRank
	}
	return nil
}

func (f StoryFilter) match(s *models.Story) bool {
	if f.Published != nil && s.IsPublished != *f.Published {
		return false
	}
	if f.Language != "" && s.Language != f.Language {
		return false
	}
	if f.Banner != nil && s.IsBanner != *f.Banner {
		return false
	}
	if f.NewLaunch != nil && s.IsNewLaunch != *f.NewLaunch {
		return false
	}
	if f.Order != "" && f.Order != OrderCreatedDesc && rankOf(s, f.Order) == nil {
		return false
	}
	return true
}

func (f EpisodeFilter) match(e *models.Episode) bool {
	if f.StoryID != "" && e.StoryID != f.StoryID {
		return false
	}
	if f.Published != nil && e.IsPublished != *f.Published {
		return false
	}
	return true
}

// sortStories orders stories the way the database backends do.
func sortStories(stories []models.Story, o Order) {
	sort.SliceStable(stories, func(i, j int) bool {
		a, b := &stories[i], &stories[j]
		if o != "" && o != OrderCreatedDesc {
			ra, rb := rankOf(a, o), rankOf(b, o)
			if *ra != *rb {
				return *ra < *rb
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func sortEpisodes(episodes []models.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i].EpisodeNumber, episodes[j].EpisodeNumber
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return episodes[i].CreatedAt.After(episodes[j].CreatedAt)
	})
}
