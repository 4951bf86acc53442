package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/google/uuid"
)

// MemoryStoryRepository keeps stories in process memory. Callers always get
// copies; records handed to Insert are copied in.
type MemoryStoryRepository struct {
	mu      sync.RWMutex
	stories map[string]models.Story
	now     func() time.Time
}

func NewMemoryStoryRepository() *MemoryStoryRepository {
	return &MemoryStoryRepository{stories: make(map[string]models.Story), now: stamp()}
}

func (r *MemoryStoryRepository) Insert(ctx context.Context, story *models.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	story.ID = uuid.NewString()
	story.CreatedAt = r.now()
	r.stories[story.ID] = cloneStory(*story)
	return nil
}

func (r *MemoryStoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Story, error) {
	if err := checkColumns(fields, models.StoryColumns, storyImmutable); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	story := cloneStory(stored)
	if err := overlay(&story, fields); err != nil {
		return nil, fmt.Errorf("update story %s: %w", id, err)
	}
	r.stories[id] = story
	out := cloneStory(story)
	return &out, nil
}

func (r *MemoryStoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	story, ok := r.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneStory(story)
	return &out, nil
}

func (r *MemoryStoryRepository) List(ctx context.Context, filter StoryFilter) ([]models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stories := []models.Story{}
	for _, s := range r.stories {
		if filter.match(&s) {
			stories = append(stories, cloneStory(s))
		}
	}
	sortStories(stories, filter.Order)
	return stories, nil
}

func (r *MemoryStoryRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stories[id]; !ok {
		return ErrNotFound
	}
	delete(r.stories, id)
	return nil
}

// MemoryEpisodeRepository keeps episodes in process memory
type MemoryEpisodeRepository struct {
	mu       sync.RWMutex
	episodes map[string]models.Episode
	now      func() time.Time
}

func NewMemoryEpisodeRepository() *MemoryEpisodeRepository {
	return &MemoryEpisodeRepository{episodes: make(map[string]models.Episode), now: stamp()}
}

func (r *MemoryEpisodeRepository) Insert(ctx context.Context, episode *models.Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	episode.ID = uuid.NewString()
	episode.CreatedAt = r.now()
	r.episodes[episode.ID] = cloneEpisode(*episode)
	return nil
}

func (r *MemoryEpisodeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Episode, error) {
	if err := checkColumns(fields, models.EpisodeColumns, episodeImmutable); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	episode := cloneEpisode(stored)
	if err := overlay(&episode, fields); err != nil {
		return nil, fmt.Errorf("update episode %s: %w", id, err)
	}
	r.episodes[id] = episode
	out := cloneEpisode(episode)
	return &out, nil
}

func (r *MemoryEpisodeRepository) GetByID(ctx context.Context, id string) (*models.Episode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	episode, ok := r.episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneEpisode(episode)
	return &out, nil
}

func (r *MemoryEpisodeRepository) List(ctx context.Context, filter EpisodeFilter) ([]models.Episode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	episodes := []models.Episode{}
	for _, e := range r.episodes {
		if filter.match(&e) {
			episodes = append(episodes, cloneEpisode(e))
		}
	}
	sortEpisodes(episodes)
	return episodes, nil
}

func (r *MemoryEpisodeRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.episodes[id]; !ok {
		return ErrNotFound
	}
	delete(r.episodes, id)
	return nil
}

// stamp returns a clock that never repeats a value, so creation order stays
// total even when inserts land within the clock's resolution.
func stamp() func() time.Time {
	var last time.Time
	return func() time.Time {
		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

// overlay applies column values through their json names, which match the
// column names of both models.
func overlay(dst interface{}, fields map[string]interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func cloneStory(s models.Story) models.Story {
	s.Description = cloneString(s.Description)
	s.CoverImageURL = cloneString(s.CoverImageURL)
	s.ReleaseDate = cloneString(s.ReleaseDate)
	s.Rank = cloneInt(s.Rank)
	s.HomepageRank = cloneInt(s.HomepageRank)
	s.NewLaunchRank = cloneInt(s.NewLaunchRank)
	return s
}

func cloneEpisode(e models.Episode) models.Episode {
	e.Description = cloneString(e.Description)
	e.EpisodeNumber = cloneInt(e.EpisodeNumber)
	if e.Slides != nil {
		e.Slides = append(e.Slides[:0:0], e.Slides...)
	}
	return e
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
