package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// GormEpisodeRepository implements EpisodeRepository for PostgreSQL and SQLite
type GormEpisodeRepository struct {
	db *gorm.DB
}

// NewGormEpisodeRepository creates a new GormEpisodeRepository
func NewGormEpisodeRepository(db *gorm.DB) *GormEpisodeRepository {
	return &GormEpisodeRepository{db: db}
}

func (r *GormEpisodeRepository) Insert(ctx context.Context, episode *models.Episode) error {
	episode.ID = uuid.NewString()
	episode.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

func (r *GormEpisodeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Episode, error) {
	if err := checkColumns(fields, models.EpisodeColumns, episodeImmutable); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Episode{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update episode %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *GormEpisodeRepository) GetByID(ctx context.Context, id string) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).First(&episode, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get episode %s: %w", id, err)
	}
	return &episode, nil
}

func (r *GormEpisodeRepository) List(ctx context.Context, filter EpisodeFilter) ([]models.Episode, error) {
	q := r.db.WithContext(ctx).Model(&models.Episode{})
	if filter.StoryID != "" {
		q = q.Where("story_id = ?", filter.StoryID)
	}
	if filter.Published != nil {
		q = q.Where("is_published = ?", *filter.Published)
	}
	// "IS NULL" sorts false before true on both postgres and sqlite, which
	// puts unnumbered episodes last without NULLS LAST.
	q = q.Order("episode_number IS NULL").Order("episode_number ASC").Order("created_at DESC")

	var episodes []models.Episode
	if err := q.Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	return episodes, nil
}

// DeleteByID removes an episode permanently
func (r *GormEpisodeRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&models.Episode{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete episode %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoEpisodeRepository implements EpisodeRepository for MongoDB
type MongoEpisodeRepository struct {
	collection *mongo.Collection
}

// NewMongoEpisodeRepository creates a new MongoEpisodeRepository
func NewMongoEpisodeRepository(db *mongo.Database) *MongoEpisodeRepository {
	return &MongoEpisodeRepository{collection: db.Collection("episodes")}
}

func (r *MongoEpisodeRepository) Insert(ctx context.Context, episode *models.Episode) error {
	episode.ID = uuid.NewString()
	episode.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, episode); err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

func (r *MongoEpisodeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Episode, error) {
	if err := checkColumns(fields, models.EpisodeColumns, episodeImmutable); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
		if err != nil {
			return nil, fmt.Errorf("update episode %s: %w", id, err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *MongoEpisodeRepository) GetByID(ctx context.Context, id string) (*models.Episode, error) {
	var episode models.Episode
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&episode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get episode %s: %w", id, err)
	}
	return &episode, nil
}

// List sorts on created_at in the query and finishes the episode_number
// ordering in memory; mongo puts nulls first on ascending sorts.
func (r *MongoEpisodeRepository) List(ctx context.Context, filter EpisodeFilter) ([]models.Episode, error) {
	query := bson.M{}
	if filter.StoryID != "" {
		query["story_id"] = filter.StoryID
	}
	if filter.Published != nil {
		query["is_published"] = *filter.Published
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer cursor.Close(ctx)

	episodes := []models.Episode{}
	if err = cursor.All(ctx, &episodes); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	sortEpisodes(episodes)
	return episodes, nil
}

func (r *MongoEpisodeRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete episode %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
