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
	"gorm.io/gorm/clause"
)

// GormStoryRepository implements StoryRepository for PostgreSQL and SQLite
type GormStoryRepository struct {
	db *gorm.DB
}

// NewGormStoryRepository creates a new GormStoryRepository
func NewGormStoryRepository(db *gorm.DB) *GormStoryRepository {
	return &GormStoryRepository{db: db}
}

// Insert assigns the story its id and creation time and stores it
func (r *GormStoryRepository) Insert(ctx context.Context, story *models.Story) error {
	story.ID = uuid.NewString()
	story.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// Update replaces the given columns and returns the stored record
func (r *GormStoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Story, error) {
	if err := checkColumns(fields, models.StoryColumns, storyImmutable); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Story{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("update story %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a story by ID
func (r *GormStoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return &story, nil
}

// List retrieves the stories matching filter
func (r *GormStoryRepository) List(ctx context.Context, filter StoryFilter) ([]models.Story, error) {
	q := r.db.WithContext(ctx).Model(&models.Story{})
	if filter.Published != nil {
		q = q.Where("is_published = ?", *filter.Published)
	}
	if filter.Language != "" {
		q = q.Where("language = ?", filter.Language)
	}
	if filter.Banner != nil {
		q = q.Where("is_banner = ?", *filter.Banner)
	}
	if filter.NewLaunch != nil {
		q = q.Where("is_new_launch = ?", *filter.NewLaunch)
	}
	switch filter.Order {
	case OrderRank, OrderHomepageRank, OrderNewLaunchRank:
		col := clause.Column{Name: string(filter.Order)}
		q = q.Where(clause.Neq{Column: col, Value: nil}).
			Order(clause.OrderByColumn{Column: col})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})

	var stories []models.Story
	if err := q.Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

// DeleteByID removes a story permanently. Its episodes are left in place.
func (r *GormStoryRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&models.Story{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete story %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoStoryRepository implements StoryRepository for MongoDB
type MongoStoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStoryRepository creates a new MongoStoryRepository
func NewMongoStoryRepository(db *mongo.Database) *MongoStoryRepository {
	return &MongoStoryRepository{collection: db.Collection("stories")}
}

func (r *MongoStoryRepository) Insert(ctx context.Context, story *models.Story) error {
	story.ID = uuid.NewString()
	story.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, story); err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *MongoStoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Story, error) {
	if err := checkColumns(fields, models.StoryColumns, storyImmutable); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
		if err != nil {
			return nil, fmt.Errorf("update story %s: %w", id, err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *MongoStoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return &story, nil
}

func (r *MongoStoryRepository) List(ctx context.Context, filter StoryFilter) ([]models.Story, error) {
	query := bson.M{}
	if filter.Published != nil {
		query["is_published"] = *filter.Published
	}
	if filter.Language != "" {
		query["language"] = filter.Language
	}
	if filter.Banner != nil {
		query["is_banner"] = *filter.Banner
	}
	if filter.NewLaunch != nil {
		query["is_new_launch"] = *filter.NewLaunch
	}
	sortBy := bson.D{}
	switch filter.Order {
	case OrderRank, OrderHomepageRank, OrderNewLaunchRank:
		query[string(filter.Order)] = bson.M{"$ne": nil}
		sortBy = append(sortBy, bson.E{Key: string(filter.Order), Value: 1})
	}
	sortBy = append(sortBy, bson.E{Key: "created_at", Value: -1})

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(sortBy))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

func (r *MongoStoryRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete story %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
