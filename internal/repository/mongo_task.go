package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTaskStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoTaskStore(db *mongo.Database) *MongoTaskStore {
	return &MongoTaskStore{
		coll: db.Collection(tasksCollection),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func ownedBy(id, ownerID string) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

func (s *MongoTaskStore) CreateTask(ctx context.Context, t *models.Task) error {
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) FindTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	var t models.Task
	err := s.coll.FindOne(ctx, ownedBy(id, ownerID)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &t, nil
}

func (s *MongoTaskStore) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	query := bson.M{"user_id": ownerID}
	if filter.DeadlineFrom != nil || filter.DeadlineTo != nil {
		rng := bson.M{}
		if filter.DeadlineFrom != nil {
			rng["$gte"] = *filter.DeadlineFrom
		}
		if filter.DeadlineTo != nil {
			rng["$lte"] = *filter.DeadlineTo
		}
		query["deadline"] = rng
	}

	cur, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	tasks := []models.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *MongoTaskStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Task, error) {
	var t models.Task
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &t, nil
}

func (s *MongoTaskStore) UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	set := bson.M{"updated_at": s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Deadline != nil {
		set["deadline"] = *patch.Deadline
	}
	return s.findOneAndUpdate(ctx, ownedBy(id, ownerID), bson.M{"$set": set})
}

// ShiftStage memakai $inc dengan filter rentang stage, jadi validasi dan
// penulisan terjadi dalam satu operasi dokumen.
func (s *MongoTaskStore) ShiftStage(ctx context.Context, id, ownerID string, delta int) (*models.Task, error) {
	lo, hi := stageBounds(delta)
	filter := ownedBy(id, ownerID)
	filter["stage"] = bson.M{"$gte": lo, "$lte": hi}

	t, err := s.findOneAndUpdate(ctx, filter, bson.M{
		"$inc": bson.M{"stage": delta},
		"$set": bson.M{"updated_at": s.now()},
	})
	if !errors.Is(err, ErrNotFound) {
		return t, err
	}

	n, err := s.coll.CountDocuments(ctx, ownedBy(id, ownerID))
	if err != nil {
		return nil, fmt.Errorf("count task: %w", err)
	}
	if n > 0 {
		return nil, ErrStageOutOfRange
	}
	return nil, ErrNotFound
}

func (s *MongoTaskStore) SetStage(ctx context.Context, id, ownerID string, stage models.Stage) (*models.Task, error) {
	if !stage.Valid() {
		return nil, ErrStageOutOfRange
	}
	return s.findOneAndUpdate(ctx, ownedBy(id, ownerID),
		bson.M{"$set": bson.M{"stage": stage, "updated_at": s.now()}})
}

func (s *MongoTaskStore) DeleteTask(ctx context.Context, id, ownerID string) error {
	res, err := s.coll.DeleteOne(ctx, ownedBy(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoTaskStore) DeleteTasksByOwner(ctx context.Context, ownerID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"user_id": ownerID}); err != nil {
		return fmt.Errorf("delete tasks of owner: %w", err)
	}
	return nil
}
