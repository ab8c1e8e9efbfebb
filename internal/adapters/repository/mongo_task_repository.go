package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/database"
	"github.com/taskdeck/core/internal/ports"
)

// MongoTaskRepository implements the TaskRepository interface on a MongoDB
// collection.
type MongoTaskRepository struct {
	collection *mongo.Collection
}

// NewMongoTaskRepository creates a new MongoDB-backed task repository.
func NewMongoTaskRepository(db *database.Mongo) ports.TaskRepository {
	return &MongoTaskRepository{collection: db.Tasks()}
}

// taskDocument is the persisted layout of a task. The domain entity keeps an
// opaque string id; only this adapter knows it is an ObjectID.
type taskDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	CreatedAt   time.Time           `bson:"createdAt"`
	DueDate     *time.Time          `bson:"dueDate,omitempty"`
	Priority    entities.Priority   `bson:"priority"`
	Status      entities.Status     `bson:"status"`
	Tags        []entities.Tag      `bson:"tags"`
	Completed   bool                `bson:"completed"`
	Recurring   entities.Recurrence `bson:"recurring"`
}

func toDocument(t *entities.Task) (taskDocument, error) {
	doc := taskDocument{
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		Tags:        t.Tags,
		Completed:   t.Completed,
		Recurring:   t.Recurring,
	}
	if doc.Tags == nil {
		doc.Tags = []entities.Tag{}
	}
	if t.ID != "" {
		oid, err := parseObjectID(t.ID)
		if err != nil {
			return taskDocument{}, err
		}
		doc.ID = oid
	}
	return doc, nil
}

func fromDocument(doc taskDocument) *entities.Task {
	return &entities.Task{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Description: doc.Description,
		CreatedAt:   doc.CreatedAt,
		DueDate:     doc.DueDate,
		Priority:    doc.Priority,
		Status:      doc.Status,
		Tags:        doc.Tags,
		Completed:   doc.Completed,
		Recurring:   doc.Recurring,
	}
}

// parseObjectID maps a malformed id to ErrTaskNotFound: the caller cannot
// tell a malformed id from a missing one.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, entities.ErrTaskNotFound
	}
	return oid, nil
}

// parseObjectIDs keeps the well-formed ids and drops the rest; bulk
// operations treat malformed ids like missing ones.
func parseObjectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

// buildListFilter translates a TaskFilter into a query document. Search
// becomes a case-insensitive regex disjunction over title and description;
// tags are deliberately not searched here.
func buildListFilter(filter ports.TaskFilter) bson.M {
	query := bson.M{}

	if filter.Completed != nil {
		query["completed"] = *filter.Completed
	}
	if filter.Priority != nil {
		query["priority"] = *filter.Priority
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Search != nil {
		pattern := primitive.Regex{Pattern: *filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	return query
}

// buildPatchUpdate translates a sparse patch into an update document.
func buildPatchUpdate(patch ports.TaskPatch) bson.M {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DueDate != nil && !patch.ClearDueDate {
		set["dueDate"] = *patch.DueDate
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.Recurring != nil {
		set["recurring"] = *patch.Recurring
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if patch.ClearDueDate {
		update["$unset"] = bson.M{"dueDate": ""}
	}
	return update
}

func (r *MongoTaskRepository) Insert(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	if err := task.BeforeInsert(time.Now()); err != nil {
		return nil, err
	}

	doc, err := toDocument(task)
	if err != nil {
		return nil, err
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, entities.ErrDuplicateField
		}
		return nil, fmt.Errorf("insert task: %w", err)
	}

	doc.ID = result.InsertedID.(primitive.ObjectID)
	return fromDocument(doc), nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return fromDocument(doc), nil
}

func (r *MongoTaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, buildListFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*entities.Task{}
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *MongoTaskRepository) Save(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	if err := task.BeforeSave(time.Now()); err != nil {
		return nil, err
	}

	doc, err := toDocument(task)
	if err != nil {
		return nil, err
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, entities.ErrDuplicateField
		}
		return nil, fmt.Errorf("save task: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, entities.ErrTaskNotFound
	}

	return fromDocument(doc), nil
}

func (r *MongoTaskRepository) Patch(ctx context.Context, id string, patch ports.TaskPatch) (*entities.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	if patch.IsZero() {
		return r.GetByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, buildPatchUpdate(patch), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, entities.ErrDuplicateField
		}
		return nil, fmt.Errorf("patch task: %w", err)
	}

	return fromDocument(doc), nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *MongoTaskRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	oids := parseObjectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("bulk delete tasks: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *MongoTaskRepository) PatchMany(ctx context.Context, ids []string, patch ports.TaskPatch) (int64, error) {
	oids := parseObjectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	filter := bson.M{"_id": bson.M{"$in": oids}}

	// An empty patch still reports how many tasks it matched.
	if patch.IsZero() {
		count, err := r.collection.CountDocuments(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("bulk update tasks: %w", err)
		}
		return count, nil
	}

	result, err := r.collection.UpdateMany(ctx, filter, buildPatchUpdate(patch))
	if err != nil {
		return 0, fmt.Errorf("bulk update tasks: %w", err)
	}

	return result.MatchedCount, nil
}

func (r *MongoTaskRepository) Counts(ctx context.Context, now time.Time) (ports.TaskCounts, error) {
	type countQuery struct {
		name   string
		filter bson.M
		dest   *int64
	}

	var counts ports.TaskCounts
	queries := []countQuery{
		{"total", bson.M{}, &counts.Total},
		{"completed", bson.M{"completed": true}, &counts.Completed},
		{"pending", bson.M{"completed": false, "status": bson.M{"$ne": entities.StatusDone}}, &counts.Pending},
		{"overdue", bson.M{"completed": false, "dueDate": bson.M{"$lt": now}}, &counts.Overdue},
	}

	for _, q := range queries {
		n, err := r.collection.CountDocuments(ctx, q.filter)
		if err != nil {
			return ports.TaskCounts{}, fmt.Errorf("count %s tasks: %w", q.name, err)
		}
		*q.dest = n
	}

	return counts, nil
}
