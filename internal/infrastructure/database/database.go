package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/taskdeck/core/internal/infrastructure/config"
)

// TasksCollection is the single collection this application persists to.
const TasksCollection = "tasks"

// Mongo wraps the driver client and provides access to the task collection.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	config config.StorageConfig
}

// New connects to MongoDB and verifies the connection with a ping.
func New(cfg config.StorageConfig) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
		config: cfg,
	}, nil
}

// Tasks returns the task collection.
func (m *Mongo) Tasks() *mongo.Collection {
	return m.db.Collection(TasksCollection)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Ping pings the primary.
func (m *Mongo) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.client.Ping(ctx, readpref.Primary())
}

// HealthCheck checks database health
func (m *Mongo) HealthCheck() error {
	if err := m.Ping(); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// EnsureIndexes creates the supporting indexes for filtered listing: the
// compound listing index plus single-field indexes on dueDate, priority and
// status. Safe to call repeatedly.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "completed", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	if _, err := m.Tasks().Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}

	return nil
}
