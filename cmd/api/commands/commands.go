package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/internal/adapters/repository"
	"github.com/taskdeck/core/internal/application/services"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/database"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/infrastructure/server"
	"github.com/taskdeck/core/internal/ports"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskDeck API server",
		Long:  "Start the TaskDeck API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewIndexesCommand creates the index management command. The document store
// has no migrations; ensuring the listing indexes is its equivalent.
func NewIndexesCommand() *cobra.Command {
	indexesCmd := &cobra.Command{
		Use:   "indexes",
		Short: "Storage index commands",
		Long:  "Manage the task collection's supporting indexes",
	}

	indexesCmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the task collection indexes if missing",
		Run: func(cmd *cobra.Command, args []string) {
			ensureIndexes()
		},
	})

	return indexesCmd
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample tasks",
		Run: func(cmd *cobra.Command, args []string) {
			count, _ := cmd.Flags().GetInt("count")
			seedTasks(count)
		},
	}

	seedCmd.Flags().Int("count", len(sampleTasks), "Number of sample tasks to insert")

	return seedCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskDeck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TaskDeck v1.0.0")
		},
	}
}

// buildStorage constructs the configured task repository and its health
// probe. The mongo handle is non-nil only for the mongo driver.
func buildStorage(cfg *config.Config) (ports.TaskRepository, func() error, *database.Mongo, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMongo:
		db, err := database.New(cfg.Storage)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewMongoTaskRepository(db), db.HealthCheck, db, nil
	case config.StorageDriverMemory:
		repo := repository.NewMemoryTaskRepository()
		return repo, repo.HealthCheck, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	taskRepo, storageCheck, db, err := buildStorage(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if db != nil {
		defer db.Close(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.EnsureIndexes(ctx); err != nil {
			cancel()
			appLogger.Fatalw("Failed to ensure task indexes", "error", err)
		}
		cancel()
	}

	srv, err := server.New(cfg, taskRepo, storageCheck, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting TaskDeck API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage_driver", cfg.Storage.Driver,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "reason", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Graceful shutdown failed")
	}
}

func ensureIndexes() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Storage.Driver != config.StorageDriverMongo {
		log.Fatalf("Index management requires the mongo storage driver (configured: %s)", cfg.Storage.Driver)
	}

	db, err := database.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	fmt.Println("Task indexes are in place")
}

var sampleTasks = []ports.CreateTaskRequest{
	{
		Title:       "Plan the week",
		Description: "Review the backlog and pick the top three outcomes",
		Priority:    string(entities.PriorityHigh),
		Tags:        []ports.TagInput{{Name: "planning"}},
		Recurring:   string(entities.RecurrenceWeekly),
	},
	{
		Title:     "Water the plants",
		Priority:  string(entities.PriorityLow),
		Tags:      []ports.TagInput{{Name: "home", Color: "#22c55e"}},
		Recurring: string(entities.RecurrenceDaily),
	},
	{
		Title:       "Renew gym membership",
		Description: "Ask about the annual discount before renewing",
		Priority:    string(entities.PriorityMedium),
		Status:      string(entities.StatusInProgress),
	},
	{
		Title: "Book dentist appointment",
		Tags:  []ports.TagInput{{Name: "health", Color: "#ef4444"}},
	},
	{
		Title:       "Prepare trip itinerary",
		Description: "Trains, museum tickets and at least one rainy-day option",
		Priority:    string(entities.PriorityMedium),
		Tags:        []ports.TagInput{{Name: "travel"}, {Name: "family", Color: "#f59e0b"}},
	},
}

func seedTasks(count int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	taskRepo, _, db, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close(context.Background())
	}

	if count <= 0 || count > len(sampleTasks) {
		count = len(sampleTasks)
	}

	taskService := services.NewTaskService(taskRepo, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inserted := 0
	for _, req := range sampleTasks[:count] {
		if _, err := taskService.CreateTask(ctx, req); err != nil {
			log.Fatalf("Failed to seed task %q: %v", req.Title, err)
		}
		inserted++
	}

	fmt.Printf("Seeded %d tasks\n", inserted)
}
