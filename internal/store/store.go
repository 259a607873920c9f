package store

import (
	"context"
	"errors"

	"github.com/ayush/exercise-tracker/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("not found")
)

// EpochDate is the lower bound used when a log query has no "from" date.
const EpochDate = "1970-01-01"

// ExerciseFilter selects a user's exercises with From <= date <= To.
// Limit <= 0 means no cap.
type ExerciseFilter struct {
	UID   string
	From  string
	To    string
	Limit int
}

// Store is implemented by every persistence backend.
type Store interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateExercise(ctx context.Context, ex *models.Exercise) (*models.Exercise, error)
	ListExercises(ctx context.Context, f ExerciseFilter) ([]models.Exercise, error)
	SyncIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
