package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ayush/exercise-tracker/internal/models"
)

// MemoryStore keeps everything in process memory. It is meant for local
// runs and tests; data is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     []models.User
	byID      map[string]int
	exercises []models.Exercise
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) CreateUser(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := models.User{ID: uuid.NewString(), Username: username}
	s.byID[u.ID] = len(s.users)
	s.users = append(s.users, u)
	return &u, nil
}

func (s *MemoryStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[i]
	return &u, nil
}

func (s *MemoryStore) CreateExercise(_ context.Context, ex *models.Exercise) (*models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *ex
	out.ID = uuid.NewString()
	s.exercises = append(s.exercises, out)
	return &out, nil
}

func (s *MemoryStore) ListExercises(_ context.Context, f ExerciseFilter) ([]models.Exercise, error) {
	s.mu.RLock()
	out := []models.Exercise{}
	for _, ex := range s.exercises {
		if ex.UID == f.UID && ex.Date >= f.From && ex.Date <= f.To {
			out = append(out, ex)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) SyncIndexes(context.Context) error { return nil }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }
