package tracker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/models"
	"github.com/ayush/exercise-tracker/internal/observability"
	"github.com/ayush/exercise-tracker/internal/store"
)

// Store defines the persistence operations the tracker needs.
type Store interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateExercise(ctx context.Context, ex *models.Exercise) (*models.Exercise, error)
	ListExercises(ctx context.Context, f store.ExerciseFilter) ([]models.Exercise, error)
	SyncIndexes(ctx context.Context) error
}

// Service applies validation and defaults on top of a Store and maps its
// errors onto ErrValidation, ErrNotFound and ErrStore.
type Service struct {
	store    Store
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

func NewService(s Store, log *logger.Logger) *Service {
	return &Service{
		store:    s,
		validate: newValidator(),
		log:      log,
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("param"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// check runs struct validation and returns the first failure as a
// *ValidationError.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "gt":
		msg = field + " must be a positive integer"
	case "lte":
		msg = field + " must be at most " + fe.Param()
	case "datetime":
		msg = field + " must be a date in YYYY-MM-DD format"
	default:
		msg = field + " is invalid"
	}
	return &ValidationError{Field: field, Message: msg}
}

func storeErr(op string, err error) error {
	observability.StoreErrorsTotal.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Today is the server-local date in YYYY-MM-DD form.
func (s *Service) Today() string {
	return isoDateOf(s.now())
}

func (s *Service) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.check(req); err != nil {
		return nil, err
	}
	u, err := s.store.CreateUser(ctx, req.Username)
	if err != nil {
		return nil, storeErr("create user", err)
	}
	observability.UsersCreatedTotal.Inc()
	return u, nil
}

// ListUsers never fails: store errors are logged and whatever was read
// before the error is returned.
func (s *Service) ListUsers(ctx context.Context) []models.User {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("list users").Inc()
		s.log.WithFields(ctx, logger.Fields{"op": "list users"}).Errorf("%v", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users
}

func (s *Service) FindUser(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get user", err)
	}
	return u, nil
}

// LogExercise stores an exercise for the user named in req, copying the
// user's id and username onto the record. Date defaults to today.
func (s *Service) LogExercise(ctx context.Context, req models.CreateExerciseRequest) (*models.User, *models.Exercise, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.Date = strings.TrimSpace(req.Date)
	if err := s.check(req); err != nil {
		return nil, nil, err
	}

	user, err := s.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	date := req.Date
	if date == "" {
		date = s.Today()
	}
	ex, err := s.store.CreateExercise(ctx, &models.Exercise{
		UID:         user.ID,
		Username:    user.Username,
		Description: req.Description,
		Duration:    int(req.Duration),
		Date:        date,
	})
	if err != nil {
		return nil, nil, storeErr("create exercise", err)
	}
	observability.ExercisesLoggedTotal.Inc()
	return user, ex, nil
}

// Log returns the user and their exercises dated within [q.From, q.To].
// From defaults to the epoch, To to today, and q.Limit <= 0 is unbounded.
func (s *Service) Log(ctx context.Context, uid string, q models.LogQuery) (*models.User, []models.Exercise, error) {
	if err := s.check(q); err != nil {
		return nil, nil, err
	}

	user, err := s.FindUser(ctx, uid)
	if err != nil {
		return nil, nil, err
	}

	f := store.ExerciseFilter{UID: user.ID, From: q.From, To: q.To, Limit: q.Limit}
	if f.From == "" {
		f.From = store.EpochDate
	}
	if f.To == "" {
		f.To = s.Today()
	}
	if f.Limit < 0 {
		f.Limit = 0
	}

	exercises, err := s.store.ListExercises(ctx, f)
	if err != nil {
		return nil, nil, storeErr("list exercises", err)
	}
	return user, exercises, nil
}

func (s *Service) SyncIndexes(ctx context.Context) error {
	if err := s.store.SyncIndexes(ctx); err != nil {
		return storeErr("sync indexes", err)
	}
	return nil
}
