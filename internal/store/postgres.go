package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/exercise-tracker/internal/models"
)

// PostgresStore is the relational alternative to MongoStore. Ids are UUIDs
// and dates stay TEXT so range filters compare the same way.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool against dsn and pings it.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return NewPostgresStore(pool), nil
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist. exercises.uid is not a
// foreign key; the handler checks the user exists before inserting.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS exercises (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			uid         TEXT    NOT NULL,
			username    TEXT    NOT NULL,
			description TEXT    NOT NULL,
			duration    INTEGER NOT NULL CHECK (duration > 0),
			date        TEXT    NOT NULL,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return s.SyncIndexes(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username) VALUES ($1) RETURNING id::text, username`,
		username,
	).Scan(&u.ID, &u.Username)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, username FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return users, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return users, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateExercise(ctx context.Context, ex *models.Exercise) (*models.Exercise, error) {
	out := *ex
	err := s.pool.QueryRow(ctx,
		`INSERT INTO exercises (uid, username, description, duration, date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text`,
		ex.UID, ex.Username, ex.Description, ex.Duration, ex.Date,
	).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("create exercise: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) ListExercises(ctx context.Context, f ExerciseFilter) ([]models.Exercise, error) {
	// LIMIT NULL is unbounded.
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, uid, username, description, duration, date
		 FROM exercises
		 WHERE uid = $1 AND date >= $2 AND date <= $3
		 ORDER BY date, created_at
		 LIMIT $4`,
		f.UID, f.From, f.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	out := []models.Exercise{}
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.UID, &e.Username, &e.Description, &e.Duration, &e.Date); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SyncIndexes(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS exercises_uid_date ON exercises (uid, date)`)
	if err != nil {
		return fmt.Errorf("postgres create index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
