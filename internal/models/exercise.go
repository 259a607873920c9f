package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Exercise is a single logged activity. UID and Username are copied from
// the owning user when the exercise is created.
type Exercise struct {
	ID          string `json:"id"`
	UID         string `json:"uid"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// Minutes accepts either a JSON number or a numeric JSON string. Integral
// floats such as 30.0 are accepted; fractions are not.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	if v, err := json.Number(s).Int64(); err == nil {
		*m = Minutes(v)
		return nil
	}
	f, err := json.Number(s).Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return fmt.Errorf("duration must be an integer: %q", s)
	}
	*m = Minutes(int64(f))
	return nil
}

// CreateExerciseRequest is the body for POST /api/users/{id}/exercises.
// UserID is filled from the path. Duration is capped at the int32 range of
// the Postgres column.
type CreateExerciseRequest struct {
	UserID      string  `json:"-"           param:"id" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Duration    Minutes `json:"duration"    validate:"required,gt=0,lte=2147483647"`
	Date        string  `json:"date"        validate:"omitempty,datetime=2006-01-02"`
}

// LogQuery holds the optional filters for GET /api/users/{id}/logs.
type LogQuery struct {
	From  string `param:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `param:"to"   validate:"omitempty,datetime=2006-01-02"`
	Limit int    `param:"limit"`
}

// ExerciseResponse is returned after an exercise is logged. ID is the
// owning user's id.
type ExerciseResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// LogEntry is one row of a user's exercise log.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogResponse is the body for GET /api/users/{id}/logs.
type LogResponse struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}
