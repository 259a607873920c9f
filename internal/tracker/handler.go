package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/models"
)

const indexSyncTimeout = 30 * time.Second

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Handler holds the exercise tracker HTTP handlers.
type Handler struct {
	svc       *Service
	log       *logger.Logger
	indexFile string
}

func NewHandler(svc *Service, log *logger.Logger, indexFile string) *Handler {
	return &Handler{svc: svc, log: log, indexFile: indexFile}
}

// fail maps service errors onto status codes: 400 for validation, 404 for
// unknown users, 500 for everything else.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	entry := h.log.WithFields(r.Context(), logger.Fields{"op": op})

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		entry.Infof("rejected: %s", verr.Message)
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		entry.Errorf("%v", err)
		writeError(w, http.StatusInternalServerError, "database error")
	}
}

// decodeBody fills dst from a JSON or urlencoded/multipart form body. Form
// values are re-encoded as a JSON object of strings so both paths share the
// same field tags and coercions.
func decodeBody(r *http.Request, dst any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return err
		}
		fields := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	default:
		if r.Body == nil || r.ContentLength == 0 {
			return nil
		}
		return json.NewDecoder(r.Body).Decode(dst)
	}
}

// Index serves the landing page and kicks off a best-effort index sync.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, h.indexFile)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), indexSyncTimeout)
		defer cancel()
		if err := h.svc.SyncIndexes(ctx); err != nil {
			h.log.Warnf("index sync: %v", err)
		}
	}()
}

// ListUsers returns every user; store errors degrade to a partial list.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListUsers(r.Context()))
}

// CreateUser creates a user from {username}.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.CreateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// CreateExercise logs an exercise for the user in the path.
func (h *Handler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExerciseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.UserID = chi.URLParam(r, "id")

	user, ex, err := h.svc.LogExercise(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create exercise", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ExerciseResponse{
		ID:          user.ID,
		Username:    user.Username,
		Duration:    ex.Duration,
		Description: ex.Description,
		Date:        displayDateOf(ex.Date),
	})
}

// Logs returns the user's exercise log filtered by ?from, ?to and ?limit.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := models.LogQuery{
		From: query.Get("from"),
		To:   query.Get("to"),
	}
	// Anything that isn't a positive integer means "no limit".
	if n, err := strconv.Atoi(query.Get("limit")); err == nil && n > 0 {
		q.Limit = n
	}

	user, exercises, err := h.svc.Log(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.fail(w, r, "exercise log", err)
		return
	}

	entries := make([]models.LogEntry, 0, len(exercises))
	for _, ex := range exercises {
		entries = append(entries, models.LogEntry{
			Description: ex.Description,
			Duration:    ex.Duration,
			Date:        displayDateOf(ex.Date),
		})
	}
	writeJSON(w, http.StatusOK, models.LogResponse{
		ID:       user.ID,
		Username: user.Username,
		Count:    len(entries),
		Log:      entries,
	})
}
