package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/meowlab/cat-emotion-service/internal/middleware"
	"github.com/meowlab/cat-emotion-service/internal/ml"
	"github.com/meowlab/cat-emotion-service/internal/repository"
	"github.com/meowlab/cat-emotion-service/internal/service"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 32 << 20

// Handler translates HTTP requests into service calls and service errors
// into documented status codes.
type Handler struct {
	svc        *service.Service
	classifier *ml.Classifier
	extractor  ml.Extractor
	log        *logrus.Logger
}

func NewHandler(svc *service.Service, classifier *ml.Classifier, extractor ml.Extractor, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, classifier: classifier, extractor: extractor, log: log}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password are required")
		return
	}

	user, err := h.svc.Register(req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, repository.ErrDuplicateUsername):
			writeError(w, http.StatusBadRequest, "Username already taken")
		default:
			h.internalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		h.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me returns the authenticated user's profile
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.svc.GetUser(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

// Logout acknowledges the request. Tokens remain valid until natural expiry;
// the token_blacklist table is not written here.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// PredictAudio accepts a multipart audio upload and returns the predicted
// emotion label. The upload is buffered to a temporary file for the duration
// of the request only.
func (h *Handler) PredictAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "audio-upload-*")
	if err != nil {
		h.internalError(w, err)
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		h.internalError(w, err)
		return
	}

	features, err := h.extractor.Extract(tmp.Name())
	if err != nil {
		h.internalError(w, err)
		return
	}

	emotion, err := h.classifier.Predict(features)
	if err != nil {
		if errors.Is(err, ml.ErrShapeMismatch) {
			writeError(w, http.StatusBadRequest, "Audio features incompatible with model")
			return
		}
		h.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"emotion": emotion})
}

// Health reports process liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Root returns a service banner
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cat Emotion Detection Backend is running"})
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.Errorf("Internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
