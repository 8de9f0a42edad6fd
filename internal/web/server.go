package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"neighborly/internal/core"
	"neighborly/internal/hub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

const sessionName = "neighborly-session"
const sessionUserIDKey = "user_id"

// Server represents the HTTP server
type Server struct {
	service       *core.Service
	hub           *hub.Hub
	sessionStore  *sessions.CookieStore
	sessionSecret string
}

// NewServer creates a new Server instance
func NewServer(service *core.Service, h *hub.Hub, sessionSecret, publicURL string) *Server {
	store := sessions.NewCookieStore([]byte(sessionSecret))

	isHTTPS := strings.HasPrefix(publicURL, "https")
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}

	return &Server{
		service:       service,
		hub:           h,
		sessionStore:  store,
		sessionSecret: sessionSecret,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Public routes
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/logout", s.handleLogout)
		r.Get("/profile", s.handleProfile)

		// Community routes
		r.Get("/communities", s.handleListCommunities)
		r.Post("/communities", s.handleCreateCommunity)
		r.Post("/communities/{communityID}/join", s.handleJoinCommunity)
		r.Delete("/communities/{communityID}", s.handleDeleteCommunity)
		r.Get("/communities/{communityID}/tasks", s.handleListCommunityTasks)
		r.Get("/user/communities", s.handleUserCommunities)

		// Task routes
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks/{taskID}", s.handleGetTask)
		r.Patch("/tasks/{taskID}", s.handleUpdateTask)
		r.Delete("/tasks/{taskID}", s.handleCancelTask)
		r.Post("/tasks/{taskID}/complete", s.handleCompleteTask)

		// Conversation and message routes
		r.Get("/conversations", s.handleListConversations)
		r.Post("/conversations", s.handleStartConversation)
		r.Get("/conversations/{conversationID}/messages", s.handleListConversationMessages)
		r.Post("/conversations/{conversationID}/messages", s.handlePostConversationMessage)
		r.Get("/tasks/{taskID}/messages", s.handleListTaskMessages)
		r.Post("/tasks/{taskID}/messages", s.handlePostTaskMessage)
		r.Get("/chats", s.handleListChats)

		// Transaction routes
		r.Get("/tasks/{taskID}/transaction", s.handleGetTransaction)
		r.Post("/tasks/{taskID}/transaction", s.handleCreateTransaction)
		r.Patch("/transactions/{transactionID}/start-request", s.handleRequestStart)
		r.Patch("/transactions/{transactionID}/confirm", s.handleConfirm)
		r.Patch("/transactions/{transactionID}", s.handlePatchTransaction)

		// Rating routes
		r.Post("/ratings", s.handleSubmitRating)
		r.Get("/tasks/{taskID}/rating", s.handleGetTaskRating)

		// Real-time channel
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// getUserID retrieves the user ID from the session
func (s *Server) getUserID(r *http.Request) (int64, bool) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return 0, false
	}

	userID, ok := session.Values[sessionUserIDKey].(int64)
	if !ok {
		return 0, false
	}

	return userID, true
}

// setUserID sets the user ID in the session
func (s *Server) setUserID(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// clearSession clears the session
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth is middleware that ensures the user is authenticated
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.getUserID(r); !ok {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps a service error onto the failure taxonomy's
// status codes. Store-level failures stay a generic 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidState):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}

// urlID parses a numeric URL parameter
func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, core.Validationf("invalid %s", name)
	}
	return id, nil
}

// decodeBody decodes a JSON request body
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.Validationf("malformed request body")
	}
	return nil
}
