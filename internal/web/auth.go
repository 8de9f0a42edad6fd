package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"neighborly/internal/core"

	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// handleRegister creates an account and logs it in
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(r, &creds); err != nil {
		respondServiceError(w, err)
		return
	}

	if len(creds.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	user, err := s.service.RegisterUser(creds.Username, creds.DisplayName, string(hash))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.setUserID(w, r, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleLogin verifies credentials and starts a session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(r, &creds); err != nil {
		respondServiceError(w, err)
		return
	}

	user, err := s.service.GetUserByUsername(creds.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondServiceError(w, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.setUserID(w, r, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleLogout clears the session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.clearSession(w, r); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type profileResponse struct {
	*core.User
	TelegramLinked   bool   `json:"telegramLinked"`
	TelegramLinkCode string `json:"telegramLinkCode"`
}

// handleProfile returns the authenticated user's profile, including the
// code for linking a Telegram chat via the bot
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	user, err := s.service.GetUserByID(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		User:             user,
		TelegramLinked:   user.TelegramChatID != nil,
		TelegramLinkCode: LinkCode(user.Username, s.sessionSecret),
	})
}

// LinkCode derives the HMAC-SHA256 code a user presents to the Telegram bot
// to link their account
func LinkCode(username, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(username))
	return hex.EncodeToString(h.Sum(nil))
}
