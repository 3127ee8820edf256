package api

import (
	"context"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sprite-ai/easygit/internal/app"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Session ---

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.bridge.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

type loginRequest struct {
	Token string `json:"token"`
}

// handleLogin starts a login and waits for the validation to settle so the
// response reports the outcome.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		s.writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.loginWait)
	defer cancel()

	updates, unsubscribe := s.bridge.Subscribe("login-" + uuid.NewString())
	defer unsubscribe()

	token := req.Token
	active := false
	snap, err := s.bridge.Do(ctx, func(c *app.Controller) tea.Cmd {
		if c.State().LoggedIn() {
			active = true
			return nil
		}
		return c.Login(token)
	})
	if err == nil && active {
		s.writeError(w, http.StatusConflict, "already logged in as "+snap.Login+", log out first")
		return
	}
	for err == nil && !loginSettled(snap) {
		select {
		case snap = <-updates:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	if snap.Phase != app.PhaseLoggedIn.String() {
		msg := snap.LoginError
		if msg == "" {
			msg = "login failed"
		}
		s.writeError(w, http.StatusUnauthorized, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func loginSettled(snap Snapshot) bool {
	if snap.Loading == "login" {
		return false
	}
	return snap.Phase == app.PhaseLoggedIn.String() || snap.LoginError != ""
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	snap, err := s.bridge.Do(r.Context(), func(c *app.Controller) tea.Cmd {
		c.Logout()
		return nil
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.bridge.Do(r.Context(), (*app.Controller).Refresh)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if snap.Phase != app.PhaseLoggedIn.String() {
		s.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	s.writeJSON(w, http.StatusAccepted, snap)
}
