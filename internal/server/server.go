// Package server exposes the review queue as a local web UI. It is a thin
// adapter: every action maps onto one service call and redirects back to the
// board.
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeonx/timeago"

	"github.com/colonyops/workboard/internal/core/kv"
	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/internal/workboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// CSRF token parameters. The token lives in the result cache and is reissued
// when the board is rendered after it expired.
const (
	csrfTokenLen = 100
	csrfTokenTTL = 4 * time.Hour
	csrfKey      = "token"
)

const csrfAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Server renders the board and accepts triage actions.
type Server struct {
	app  *workboard.App
	csrf *kv.TypedKV[string]
	tmpl *template.Template
	log  zerolog.Logger
}

// New creates a server over the given app.
func New(app *workboard.App, log zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		app:  app,
		csrf: kv.Scoped[string](app.Cache, "csrf"),
		tmpl: tmpl,
		log:  log,
	}, nil
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBoard)
	mux.HandleFunc("POST /pr/clicked", s.action(s.app.Service.MarkClicked))
	mux.HandleFunc("POST /pr/delete", s.action(s.app.Service.Delete))
	mux.HandleFunc("POST /pr/mark-must-review", s.action(s.app.Service.MarkMustReview))
	mux.HandleFunc("POST /pr/reviewed-delete-on-merge", s.action(s.app.Service.MarkReviewedDeleteOnMerge))
	mux.HandleFunc("POST /pr/snooze-until-mentioned", s.action(s.app.Service.SnoozeUntilMentioned))
	mux.HandleFunc("POST /pr/snooze-until-time", s.action(s.app.Service.SnoozeUntilTime))
	mux.HandleFunc("POST /pr/snooze-until-update", s.action(s.app.Service.SnoozeUntilUpdate))
	return mux
}

// ListenAndServe runs the server on the configured address until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.app.Config.Server.Listen,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("serving board")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// boardRow is one rendered item.
type boardRow struct {
	URL          string
	Title        string
	Repo         string
	Author       string
	Status       string
	UpdatedAgo   string
	OwnPR        bool
	LastClicked  bool
	SnoozeUntil  string
	ShowSnoozing bool
}

type boardData struct {
	User      string
	Rows      []boardRow
	CSRFToken string
	Refreshed string
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := s.app.Service.RefreshAndList(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
		http.Error(w, fmt.Sprintf("refresh failed: %v", err), http.StatusBadGateway)
		return
	}

	token, err := s.csrfToken(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("csrf token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	lastClicked := s.app.Service.LastClicked(ctx)

	data := boardData{
		User:      s.app.Config.GitHub.User,
		CSRFToken: token,
		Refreshed: time.Now().Format(time.RFC1123),
	}
	for _, item := range items {
		row := boardRow{
			URL:         item.URL,
			Title:       item.Remote.Title,
			Repo:        item.Remote.Repo,
			Author:      item.Remote.Author,
			Status:      string(item.Board.Status),
			OwnPR:       item.Remote.Author == s.app.Config.GitHub.User,
			LastClicked: item.URL == lastClicked,
		}
		if item.Remote.UpdatedAt != 0 {
			row.UpdatedAgo = timeago.English.Format(time.Unix(item.Remote.UpdatedAt, 0))
		}
		if item.Board.Status == review.StatusSnoozedUntilTime && item.Board.SnoozeUntil != 0 {
			row.ShowSnoozing = true
			row.SnoozeUntil = time.Unix(item.Board.SnoozeUntil, 0).Format(time.RFC1123)
		}
		data.Rows = append(data.Rows, row)
	}

	if err := s.tmpl.ExecuteTemplate(w, "board.html", data); err != nil {
		s.log.Error().Err(err).Msg("render board")
	}
}

// action wraps a service mutation into a POST handler with CSRF verification.
func (s *Server) action(fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !s.verifyCSRF(ctx, r.FormValue("csrf_token")) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		url := r.FormValue("url")
		if err := fn(ctx, url); err != nil {
			var invalid *review.InvalidInputError
			switch {
			case errors.As(err, &invalid):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, review.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				s.log.Error().Err(err).Str("url", url).Msg("action failed")
				http.Error(w, "action failed", http.StatusInternalServerError)
			}
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// csrfToken returns the current token, minting a new one when none is live.
func (s *Server) csrfToken(ctx context.Context) (string, error) {
	token, err := s.csrf.Get(ctx, csrfKey)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = randomToken(csrfTokenLen)
	if err != nil {
		return "", err
	}
	if err := s.csrf.SetTTL(ctx, csrfKey, token, csrfTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Server) verifyCSRF(ctx context.Context, got string) bool {
	want, err := s.csrf.Get(ctx, csrfKey)
	if err != nil || want == "" || len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	for i, b := range buf {
		buf[i] = csrfAlphabet[int(b)%len(csrfAlphabet)]
	}
	return string(buf), nil
}
