// Package server exposes the HTTP API: playlist and EPG loading, the
// guide grid, profiles and the stream relay, plus /healthz and
// /metrics.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/steadystream/steadystream/internal/epg"
	"github.com/steadystream/steadystream/internal/guide"
	"github.com/steadystream/steadystream/internal/profile"
)

// Server holds the service graph behind the HTTP API. Guide data lives
// in memory only and is replaced wholesale by each EPG load.
type Server struct {
	Addr            string
	Playlists       *guide.PlaylistService
	EPG             *guide.EPGService
	Profiles        *profile.Store
	PixelsPerMinute float64
	SlotMinutes     int
	Log             *logrus.Logger // nil discards

	mu        sync.RWMutex
	guideData *epg.Data
}

func (s *Server) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return discardLogger
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// SetGuide replaces the in-memory guide. Exposed for the CLI's startup
// load; the EPG endpoint calls it after each successful fetch.
func (s *Server) SetGuide(d *epg.Data) {
	s.mu.Lock()
	s.guideData = d
	s.mu.Unlock()
}

func (s *Server) currentGuide() *epg.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guideData
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/playlist", s.handleGetPlaylist)
	mux.HandleFunc("POST /api/playlist/m3u", s.handleLoadM3U)
	mux.HandleFunc("POST /api/playlist/xtream", s.handleLoadXtream)
	mux.HandleFunc("GET /api/epg", s.handleGetEPG)
	mux.HandleFunc("POST /api/epg", s.handleLoadEPG)
	mux.HandleFunc("GET /api/guide/grid", s.handleGrid)

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("GET /api/profiles/{id}/favorites", s.handleListFavorites)
	mux.HandleFunc("PUT /api/profiles/{id}/favorites/{channel}", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/profiles/{id}/favorites/{channel}", s.handleRemoveFavorite)
	mux.HandleFunc("POST /api/profiles/{id}/watch", s.handleRecordWatch)
	mux.HandleFunc("GET /api/profiles/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/profiles/{id}/recommendations", s.handleRecommendations)

	mux.Handle("GET /stream", s.streamHandler())
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	serverErr := make(chan error, 1)
	go func() {
		s.logger().WithField("addr", addr).Info("api listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger().WithError(err).Warn("shutdown")
		}
		<-serverErr
		return nil
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		s.logger().WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
			"bytes":  lw.bytes,
			"dur":    time.Since(start).Round(time.Millisecond).String(),
			"remote": r.RemoteAddr,
		}).Debug("http")
	})
}
