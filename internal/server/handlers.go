package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/steadystream/steadystream/internal/health"
	"github.com/steadystream/steadystream/internal/playlist"
	"github.com/steadystream/steadystream/internal/store"
	"github.com/steadystream/steadystream/internal/timegrid"
	"github.com/steadystream/steadystream/internal/xtream"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, found, err := s.Playlists.Current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no playlist loaded")
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleLoadM3U(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	pl, err := s.Playlists.LoadM3U(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, playlist.ErrInvalidFormat) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleLoadXtream(w http.ResponseWriter, r *http.Request) {
	var creds xtream.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if creds.Username == "" || creds.Password == "" || creds.BaseURL == "" {
		writeError(w, http.StatusBadRequest, "username, password and url required")
		return
	}
	pl, err := s.Playlists.LoadXtream(r.Context(), creds)
	if err != nil {
		if errors.Is(err, xtream.ErrAuthentication) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleGetEPG(w http.ResponseWriter, r *http.Request) {
	data := s.currentGuide()
	if data == nil {
		writeError(w, http.StatusNotFound, "no guide loaded")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleLoadEPG(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	pl, found, err := s.Playlists.Current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusConflict, "load a playlist before the guide")
		return
	}
	data, err := s.EPG.LoadEPG(r.Context(), req.URL, pl.Channels)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.SetGuide(data)
	writeJSON(w, http.StatusOK, data)
}

// handleGrid returns the header slots and layout parameters for a time
// window. Defaults to the loaded guide's window.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := int64(0), int64(0)
	if data := s.currentGuide(); data != nil {
		start, end = data.StartTime, data.EndTime
	}
	if v := q.Get("start"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad start")
			return
		}
		start = n
	}
	if v := q.Get("end"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad end")
			return
		}
		end = n
	}
	if end <= start {
		writeError(w, http.StatusBadRequest, "empty window")
		return
	}
	interval := s.SlotMinutes
	if v := q.Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad interval")
			return
		}
		interval = n
	}
	ppm := s.PixelsPerMinute
	if ppm <= 0 {
		ppm = timegrid.DefaultPixelsPerMinute
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slots":             timegrid.GenerateSlots(start, end, interval),
		"pixels_per_minute": ppm,
		"timeline_width":    timegrid.TimelineWidth(start, end, ppm),
		"now_position":      timegrid.CurrentTimePosition(time.Now(), start, ppm),
	})
}

// handleHealth answers "ok" once a lineup is present, "empty" before.
// With ?deep=1 it also probes the saved source URLs.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, found, err := s.Playlists.Current()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}
	status := "ok"
	if !found {
		status = "empty"
	}
	out := map[string]string{"status": status}
	if r.URL.Query().Get("deep") != "" {
		for _, key := range []string{store.KeyM3UURL, store.KeyEPGURL} {
			var url string
			if ok, _ := store.LoadJSON(s.Playlists.Store, key, &url); !ok {
				continue
			}
			if err := health.CheckSource(r.Context(), url); err != nil {
				out[key] = err.Error()
				out["status"] = "degraded"
			} else {
				out[key] = "ok"
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
