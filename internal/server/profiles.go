package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/steadystream/steadystream/internal/profile"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.Profiles.Profiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	p, err := s.Profiles.CreateProfile(r.Context(), req.Name, req.Avatar)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.DeleteProfile(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.Profiles.Favorites(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if favs == nil {
		favs = []string{}
	}
	writeJSON(w, http.StatusOK, favs)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.AddFavorite(r.Context(), r.PathValue("id"), r.PathValue("channel")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.RemoveFavorite(r.Context(), r.PathValue("id"), r.PathValue("channel")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordWatch(w http.ResponseWriter, r *http.Request) {
	var ev profile.WatchEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "channel_id required")
		return
	}
	if ev.StartedAt.IsZero() {
		ev.StartedAt = time.Now()
	}
	if err := s.Profiles.RecordWatch(r.Context(), r.PathValue("id"), ev); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	hist, err := s.Profiles.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hist == nil {
		hist = []profile.WatchEvent{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	pl, found, err := s.Playlists.Current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusConflict, "no playlist loaded")
		return
	}
	recs, err := s.Profiles.Recommend(r.Context(), r.PathValue("id"), pl.Channels, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []profile.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}
