package server

import (
	"io"
	"net/http"
	"net/url"

	"github.com/steadystream/steadystream/internal/fetch"
)

// streamHandler relays a channel's stream to the browser. Players can't
// hit provider hosts directly (CORS, mixed content), so /stream?url=...
// pipes the upstream through this origin. Range is forwarded for
// players that seek.
func (s *Server) streamHandler() http.Handler {
	client := fetch.WithTimeout(0) // streams run until the client hangs up
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			writeError(w, http.StatusBadRequest, "url required")
			return
		}
		if parsed, err := url.Parse(target); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			writeError(w, http.StatusBadRequest, "unsupported url")
			return
		}
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Header.Set("User-Agent", "SteadyStream/1.0")
		if rg := r.Header.Get("Range"); rg != "" {
			req.Header.Set("Range", rg)
		}
		resp, err := client.Do(req)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		defer resp.Body.Close()
		for _, k := range []string{"Content-Length", "Content-Type", "Accept-Ranges", "Content-Range"} {
			if v := resp.Header.Get(k); v != "" {
				w.Header().Set(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	})
}
