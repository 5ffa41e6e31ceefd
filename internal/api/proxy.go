package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// proxyTimeout bounds the outbound fetch. A deadline hit is reported as 504,
// distinct from a generic upstream failure.
const proxyTimeout = 7 * time.Second

// handleProxy fetches a remote image on behalf of the client, for sources
// that refuse cross-origin requests.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.ProxySlow, s.limits.ProxyBurst) {
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondError(w, http.StatusBadRequest, "Missing 'url'")
		return
	}
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		respondError(w, http.StatusBadRequest, "Invalid 'url'")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), proxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'url'")
		return
	}

	resp, err := s.proxy.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			respondError(w, http.StatusGatewayTimeout, "Image fetch timed out")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respondError(w, resp.StatusCode, "Fetch failed: "+resp.Status)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, resp.Body)
}
