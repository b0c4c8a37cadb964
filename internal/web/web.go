// Package web exposes the HTTP surface of the conversion pipeline:
// submit text or an image, receive iCalendar text.
package web

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"eventcal/internal/capture"
	"eventcal/internal/config"
	"eventcal/internal/ical"
	"eventcal/internal/input"
)

// Extractor is the language-model integration as seen by the handlers.
type Extractor interface {
	Extract(ctx context.Context, p input.Payload) (string, error)
}

// Server routes requests through the classifier, the screenshot
// acquirer and the extractor.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	extract Extractor
	acquire capture.Acquirer

	// Single-slot cache of the most recent successfully fetched
	// screenshot. Written after each acquisition, read by /image/last.
	// Concurrent readers, exclusive writer.
	lastImageMu sync.RWMutex
	lastImage   []byte
}

//go:embed static/index.html
var indexHTML []byte

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, extract Extractor, acquire capture.Acquirer) *Server {
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		extract: extract,
		acquire: acquire,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		log.Info().Str("listen", "http://"+s.cfg.Listen).Msg("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /text", s.handleText)
	s.mux.HandleFunc("POST /image", s.handleImage)
	s.mux.HandleFunc("GET /image/last", s.handleLastImage) // diagnostic
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// handleText accepts a form-encoded `text` field. A value that parses as
// an absolute URL goes through screenshot acquisition first; anything
// else is extracted directly.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("failed to parse /text form")
		http.Error(w, "Failed to read form", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(r.PostFormValue("text"))
	if text == "" {
		http.Error(w, "Missing text field", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if u, ok := input.ClassifyURL(text); ok {
		log.Debug().Str("host", u.Host).Msg("text input is a URL")
		s.processURL(ctx, w, u.String())
		return
	}

	log.Debug().Int("text_len", len(text)).Msg("text input is a raw description")
	content, err := s.extract.Extract(ctx, input.TextPayload(text))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.respondCalendar(w, content)
}

// processURL runs the screenshot-then-extract path. The image cache is
// updated immediately after acquisition succeeds, independent of the
// extraction outcome.
func (s *Server) processURL(ctx context.Context, w http.ResponseWriter, pageURL string) {
	img, err := s.acquire.AcquireImage(ctx, pageURL)
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.lastImageMu.Lock()
	s.lastImage = img
	s.lastImageMu.Unlock()

	content, err := s.extract.Extract(ctx, input.ImagePayload(img))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.respondCalendar(w, content)
}

// handleImage reads the first file part of a multipart upload and sends
// it through image-modality extraction. Payloads that do not look like
// an image are rejected before any model call.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read multipart body")
		http.Error(w, "No image found", http.StatusBadRequest)
		return
	}

	part, err := mr.NextPart()
	if err != nil {
		log.Warn().Err(err).Msg("multipart body has no parts")
		http.Error(w, "No image found", http.StatusBadRequest)
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read image file")
		http.Error(w, "Failed to read image file", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "No image found", http.StatusBadRequest)
		return
	}
	if mime := http.DetectContentType(data); !strings.HasPrefix(mime, "image/") {
		log.Warn().Str("mime", mime).Msg("uploaded file is not an image")
		http.Error(w, "Uploaded file is not an image", http.StatusBadRequest)
		return
	}

	content, err := s.extract.Extract(r.Context(), input.ImagePayload(data))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.respondCalendar(w, content)
}

// handleLastImage serves the most recent screenshot, if any. Diagnostic
// endpoint; the slot is never evicted, only overwritten.
func (s *Server) handleLastImage(w http.ResponseWriter, _ *http.Request) {
	s.lastImageMu.RLock()
	img := s.lastImage
	s.lastImageMu.RUnlock()

	if len(img) == 0 {
		http.Error(w, "No image available", http.StatusNotFound)
		return
	}

	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	w.Header().Set("Content-Type", mime)
	_, _ = w.Write(img)
}

// respondCalendar runs the advisory grammar check and writes the text
// unmodified either way. Malformed output is forwarded, not rejected;
// calendar clients may tolerate minor deviations.
func (s *Server) respondCalendar(w http.ResponseWriter, content string) {
	if err := ical.Validate(content); err != nil {
		log.Warn().Err(err).Msg("calendar sanity check failed; forwarding anyway")
	} else {
		log.Debug().Msg("calendar sanity check passed")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

// internalError logs the detailed cause and answers with a generic
// message. Upstream errors can carry credential or infrastructure
// detail; they are never echoed to the caller.
func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
