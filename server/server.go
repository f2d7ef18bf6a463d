// Package server exposes the translation service over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/ZaguanLabs/gotlm/pofile"
	"github.com/ZaguanLabs/gotlm/store"
	"github.com/ZaguanLabs/gotlm/translation"
)

// maxBodySize bounds request bodies, PO files included.
const maxBodySize = 10 << 20

// Server routes API requests to a translation service.
type Server struct {
	svc    *translation.Service
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(svc *translation.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.version)
		r.Post("/extract", s.extract)
		r.Post("/sources", s.submit)
		r.Route("/translations/{id}", func(r chi.Router) {
			r.Get("/", s.translation)
			r.Get("/strings", s.strings)
			r.Put("/strings", s.saveString)
			r.Post("/machine-translate", s.machineTranslate)
			r.Get("/po", s.exportPO)
			r.Put("/po", s.importPO)
			r.Post("/publish", s.publish)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// fail maps service errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		mismatch      *pofile.TranslationIDMismatchError
		syntax        *pofile.SyntaxError
		missingTr     *gotlm.MissingTranslationError
		missingRel    *gotlm.MissingRelatedObjectError
		missingSegs   *gotlm.MissingSegmentsError
		unknownEntity *htmlsnippet.UnknownEntityError
		unrecognized  *gotlm.UnrecognizedTypeError
		provider      *gotlm.ProviderError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &mismatch):
		writeError(w, http.StatusConflict, "translation_mismatch", err.Error())
	case errors.As(err, &syntax):
		writeError(w, http.StatusBadRequest, "bad_po_file", err.Error())
	case errors.As(err, &missingTr):
		writeError(w, http.StatusUnprocessableEntity, "missing_translation", err.Error())
	case errors.As(err, &missingRel):
		writeError(w, http.StatusUnprocessableEntity, "missing_related_object", err.Error())
	case errors.As(err, &missingSegs):
		writeError(w, http.StatusUnprocessableEntity, "missing_segments", err.Error())
	case errors.As(err, &unknownEntity):
		writeError(w, http.StatusUnprocessableEntity, "unknown_element", err.Error())
	case errors.As(err, &unrecognized):
		writeError(w, http.StatusUnprocessableEntity, "unrecognized_type", err.Error())
	case errors.Is(err, translation.ErrUnsupportedLocale):
		writeError(w, http.StatusBadRequest, "unsupported_locale", err.Error())
	case errors.Is(err, translation.ErrNotTranslatable):
		writeError(w, http.StatusBadRequest, "not_translatable", err.Error())
	case errors.Is(err, translation.ErrNoMachineTranslator):
		writeError(w, http.StatusNotImplemented, "no_machine_translator", err.Error())
	case errors.As(err, &provider):
		writeError(w, http.StatusBadGateway, "provider_error", err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
