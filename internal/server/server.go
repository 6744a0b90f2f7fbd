package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"orasp/internal/catalog"
	"orasp/internal/export"
	"orasp/internal/orasp"
	"orasp/internal/telemetry"
)

// maxBodyBytes bounds POST /v1/instances request bodies.
const maxBodyBytes = 1 << 20

// Lister is the read side of the instance catalog.
type Lister interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Record, error)
	Get(ctx context.Context, id string) (*catalog.Record, error)
}

// Server serves generated instances over HTTP.
type Server struct {
	params  orasp.Params
	metrics *telemetry.Metrics
	catalog Lister
	logger  zerolog.Logger
	router  chi.Router
}

// New builds the router. params are the defaults every request starts from;
// metrics and cat may be nil.
func New(params orasp.Params, metrics *telemetry.Metrics, cat Lister, logger zerolog.Logger) *Server {
	s := &Server{
		params:  params,
		metrics: metrics,
		catalog: cat,
		logger:  logger.With().Str("component", "server").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/instances", s.handleGenerateQuery)
		r.Post("/instances", s.handleGenerateJSON)
		if cat != nil {
			r.Get("/catalog", s.handleCatalog)
			r.Get("/catalog/{id}", s.handleCatalogRecord)
		}
	})
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Operations int          `json:"operations"`
	Surgeons   int          `json:"surgeons"`
	Rooms      int          `json:"rooms"`
	Seed       *int64       `json:"seed,omitempty"`
	Params     orasp.Params `json:"params"`
}

func (s *Server) handleGenerateQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := orasp.Request{Params: s.params}

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"operations", &req.Operations},
		{"surgeons", &req.Surgeons},
		{"rooms", &req.Rooms},
	} {
		v, err := strconv.Atoi(q.Get(f.name))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", f.name))
			return
		}
		*f.dst = v
	}
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		req.Seed = &seed
	}

	format := export.FormatJSON
	if raw := q.Get("format"); raw != "" {
		f, err := export.ParseFormat(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	s.generate(w, r, req, format)
}

func (s *Server) handleGenerateJSON(w http.ResponseWriter, r *http.Request) {
	body := generateRequest{Params: s.params}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.generate(w, r, orasp.Request{
		Operations: body.Operations,
		Surgeons:   body.Surgeons,
		Rooms:      body.Rooms,
		Seed:       body.Seed,
		Params:     body.Params,
	}, export.FormatJSON)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, req orasp.Request, format export.Format) {
	start := time.Now()
	inst, err := orasp.Generate(req)
	s.metrics.Observe(inst, err, time.Since(start))

	if err != nil {
		if errors.Is(err, orasp.ErrInvalidParameter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("instance generation failed")
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	data, err := export.Marshal(inst, format)
	if err != nil {
		s.logger.Error().Err(err).Str("format", string(format)).Msg("encode instance")
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Instance-Id", inst.ID)
	w.Header().Set("X-Instance-Seed", strconv.FormatInt(inst.Seed, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f catalog.Filter
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"operations", &f.Operations},
		{"surgeons", &f.Surgeons},
		{"rooms", &f.Rooms},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", p.name))
			return
		}
		*p.dst = v
	}

	records, err := s.catalog.List(r.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("list catalog")
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCatalogRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("get catalog record")
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
