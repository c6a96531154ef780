// Package httpapi exposes the voiceprint engine to the enrollment wizard and
// the wake-word handler over JSON/HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voicegate/internal/audio"
	"github.com/lexiqai/voicegate/internal/observability"
	"github.com/lexiqai/voicegate/internal/voiceprint"
)

// maxBodyBytes bounds request bodies: a few base64 takes of several seconds.
const maxBodyBytes = 16 << 20

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// Options configures the API handlers.
type Options struct {
	Engine *voiceprint.Engine

	// Ring holds trailing microphone audio read by the trigger endpoint.
	Ring *audio.RollingBuffer

	// VerifyWindowSeconds is how much trailing audio a trigger verifies.
	VerifyWindowSeconds float64

	// EnrollMinRMS rejects enrollment takes quieter than this.
	EnrollMinRMS float64

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// API serves the /v1 endpoints.
type API struct {
	engine       *voiceprint.Engine
	ring         *audio.RollingBuffer
	verifyWindow float64
	minRMS       float64
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// New creates the API handlers.
func New(opts Options) *API {
	return &API{
		engine:       opts.Engine,
		ring:         opts.Ring,
		verifyWindow: opts.VerifyWindowSeconds,
		minRMS:       opts.EnrollMinRMS,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// Register mounts the endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("GET /v1/voiceprint", a.wrap(a.handleStatus))
	mux.Handle("DELETE /v1/voiceprint", a.wrap(a.handleClear))
	mux.Handle("POST /v1/voiceprint/enroll", a.wrap(a.handleEnroll))
	mux.Handle("POST /v1/voiceprint/verify", a.wrap(a.handleVerify))
	mux.Handle("POST /v1/trigger", a.wrap(a.handleTrigger))
	mux.Handle("POST /v1/rms", a.wrap(a.handleRMS))
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, logger zerolog.Logger)

// wrap attaches a correlation id and a request-scoped logger.
func (a *API) wrap(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger, correlationID := observability.WithCorrelationID(a.logger, r.Header.Get(CorrelationHeader))
		w.Header().Set(CorrelationHeader, correlationID)

		logger = logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		h(w, r, logger)
	})
}

type statusResponse struct {
	Enrolled bool `json:"enrolled"`
}

type enrollRequest struct {
	// Each utterance is base64 PCM16LE, 16 kHz mono.
	Utterances [][]byte `json:"utterances"`
}

type pcmRequest struct {
	PCM []byte `json:"pcm"`
}

type verifyResponse struct {
	Passed     bool    `json:"passed"`
	Similarity float64 `json:"similarity"`
	Enrolled   bool    `json:"enrolled"`
	Frames     int     `json:"frames"`
}

type triggerResponse struct {
	verifyResponse
	Samples int `json:"samples"`
}

type rmsResponse struct {
	RMS float64 `json:"rms"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Index *int     `json:"index,omitempty"`
	RMS   *float64 `json:"rms,omitempty"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request, _ zerolog.Logger) {
	writeJSON(w, http.StatusOK, statusResponse{Enrolled: a.engine.IsEnrolled()})
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) {
	if err := a.engine.Remove(r.Context()); err != nil {
		logger.Error().Err(err).Msg("Voiceprint cleared in memory but record not deleted")
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "voiceprint record could not be deleted"})
		return
	}
	logger.Info().Msg("Voiceprint cleared by request")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleEnroll(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if len(req.Utterances) == 0 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "at least one utterance is required"})
		return
	}

	utterances := make([][]int16, len(req.Utterances))
	for i, raw := range req.Utterances {
		samples, err := audio.BytesToSamples(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Index: &i})
			return
		}
		if audio.IsSilent(samples, a.minRMS) {
			rms := audio.ComputeRMS(samples)
			logger.Info().Int("index", i).Float64("rms", rms).Msg("Rejecting silent enrollment take")
			a.metrics.RecordError("silent_take", "httpapi")
			writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: "utterance is too quiet", Index: &i, RMS: &rms})
			return
		}
		utterances[i] = samples
	}

	err := a.engine.Enroll(r.Context(), utterances)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, voiceprint.ErrNoValidFrames):
		writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg("Enrollment failed")
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "enrollment could not be saved"})
	}
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request, _ zerolog.Logger) {
	samples, ok := decodePCM(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(a.engine.Evaluate(samples)))
}

// handleTrigger verifies the trailing window of live microphone audio. The
// wake-word handler calls it the moment a keyword fires.
func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) {
	if a.ring == nil {
		writeError(w, http.StatusServiceUnavailable, errorResponse{Error: "no microphone buffer configured"})
		return
	}
	samples := a.ring.Read(a.verifyWindow)
	result := a.engine.Evaluate(samples)

	logger.Info().
		Bool("passed", result.Passed).
		Float64("similarity", result.Similarity).
		Int("samples", len(samples)).
		Msg("Trigger verified")

	writeJSON(w, http.StatusOK, triggerResponse{
		verifyResponse: toVerifyResponse(result),
		Samples:        len(samples),
	})
}

func (a *API) handleRMS(w http.ResponseWriter, r *http.Request, _ zerolog.Logger) {
	samples, ok := decodePCM(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rmsResponse{RMS: voiceprint.ComputeRMS(samples)})
}

func decodePCM(w http.ResponseWriter, r *http.Request) ([]int16, bool) {
	var req pcmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return nil, false
	}
	samples, err := audio.BytesToSamples(req.PCM)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return samples, true
}

func toVerifyResponse(r voiceprint.Result) verifyResponse {
	return verifyResponse{
		Passed:     r.Passed,
		Similarity: r.Similarity,
		Enrolled:   r.Enrolled,
		Frames:     r.Frames,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	writeJSON(w, status, resp)
}
