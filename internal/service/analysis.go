package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deniz/checklens/internal/domain"
	"github.com/deniz/checklens/internal/imaging"
	"github.com/deniz/checklens/internal/llm"
	"github.com/deniz/checklens/internal/logger"
	"github.com/deniz/checklens/internal/ocr"
	"github.com/deniz/checklens/internal/progress"
	"github.com/deniz/checklens/internal/prompts"
	"github.com/deniz/checklens/internal/repository"
	"github.com/deniz/checklens/internal/storage"
)

// Pipeline phases. Progress percentage is derived from the phase number.
const (
	phaseValidate = 1
	phaseOCR      = 2
	phaseCombine  = 3
	phasePrompt   = 4
	phaseModels   = 5
	phaseFinalize = 6
)

// PipelineError is a pipeline failure carrying the HTTP status the API
// layer should respond with.
type PipelineError struct {
	Code    int
	Message string
}

func (e *PipelineError) Error() string {
	return e.Message
}

func validationErr(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// AnalysisRequest carries one check image through the pipeline.
type AnalysisRequest struct {
	Image       []byte
	ContentType string
	// Models to fan out to. Must be non-empty.
	Models []string
	// EndpointOverride optionally redirects model calls away from the
	// configured base URL for this request only.
	EndpointOverride string
}

// AnalysisService orchestrates the check analysis pipeline: image
// validation and preprocessing, OCR fan-out, prompt assembly, model
// fan-out, and finalization. Repository and object storage are optional;
// when configured, finished analyses are archived best-effort.
type AnalysisService struct {
	store     *progress.Store
	llm       *llm.Client
	engines   []ocr.Engine
	template  string
	extraDeny []string
	repo      *repository.AnalysisRepository
	objects   storage.ObjectStorage
}

// NewAnalysisService creates the orchestrator.
// Parameters:
//   - store: progress store sessions are tracked in.
//   - client: model-serving client.
//   - engines: OCR engines to fan out to; at least one.
//   - template: prompt template containing the OCR text placeholder.
//   - extraDeny: extra model denylist entries from configuration.
//   - repo: analysis archive, nil to disable.
//   - objects: check image archive, nil to disable.
func NewAnalysisService(
	store *progress.Store,
	client *llm.Client,
	engines []ocr.Engine,
	template string,
	extraDeny []string,
	repo *repository.AnalysisRepository,
	objects storage.ObjectStorage,
) *AnalysisService {
	if template == "" {
		template = prompts.CheckAnalysisPrompt
	}
	return &AnalysisService{
		store:     store,
		llm:       client,
		engines:   engines,
		template:  template,
		extraDeny: extraDeny,
		repo:      repo,
		objects:   objects,
	}
}

// Store exposes the progress store for the API layer.
func (s *AnalysisService) Store() *progress.Store {
	return s.store
}

// AnalyzeSync runs the full pipeline inline and returns the finished
// session. The returned error, when non-nil, is a *PipelineError carrying
// the HTTP status to respond with; the session still records it.
func (s *AnalysisService) AnalyzeSync(ctx context.Context, req *AnalysisRequest) (*domain.Session, error) {
	tracker, err := progress.NewTracker(s.store, uuid.New().String())
	if err != nil {
		return nil, &PipelineError{Code: http.StatusInternalServerError, Message: err.Error()}
	}

	runErr := s.run(ctx, tracker, req)

	sess, _ := s.store.Snapshot(tracker.SessionID())
	return sess, runErr
}

// AnalyzeAsync starts the pipeline in the background and returns the
// session id immediately. Validation that can fail fast (empty model list,
// undecodable image) still happens inline so the caller gets a 400 instead
// of a session that dies on its first phase.
func (s *AnalysisService) AnalyzeAsync(ctx context.Context, req *AnalysisRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}

	tracker, err := progress.NewTracker(s.store, uuid.New().String())
	if err != nil {
		return "", &PipelineError{Code: http.StatusInternalServerError, Message: err.Error()}
	}

	// Detach from the request context: the HTTP request returns before the
	// pipeline finishes.
	bg := logger.FromContext(ctx).WithContext(context.Background())
	go func() {
		_ = s.run(bg, tracker, req)
	}()

	return tracker.SessionID(), nil
}

// validate performs the fast-fail request checks shared by both entry
// points.
func (s *AnalysisService) validate(req *AnalysisRequest) *PipelineError {
	if len(req.Image) == 0 {
		return validationErr("image is empty")
	}
	if len(req.Models) == 0 {
		return validationErr("at least one model is required")
	}
	if len(s.engines) == 0 {
		return &PipelineError{Code: http.StatusInternalServerError, Message: "no OCR engines configured"}
	}
	return nil
}

// run executes all six phases against the tracker's session. Any error or
// panic is recorded on the session before being returned, so the session
// always reaches a terminal state.
func (s *AnalysisService) run(ctx context.Context, tracker *progress.Tracker, req *AnalysisRequest) (err error) {
	log := logger.FromContext(ctx).WithField(logger.FieldSessionID, tracker.SessionID())

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected error: %v", r)
			log.Error(msg)
			tracker.SetError(msg)
			err = &PipelineError{Code: http.StatusInternalServerError, Message: msg}
		}
	}()

	phase := phaseValidate
	fail := func(perr *PipelineError) error {
		tracker.Update(phase, domain.StatusError, perr.Message, nil)
		tracker.SetError(perr.Message)
		log.WithField(logger.FieldStatus, "error").Error(perr.Message)
		return perr
	}

	if perr := s.validate(req); perr != nil {
		return fail(perr)
	}

	// Phase 1: validation and preprocessing
	tracker.Update(phaseValidate, domain.StatusProcessing, "Validating and preprocessing image...", map[string]interface{}{
		"size_bytes": len(req.Image),
	})
	prepared, perr := imaging.Preprocess(req.Image)
	if perr != nil {
		return fail(validationErr("invalid image: %v", perr))
	}
	tracker.Update(phaseValidate, domain.StatusSuccess, "Image validated", nil)

	// Phase 2: OCR fan-out
	phase = phaseOCR
	tracker.Update(phaseOCR, domain.StatusProcessing,
		fmt.Sprintf("Extracting text with %d OCR engines...", len(s.engines)), nil)
	ocrResults := ocr.RunAll(ctx, s.engines, prepared, func(status, message string) {
		tracker.Update(phaseOCR, domain.SessionStatus(status), message, nil)
	})

	// Phase 3: combine engine outputs
	phase = phaseCombine
	tracker.Update(phaseCombine, domain.StatusProcessing, "Combining OCR results...", nil)
	combined := ocr.Combine(ocrResults)
	if combined == "" {
		return fail(&PipelineError{
			Code:    http.StatusUnprocessableEntity,
			Message: "No text could be extracted from the image",
		})
	}
	tracker.Update(phaseCombine, domain.StatusSuccess,
		fmt.Sprintf("Combined OCR text: %d characters", len(combined)), nil)

	// Phase 4: prompt assembly
	phase = phasePrompt
	tracker.Update(phasePrompt, domain.StatusProcessing, "Preparing analysis prompt...", nil)
	prompt := prompts.Build(s.template, combined)
	tracker.Update(phasePrompt, domain.StatusSuccess, "Prompt ready", map[string]interface{}{
		"prompt_length": len(prompt),
	})

	// Phase 5: model fan-out
	phase = phaseModels
	baseURL := s.llm.ResolveBaseURL(req.EndpointOverride)
	tracker.Update(phaseModels, domain.StatusProcessing,
		fmt.Sprintf("Analyzing with %d models...", len(req.Models)), nil)
	analyses := s.llm.AnalyzeAll(ctx, baseURL, req.Models, prompt, s.extraDeny, func(status, message string, details map[string]interface{}) {
		tracker.Update(phaseModels, domain.SessionStatus(status), message, details)
	})

	succeeded := 0
	for _, a := range analyses {
		if a.Error == nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		return fail(&PipelineError{
			Code:    http.StatusServiceUnavailable,
			Message: "All models failed to produce an analysis",
		})
	}

	// Phase 6: finalize
	phase = phaseFinalize
	tracker.Update(phaseFinalize, domain.StatusProcessing, "Finalizing results...", nil)

	result := &domain.Result{
		RawOCR:         rawOCRMap(ocrResults),
		Analyses:       analyses,
		ProcessingTime: tracker.Elapsed(),
		SuccessRate:    fmt.Sprintf("%d/%d", succeeded, len(analyses)),
	}
	result.ImageURL = s.archiveImage(ctx, tracker.SessionID(), req, log)

	tracker.Update(phaseFinalize, domain.StatusSuccess, "Analysis complete", map[string]interface{}{
		"success_rate": result.SuccessRate,
	})
	tracker.SetResult(result)

	s.archiveRecord(ctx, tracker.SessionID(), result, len(combined), req.Models, log)

	log.WithFields(logger.Fields{
		logger.FieldDurationMs: int64(result.ProcessingTime * 1000),
		"success_rate":         result.SuccessRate,
	}).Info("analysis finished")
	return nil
}

// archiveImage uploads the original check image to object storage.
// Best-effort: failures are logged, never fail the pipeline.
func (s *AnalysisService) archiveImage(ctx context.Context, sessionID string, req *AnalysisRequest, log *logger.Logger) string {
	if s.objects == nil {
		return ""
	}

	key := storage.CheckImageKey(sessionID, extForContentType(req.ContentType))
	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.objects.Upload(uploadCtx, key, bytes.NewReader(req.Image), int64(len(req.Image)), req.ContentType); err != nil {
		log.WithError(err).Warn("failed to archive check image")
		return ""
	}
	return s.objects.GetURL(key)
}

// archiveRecord persists the finished analysis to the database.
// Best-effort like archiveImage.
func (s *AnalysisService) archiveRecord(ctx context.Context, sessionID string, result *domain.Result, textLength int, models []string, log *logger.Logger) {
	if s.repo == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Warn("failed to marshal analysis record")
		return
	}

	modelNames, _ := json.Marshal(models)
	record := &domain.AnalysisRecord{
		SessionID:      sessionID,
		Models:         string(modelNames),
		SuccessRate:    result.SuccessRate,
		TextLength:     textLength,
		ProcessingTime: result.ProcessingTime,
		ImageURL:       result.ImageURL,
		ResultJSON:     string(payload),
	}

	saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.repo.Save(saveCtx, record); err != nil {
		log.WithError(err).Warn("failed to archive analysis record")
	}
}

func rawOCRMap(results []ocr.EngineResult) map[string]*string {
	out := make(map[string]*string, len(results))
	for _, r := range results {
		out[r.Engine] = r.Text
	}
	return out
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
