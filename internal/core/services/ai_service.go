package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"dimos-fixit/internal/adapters/vision"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/domain"

	"go.uber.org/zap"
)

// AIService proxies photo analysis to the optional vision service
type AIService struct {
	analyzer vision.Analyzer
	cfg      config.UploadConfig
	log      *zap.SugaredLogger
}

// NewAIService creates a new AI service; a nil analyzer always yields empty suggestions
func NewAIService(analyzer vision.Analyzer, cfg config.UploadConfig, log *zap.SugaredLogger) *AIService {
	return &AIService{analyzer: analyzer, cfg: cfg, log: log}
}

// Analyze suggests category and priority for an image. Service failures are
// not errors: the caller gets empty suggestions instead.
func (s *AIService) Analyze(ctx context.Context, actor domain.Actor, fh *multipart.FileHeader) (*vision.Analysis, error) {
	if err := domain.Authorize(actor, domain.ResourceAIAnalysis, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}
	if fh == nil {
		return nil, domain.FieldError("image", "image is required")
	}
	if fh.Size > int64(s.cfg.MaxUploadSize) {
		return nil, domain.FieldError("image", "image exceeds the maximum upload size")
	}

	contentType, err := sniff(fh)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if _, ok := photoExtensions[contentType]; !ok {
		return nil, domain.FieldError("image", "image must be a JPEG, PNG or WebP file")
	}

	if s.analyzer == nil {
		return vision.Empty(), nil
	}

	data, err := readAll(fh)
	if err != nil {
		return nil, domain.Internal(err)
	}

	analysis, err := s.analyzer.Analyze(ctx, data, fh.Filename, contentType)
	if err != nil {
		if !errors.Is(err, vision.ErrDisabled) {
			s.log.Warnw("vision analysis failed", "error", err, "by", actor.ID)
		}
		return vision.Empty(), nil
	}
	return analysis, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
