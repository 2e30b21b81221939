package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mishel123hanna/sign-language/internal/ai"
	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/domain"
	"github.com/mishel123hanna/sign-language/internal/repository"
	"github.com/mishel123hanna/sign-language/internal/video"
)

const (
	defaultLanguage     = "ar"
	liveVideoInput      = "live_video"
	historyWriteTimeout = 5 * time.Second
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	videoURLPrefix      = "/static/videos/"
)

// VideoLocator resolves stored video names to paths.
type VideoLocator interface {
	Path(name string) (string, error)
}

// TranslationService runs translations and keeps the user's history.
type TranslationService struct {
	instrumented

	ai        ai.Client
	videos    VideoLocator
	users     repository.UserRepository
	history   repository.HistoryRepository
	signs     repository.SignRepository
	snowflake *snowflake.Node
	cfg       config.Config
	now       func() time.Time

	mu       sync.Mutex
	draining bool
	pending  sync.WaitGroup
}

// NewTranslationService wires dependencies.
func NewTranslationService(client ai.Client, videos VideoLocator, users repository.UserRepository, history repository.HistoryRepository, signs repository.SignRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *TranslationService {
	return &TranslationService{
		instrumented: newInstrumented(logger),
		ai:           client,
		videos:       videos,
		users:        users,
		history:      history,
		signs:        signs,
		snowflake:    node,
		cfg:          cfg,
		now:          time.Now,
	}
}

// GenerateVideo renders text as a sign video. History is written in the
// background and never fails the request.
func (s *TranslationService) GenerateVideo(ctx context.Context, userID int64, text, languageCode string) (*GenerateVideoResponse, error) {
	ctx, span := s.startSpan(ctx, "TranslationService.GenerateVideo")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errBadRequest("Text input cannot be empty")
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxTextLength {
		return nil, errBadRequest(fmt.Sprintf("Text too long. Maximum %d characters allowed.", s.cfg.MaxTextLength))
	}
	if languageCode = strings.TrimSpace(languageCode); languageCode == "" {
		languageCode = defaultLanguage
	}

	result, err := s.ai.TranslateTextToSign(ctx, ai.NewTextToSignRequest(video.NewRequestID(), text, languageCode))
	if err != nil {
		span.RecordError(err)
		var clientErr *ai.ClientError
		if errors.As(err, &clientErr) {
			s.log().Error("text to sign failed", zap.String("code", clientErr.Code), zap.Any("details", clientErr.Details))
			return nil, newAPIError("ai_error", clientErr.Message, http.StatusInternalServerError)
		}
		return nil, errInternal("Video generation failed")
	}

	s.recordAsync(domain.TranslationHistory{
		UserID:          userID,
		TranslationType: domain.TranslationTextToSign,
		InputContent:    languageCode + ":" + text,
		OutputContent:   result.VideoName,
	})

	s.audit("translation.text_to_sign", "user_id", userID, "video", result.VideoName, "latency_ms", result.Latency.Milliseconds())
	return &GenerateVideoResponse{
		VideoFilename: result.VideoName,
		VideoURL:      videoURLPrefix + result.VideoName,
		Message:       "Video generated successfully",
	}, nil
}

// VideoPath resolves a download request to a file on disk.
func (s *TranslationService) VideoPath(name string) (string, error) {
	path, err := s.videos.Path(name)
	switch {
	case errors.Is(err, video.ErrInvalidName):
		return "", errBadRequest("Invalid filename")
	case errors.Is(err, video.ErrNotFound):
		return "", newAPIError("not_found", "Video not found", http.StatusNotFound)
	case err != nil:
		return "", errInternal("Could not read video")
	}
	return path, nil
}

// History returns a page of the user's translations, newest first.
func (s *TranslationService) History(ctx context.Context, userID int64, limit, offset int) (*HistoryResponse, error) {
	ctx, span := s.startSpan(ctx, "TranslationService.History")
	defer span.End()

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newAPIError("not_found", "User not found", http.StatusNotFound)
		}
		return nil, errInternal("Could not load user")
	}

	entries, total, err := s.history.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, errInternal("Error retrieving history")
	}
	if entries == nil {
		entries = []domain.TranslationHistory{}
	}
	return &HistoryResponse{UserID: user.ID, Username: user.Username, History: entries, TotalCount: total}, nil
}

// AvailableSigns lists the catalogue for a language.
func (s *TranslationService) AvailableSigns(ctx context.Context, languageCode string) (*SignsResponse, error) {
	ctx, span := s.startSpan(ctx, "TranslationService.AvailableSigns")
	defer span.End()

	if languageCode = strings.TrimSpace(languageCode); languageCode == "" {
		languageCode = defaultLanguage
	}
	signs, err := s.signs.ListByLanguage(ctx, languageCode)
	if err != nil {
		span.RecordError(err)
		return nil, errInternal("Error retrieving signs")
	}
	if signs == nil {
		signs = []domain.SignGesture{}
	}
	return &SignsResponse{LanguageCode: languageCode, AvailableSigns: signs}, nil
}

// StreamFrame sends one frame for recognition and forwards each chunk to
// yield. The final transcript is added to the user's history.
func (s *TranslationService) StreamFrame(ctx context.Context, userID int64, data []byte, contentType string, yield func(ai.StreamChunk) error) error {
	ctx, span := s.startSpan(ctx, "TranslationService.StreamFrame")
	defer span.End()

	frame := ai.NewFrame(contentType, s.now())
	return s.ai.TranslateSignToTextStream(ctx, frame, data, func(chunk ai.StreamChunk) error {
		if err := yield(chunk); err != nil {
			return err
		}
		if chunk.IsFinal && chunk.Transcript != "" {
			s.recordAsync(domain.TranslationHistory{
				UserID:          userID,
				TranslationType: domain.TranslationSignToText,
				InputContent:    liveVideoInput,
				OutputContent:   chunk.Transcript,
			})
		}
		return nil
	})
}

// Wait blocks until background history writes finish. New writes are
// still accepted.
func (s *TranslationService) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Wait()
}

// Drain stops accepting history writes and waits for the pending ones.
func (s *TranslationService) Drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.pending.Wait()
}

func (s *TranslationService) recordAsync(entry domain.TranslationHistory) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		s.log().Warn("drop translation history during shutdown",
			zap.Int64("user_id", entry.UserID),
			zap.String("type", entry.TranslationType),
		)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	entry.ID = s.snowflake.Generate().Int64()
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
		defer cancel()
		if _, err := s.history.Create(ctx, entry); err != nil {
			s.log().Warn("save translation history",
				zap.Int64("user_id", entry.UserID),
				zap.String("type", entry.TranslationType),
				zap.Error(err),
			)
		}
	}()
}
