// Package ai defines the contract with the translation models and a
// deterministic mock used until the models are served.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenTiming is one recognised or rendered token.
type TokenTiming struct {
	Token      string  `json:"token"`
	Confidence float64 `json:"confidence"`
	StartMS    int64   `json:"start_ms"`
	EndMS      int64   `json:"end_ms"`
}

// TextToSignRequest asks for a sign video for text.
type TextToSignRequest struct {
	RequestID    string         `json:"request_id"`
	Text         string         `json:"text"`
	LanguageCode string         `json:"language_code"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TextToSignResult describes a generated video.
type TextToSignResult struct {
	RequestID string        `json:"request_id"`
	Tokens    []TokenTiming `json:"tokens"`
	VideoName string        `json:"video_name"`
	Latency   time.Duration `json:"-"`
}

// Frame carries the metadata for one video frame sent for recognition.
type Frame struct {
	RequestID   string         `json:"request_id"`
	FrameID     string         `json:"frame_id"`
	TimestampMS int64          `json:"timestamp_ms"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// StreamChunk is one streamed recognition result.
type StreamChunk struct {
	Type       string         `json:"type"`
	RequestID  string         `json:"request_id"`
	FrameID    string         `json:"frame_id"`
	Token      string         `json:"token"`
	Confidence float64        `json:"confidence"`
	StartMS    int64          `json:"start_ms"`
	EndMS      int64          `json:"end_ms"`
	Transcript string         `json:"transcript,omitempty"`
	IsFinal    bool           `json:"is_final"`
	TimingInfo map[string]any `json:"timing_info"`
}

// ChunkType tags stream chunks on the wire.
const ChunkType = "transcript_chunk"

// Client talks to the translation models.
type Client interface {
	TranslateTextToSign(ctx context.Context, req TextToSignRequest) (TextToSignResult, error)
	// TranslateSignToTextStream calls yield for each chunk in order. A yield
	// error stops the stream and is returned.
	TranslateSignToTextStream(ctx context.Context, frame Frame, data []byte, yield func(StreamChunk) error) error
}

// ClientError is the error envelope shared with the model service.
type ClientError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTextToSignRequest builds a request envelope with a fresh id.
func NewTextToSignRequest(requestID, text, languageCode string) TextToSignRequest {
	if requestID == "" {
		requestID = hexID()
	}
	return TextToSignRequest{RequestID: requestID, Text: text, LanguageCode: languageCode, Metadata: map[string]any{}}
}

// NewFrame builds frame metadata stamped with now.
func NewFrame(contentType string, now time.Time) Frame {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return Frame{
		RequestID:   hexID(),
		FrameID:     hexID(),
		TimestampMS: now.UnixMilli(),
		ContentType: contentType,
		Metadata:    map[string]any{},
	}
}

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
