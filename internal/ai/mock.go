package ai

import (
	"context"
	"errors"
	"io"
	"math/big"
	"os"
	"strings"
	"time"
)

const (
	tokenDuration   = 320 * time.Millisecond
	mockConfidence  = 0.92
	silenceToken    = "(silence)"
	defaultCadence  = 30 * time.Millisecond
	sampleMissing   = "SAMPLE_VIDEO_MISSING"
	invalidFrameID  = "INVALID_FRAME_ID"
	videoWriteError = "VIDEO_WRITE_FAILED"
)

var cannedTranscripts = []string{
	"hello this is a placeholder response",
	"streaming sign language translation in progress",
	"mock response while the real model is being integrated",
}

// VideoWriter persists generated videos.
type VideoWriter interface {
	Save(name string, r io.Reader) error
}

// MockClient returns deterministic output so clients can be built against
// the API before the models exist.
type MockClient struct {
	sampleVideo string
	videos      VideoWriter
	cadence     time.Duration
	now         func() time.Time
}

var _ Client = (*MockClient)(nil)

// MockOption customises the mock.
type MockOption func(*MockClient)

// WithCadence sets the pause between streamed chunks.
func WithCadence(d time.Duration) MockOption {
	return func(m *MockClient) { m.cadence = d }
}

// NewMockClient serves sampleVideo for every text-to-sign request.
func NewMockClient(sampleVideo string, videos VideoWriter, opts ...MockOption) *MockClient {
	m := &MockClient{sampleVideo: sampleVideo, videos: videos, cadence: defaultCadence, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TranslateTextToSign copies the sample video under the request id.
func (m *MockClient) TranslateTextToSign(ctx context.Context, req TextToSignRequest) (TextToSignResult, error) {
	start := m.now()

	src, err := os.Open(m.sampleVideo)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TextToSignResult{}, &ClientError{
				Code:    sampleMissing,
				Message: "Sample video not found for mock AI client.",
				Details: map[string]any{"expected_path": m.sampleVideo},
			}
		}
		return TextToSignResult{}, err
	}
	defer src.Close()

	if err := ctx.Err(); err != nil {
		return TextToSignResult{}, err
	}

	name := req.RequestID + ".mp4"
	if err := m.videos.Save(name, src); err != nil {
		return TextToSignResult{}, &ClientError{
			Code:    videoWriteError,
			Message: "Could not store generated video.",
			Details: map[string]any{"error": err.Error()},
		}
	}

	return TextToSignResult{
		RequestID: req.RequestID,
		Tokens:    tokenTimings(req.Text, 0),
		VideoName: name,
		Latency:   m.now().Sub(start),
	}, nil
}

// TranslateSignToTextStream streams one canned transcript chosen by frame id.
func (m *MockClient) TranslateSignToTextStream(ctx context.Context, frame Frame, _ []byte, yield func(StreamChunk) error) error {
	transcript, err := pickTranscript(frame.FrameID)
	if err != nil {
		return err
	}

	timings := tokenTimings(transcript, frame.TimestampMS)
	for i, timing := range timings {
		final := i == len(timings)-1
		chunk := StreamChunk{
			Type:       ChunkType,
			RequestID:  frame.RequestID,
			FrameID:    frame.FrameID,
			Token:      timing.Token,
			Confidence: timing.Confidence,
			StartMS:    timing.StartMS,
			EndMS:      timing.EndMS,
			IsFinal:    final,
			TimingInfo: map[string]any{"latency_ms": m.cadence.Milliseconds()},
		}
		if final {
			chunk.Transcript = transcript
		}
		if err := yield(chunk); err != nil {
			return err
		}
		if final || m.cadence <= 0 {
			continue
		}

		timer := time.NewTimer(m.cadence)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func pickTranscript(frameID string) (string, error) {
	n, ok := new(big.Int).SetString(frameID, 16)
	if !ok {
		return "", &ClientError{
			Code:    invalidFrameID,
			Message: "Frame id must be hexadecimal.",
			Details: map[string]any{"frame_id": frameID},
		}
	}
	idx := new(big.Int).Mod(n, big.NewInt(int64(len(cannedTranscripts)))).Int64()
	return cannedTranscripts[idx], nil
}

func tokenTimings(text string, startMS int64) []TokenTiming {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		tokens = []string{silenceToken}
	}
	step := tokenDuration.Milliseconds()
	timings := make([]TokenTiming, 0, len(tokens))
	for i, token := range tokens {
		start := startMS + int64(i)*step
		timings = append(timings, TokenTiming{
			Token:      token,
			Confidence: mockConfidence,
			StartMS:    start,
			EndMS:      start + step,
		})
	}
	return timings
}
