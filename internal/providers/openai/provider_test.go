package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewProvider(Config{
		APIKey:     "test-key",
		APIBaseURL: server.URL,
	}, zap.NewNop().Sugar())
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "audio/transcriptions")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "  hello world  "}`))
	})

	text, err := provider.Transcribe(context.Background(), []byte("wav"))
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestTranscribeNoSpeechSentinel(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "[NO_SPEECH]"}`))
	})

	_, err := provider.Transcribe(context.Background(), []byte("wav"))
	require.ErrorIs(t, err, ErrNoSpeech)
}

func TestTranscribeEmptyResponse(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "   "}`))
	})

	_, err := provider.Transcribe(context.Background(), []byte("wav"))
	require.ErrorIs(t, err, ErrEmptyTranscription)
}

func TestAnswerQuestion(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "responses")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"status": "completed",
			"output": [
				{
					"type": "message",
					"id": "msg_1",
					"role": "assistant",
					"status": "completed",
					"content": [{"type": "output_text", "text": "Paris", "annotations": []}]
				}
			]
		}`))
	})

	answer, err := provider.AnswerQuestion(context.Background(), "hey what is the capital of France")
	require.NoError(t, err)
	require.Equal(t, "Paris", answer)
}

func TestTranscribeRequestFailure(t *testing.T) {
	t.Parallel()

	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "invalid audio"}}`, http.StatusBadRequest)
	})

	_, err := provider.Transcribe(context.Background(), []byte("wav"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoSpeech))
}
