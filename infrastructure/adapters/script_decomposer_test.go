package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
)

func writeChunk(t *testing.T, w http.ResponseWriter, flusher http.Flusher, content string) {
	t.Helper()
	var chunk chatChunkBody
	chunk.Choices = make([]chatResponseChoice, 1)
	chunk.Choices[0].Delta.Content = content
	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatal("failed to marshal chunk:", err)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func TestLlmScriptDecomposerAccumulatesStream(t *testing.T) {
	var gotReq chatRequest
	var served atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The client reconnects after the stream ends; only the first
		// request carries the assertions.
		if !served.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer does not support flushing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeChunk(t, w, flusher, `{"overview":"a knight`)
		writeChunk(t, w, flusher, ` rides at dawn"}`)
		fmt.Fprintf(w, "data: %s\n\n", DoneSignal)
		flusher.Flush()
	}))
	defer server.Close()

	decomposer := NewLlmScriptDecomposer(&config.LlmConfig{
		ApiUrl: server.URL,
		ApiKey: "test-key",
		Model:  "test-model",
	}, nopLogger{})

	completion, err := decomposer.Decompose(context.Background(), outbound.DecomposeScriptParams{
		SystemInstructions: "split the draft into scenes",
		UserContent:        "a knight rides at dawn",
	})
	if err != nil {
		t.Fatal("decompose failed:", err)
	}
	if completion != `{"overview":"a knight rides at dawn"}` {
		t.Fatal("unexpected completion:", completion)
	}
	if !gotReq.Stream {
		t.Fatal("expected a streaming request")
	}
	if gotReq.Model != "test-model" {
		t.Fatal("model not forwarded, got", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected message layout: %+v", gotReq.Messages)
	}
}

func TestLlmScriptDecomposerStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	decomposer := NewLlmScriptDecomposer(&config.LlmConfig{
		ApiUrl: server.URL,
		ApiKey: "test-key",
		Model:  "test-model",
	}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := decomposer.Decompose(ctx, outbound.DecomposeScriptParams{
		SystemInstructions: "split the draft into scenes",
		UserContent:        "a knight rides at dawn",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected a cancellation error, got", err)
	}
}
