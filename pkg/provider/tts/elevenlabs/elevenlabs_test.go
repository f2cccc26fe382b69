package elevenlabs_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VamshiS123/visionv/pkg/provider/tts"
	"github.com/VamshiS123/visionv/pkg/provider/tts/elevenlabs"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := elevenlabs.New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
	if _, err := elevenlabs.New("xi-key"); err != nil {
		t.Errorf("New with key: %v", err)
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotQuery string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("xi-api-key")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte("pcm-audio-bytes"))
	}))
	defer srv.Close()

	p, err := elevenlabs.New("xi-test", elevenlabs.WithBaseURL(srv.URL), elevenlabs.WithModel("eleven_flash_v2_5"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Synthesize(context.Background(), tts.Request{
		Text: "a person at the door",
		Voice: tts.Voice{
			ID:         "narrator-1",
			SampleRate: 16000,
			Rate:       1.1,
		},
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	audio, err := res.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(audio) != "pcm-audio-bytes" {
		t.Errorf("audio = %q", audio)
	}

	if gotPath != "/v1/text-to-speech/narrator-1/stream" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "xi-test" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if !strings.Contains(gotQuery, "output_format=pcm_16000") {
		t.Errorf("query = %q, want pcm_16000 output format", gotQuery)
	}
	if gotBody["text"] != "a person at the door" {
		t.Errorf("body text = %v", gotBody["text"])
	}
	if gotBody["model_id"] != "eleven_flash_v2_5" {
		t.Errorf("body model_id = %v", gotBody["model_id"])
	}
}

func TestSynthesizeRejectsBadInput(t *testing.T) {
	t.Parallel()

	p, err := elevenlabs.New("xi-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Synthesize(context.Background(), tts.Request{Voice: tts.Voice{ID: "v"}}); err == nil {
		t.Error("empty text should fail")
	}
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"}); err == nil {
		t.Error("empty voice ID should fail")
	}
}

func TestSynthesizeNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := elevenlabs.New("xi-test", elevenlabs.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Synthesize(context.Background(), tts.Request{
		Text:  "hello",
		Voice: tts.Voice{ID: "v"},
	}); err == nil {
		t.Error("non-200 response should be a synthesis failure")
	}
}
