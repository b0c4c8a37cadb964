package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"eventcal/internal/input"
	"eventcal/internal/llm"
)

// stubClient returns a canned response without any HTTP round trip.
type stubClient struct {
	resp openai.ChatCompletionResponse
	err  error
	last openai.ChatCompletionRequest
}

func (s *stubClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.last = req
	return s.resp, s.err
}

func respWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	stub := &stubClient{resp: respWith("BEGIN:VCALENDAR\nEND:VCALENDAR")}
	e := &Extractor{Client: stub, Model: "gpt-4o"}

	out, err := e.Extract(context.Background(), input.TextPayload("Dinner with Alex tomorrow at 7pm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "VCALENDAR") {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(stub.last.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.last.Messages))
	}
	content := stub.last.Messages[0].Content
	if !strings.Contains(content, "Dinner with Alex tomorrow at 7pm") {
		t.Errorf("literal input missing from prompt: %q", content)
	}
	if !strings.Contains(content, "Europe/Berlin") {
		t.Errorf("instruction block missing from prompt: %q", content)
	}
}

func TestExtractImageBuildsDataURI(t *testing.T) {
	stub := &stubClient{resp: respWith("BEGIN:VCALENDAR\nEND:VCALENDAR")}
	e := &Extractor{Client: stub, Model: "gpt-4o"}

	if _, err := e.Extract(context.Background(), input.ImagePayload(jpegBytes(t))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := stub.last.Messages[0].MultiContent
	if len(parts) != 2 {
		t.Fatalf("expected two content parts, got %d", len(parts))
	}
	if parts[0].Type != openai.ChatMessagePartTypeText || !strings.Contains(parts[0].Text, "picture containing information") {
		t.Errorf("first part is not the image framing text: %+v", parts[0])
	}
	if parts[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Fatalf("second part is not an image_url: %+v", parts[1])
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,") {
		t.Errorf("image URL is not a jpeg data URI: %q", parts[1].ImageURL.URL[:40])
	}
}

func TestExtractNoContent(t *testing.T) {
	cases := []openai.ChatCompletionResponse{
		{}, // no choices
		respWith(""),
		respWith("   \n"),
	}
	for i, resp := range cases {
		e := &Extractor{Client: &stubClient{resp: resp}, Model: "gpt-4o"}
		_, err := e.Extract(context.Background(), input.TextPayload("x"))
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("case %d: want ErrNoContent, got %v", i, err)
		}
	}
}

func TestExtractUpstreamError(t *testing.T) {
	e := &Extractor{Client: &stubClient{err: errors.New("boom")}, Model: "gpt-4o"}
	_, err := e.Extract(context.Background(), input.TextPayload("x"))
	if err == nil || !strings.Contains(err.Error(), "chat completion") {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestExtractEmptyImageRejected(t *testing.T) {
	e := &Extractor{Client: &stubClient{resp: respWith("x")}, Model: "gpt-4o"}
	if _, err := e.Extract(context.Background(), input.ImagePayload(nil)); err == nil {
		t.Fatal("expected error for empty image payload")
	}
}

// TestExtractWireFormat drives the real go-openai client against a stub
// chat-completions endpoint and checks what actually goes over the wire.
func TestExtractWireFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "BEGIN:VCALENDAR\nEND:VCALENDAR"}},
			},
		})
	}))
	defer srv.Close()

	e := &Extractor{Client: llm.NewClient("test-key", srv.URL+"/v1"), Model: "gpt-4o"}
	out, err := e.Extract(context.Background(), input.ImagePayload(jpegBytes(t)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("empty output")
	}
	if !bytes.Contains(body, []byte(`"data:image/jpeg;base64,`)) {
		t.Error("request body does not inline a jpeg data URI")
	}
	if !bytes.Contains(body, []byte(`"image_url"`)) {
		t.Error("request body missing image_url content part")
	}
}

func TestDataURISniffsPNG(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000000000")
	if got := DataURI(png); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("png bytes not tagged as image/png: %q", got[:30])
	}
	if got := DataURI([]byte("not an image at all")); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("fallback MIME is not image/jpeg: %q", got[:30])
	}
}
