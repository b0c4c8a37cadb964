// Package extract turns an input payload into iCalendar text by a single
// stateless chat-completion round trip. No retries, no streaming, no
// multi-turn context.
package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"eventcal/internal/input"
	"eventcal/internal/llm"
	"eventcal/internal/prompt"
)

// ErrNoContent is returned when the model call succeeds but carries no
// usable message content.
var ErrNoContent = errors.New("extract: no response content")

const defaultTimeout = 120 * time.Second

// Extractor performs the LLM extraction call.
type Extractor struct {
	Client llm.Client
	Model  string

	// Timeout bounds a single chat-completion round trip. If zero, a
	// default of 120s is applied.
	Timeout time.Duration
}

// Extract sends the payload with the composed instruction block and
// returns the raw model output. The prompt date always reflects the
// actual invocation time.
func (e *Extractor) Extract(ctx context.Context, p input.Payload) (string, error) {
	if e.Client == nil || e.Model == "" {
		return "", errors.New("extract: client not configured")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := buildMessage(time.Now(), p)
	if err != nil {
		return "", err
	}

	log.Debug().Str("model", e.Model).Str("modality", modality(p)).Msg("extraction request")

	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    e.Model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", fmt.Errorf("extract: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoContent
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrNoContent
	}

	log.Debug().Int("content_len", len(content)).Msg("extraction response")
	return content, nil
}

// buildMessage composes the outbound user message: a single text block
// for text payloads, or a two-part content list (instructions + inlined
// base64 data URI) for image payloads.
func buildMessage(now time.Time, p input.Payload) (openai.ChatCompletionMessage, error) {
	switch p.Kind {
	case input.KindText:
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.ForText(now, p.Text),
		}, nil

	case input.KindImage:
		if len(p.Image) == 0 {
			return openai.ChatCompletionMessage{}, errors.New("extract: empty image payload")
		}
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: prompt.ForImage(now),
				},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: DataURI(p.Image),
					},
				},
			},
		}, nil

	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("extract: unknown payload kind %d", p.Kind)
	}
}

// DataURI encodes image bytes as a MIME-tagged base64 data URI. The MIME
// type is sniffed from the bytes; anything that does not look like an
// image falls back to image/jpeg, matching the screenshot pipeline.
func DataURI(img []byte) string {
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img))
}

func modality(p input.Payload) string {
	if p.Kind == input.KindImage {
		return "image"
	}
	return "text"
}
