package openai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/ict-ryuma/document-ocr/internal/llm"
)

const (
	visionMaxTokens     = 10000
	completionMaxTokens = 3000
	// Temperature 0 is dropped by omitempty, so the smallest float stands in for it.
	visionTemperature     = math.SmallestNonzeroFloat32
	completionTemperature = 0.2
)

// ExtractFromImage sends one rendered estimate page to the vision deployment.
func (c *Client) ExtractFromImage(ctx context.Context, dataURL string) (llm.EstimateFields, []byte, error) {
	req := goopenai.ChatCompletionRequest{
		Model:          c.cfg.Deployment,
		Temperature:    visionTemperature,
		MaxTokens:      visionMaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.VisionSystemPrompt()},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: llm.VisionUserPrompt()},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: goopenai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}
	return c.chatJSON(ctx, "vision", req, llm.BuildEstimateJSONSchema())
}

// Complete runs the semantic-completion pass over a structured extraction.
func (c *Client) Complete(ctx context.Context, raw llm.EstimateFields) (llm.EstimateFields, []byte, error) {
	req := goopenai.ChatCompletionRequest{
		Model:          c.cfg.Deployment,
		Temperature:    completionTemperature,
		MaxTokens:      completionMaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.CompletionSystemPrompt()},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.CompletionUserPrompt(raw)},
		},
	}
	return c.chatJSON(ctx, "completion", req, llm.BuildCompletionJSONSchema())
}

func (c *Client) chatJSON(ctx context.Context, kind string, req goopenai.ChatCompletionRequest, schema map[string]any) (llm.EstimateFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"kind", kind,
		"deployment", c.cfg.Deployment,
		"max_tokens", req.MaxTokens,
	)

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "kind", kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.EstimateFields{}, nil, err
	}
	if len(resp.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "kind", kind,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.EstimateFields{}, nil, fmt.Errorf("no choices in %s response", kind)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	out, raw, touched, err := llm.DecodeEstimate(content, schema)
	if err != nil {
		c.log.Error("llm.extract.decode_failed",
			"req_id", rid, "kind", kind, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.EstimateFields{}, raw, err
	}
	if len(touched) > 0 {
		c.log.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "kind", kind, "touched", touched,
		)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"kind", kind,
		"vendor", out.VendorName,
		"items", len(out.Items),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}
