package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/gotlm"
)

// OpenAIProvider translates through the OpenAI chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string  // default "gpt-4o-mini"
	Temperature float32 // default 0.3
	BaseURL     string  // for OpenAI-compatible endpoints
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate sends all texts in one chat completion and maps each source
// text to the translation at the same index.
func (p *OpenAIProvider) Translate(ctx context.Context, req gotlm.TranslateRequest) (map[string]string, error) {
	if len(req.Texts) == 0 {
		return map[string]string{}, nil
	}

	input, err := json.Marshal(req.Texts)
	if err != nil {
		return nil, &gotlm.ProviderError{Message: "encoding request", Cause: err}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: string(input)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &gotlm.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}
	if len(resp.Choices) == 0 {
		return nil, &gotlm.ProviderError{Message: "no response from OpenAI", Retryable: true}
	}

	translated, err := parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(req.Texts))
	for i, text := range req.Texts {
		out[text] = translated[i]
	}
	return out, nil
}

func (p *OpenAIProvider) buildSystemPrompt(req gotlm.TranslateRequest) string {
	source := req.SourceLocale
	if source == "" {
		source = "en"
	}
	sourceName := gotlm.GetLanguageName(source)
	targetName := gotlm.GetLanguageName(req.TargetLocale)

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are a professional translator working on website content. You translate from %s to %s.

# Context
`, sourceName, targetName)
	if req.Context != "" {
		fmt.Fprintf(&b, "The content is for: %s.\n", req.Context)
	} else {
		b.WriteString("The content is general web content.\n")
	}

	fmt.Fprintf(&b, `
# Rules
- Translate each string into natural, idiomatic %s.
- Strings may contain inline HTML tags carrying an id attribute, e.g. <a id="a1">link</a>. Keep every tag and its id exactly as given. You may move tags to fit the sentence, but never add, drop or rename them.
- <br/> marks a line break. Keep it.
- Do not translate URLs, email addresses, placeholders such as {name} or %%s, or text inside <code>.
- Preserve leading and trailing whitespace.`, targetName)

	if gotlm.IsRTL(req.TargetLocale) {
		b.WriteString("\n- The target language is written right to left. Do not add direction marks.")
	}

	if len(req.Glossary) > 0 {
		b.WriteString("\n\n# Glossary\nUse these translations for the following phrases:")
		for _, term := range slices.Sorted(maps.Keys(req.Glossary)) {
			fmt.Fprintf(&b, "\n- %q → %s", term, req.Glossary[term])
		}
	}

	b.WriteString(`

# Format
The input is a JSON array of strings. Return a JSON object with a single key "translations" holding an array of the same length, in the same order.
Example: {"translations": ["first", "second"]}
Do not wrap the JSON in Markdown.`)

	return b.String()
}

func parseResponse(content string, expected int) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if raw, ok := obj["translations"]; ok {
			return decodeStrings(raw, expected)
		}
		// Some models pick their own key.
		for _, raw := range obj {
			if out, err := decodeStrings(raw, expected); err == nil {
				return out, nil
			}
		}
	}

	return decodeStrings(json.RawMessage(content), expected)
}

func decodeStrings(raw json.RawMessage, expected int) ([]string, error) {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &gotlm.ProviderError{Message: "invalid response format from OpenAI", Cause: err}
	}
	if len(out) != expected {
		return nil, &gotlm.CountMismatchError{Expected: expected, Got: len(out)}
	}
	return out, nil
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return gotlm.IsRetryable(err)
}

var _ gotlm.MachineTranslator = (*OpenAIProvider)(nil)
