package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZaguanLabs/gotlm"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	prompt := p.buildSystemPrompt(gotlm.TranslateRequest{
		SourceLocale: "en",
		TargetLocale: "fr-CA",
		Context:      "a cooking blog",
		Glossary:     map[string]string{"stand mixer": "batteur sur socle"},
	})

	for _, want := range []string{"Canadian French", "a cooking blog", `"stand mixer" → batteur sur socle`, `id attribute`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "right to left") {
		t.Error("French prompt should not mention right to left")
	}
}

func TestBuildSystemPrompt_RTL(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test"})

	prompt := p.buildSystemPrompt(gotlm.TranslateRequest{TargetLocale: "ar"})
	if !strings.Contains(prompt, "right to left") {
		t.Error("Arabic prompt should mention right to left")
	}
	if !strings.Contains(prompt, "from English") {
		t.Error("missing source language should default to English")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"translations key", `{"translations": ["Bonjour", "Monde"]}`, []string{"Bonjour", "Monde"}, false},
		{"other key", `{"results": ["Bonjour", "Monde"]}`, []string{"Bonjour", "Monde"}, false},
		{"bare array", `["Bonjour", "Monde"]`, []string{"Bonjour", "Monde"}, false},
		{"count mismatch", `{"translations": ["Bonjour"]}`, nil, true},
		{"garbage", `not json`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse(tt.content, 2)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResponse: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseResponse_CountMismatchType(t *testing.T) {
	_, err := parseResponse(`{"translations": ["a"]}`, 2)
	var mismatch *gotlm.CountMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != 2 || mismatch.Got != 1 {
		t.Errorf("err = %v", err)
	}
}

func chatServer(t *testing.T, status int, reply func(texts []string) []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			io.WriteString(w, `{"error": {"message": "slow down", "type": "rate_limit"}}`)
			return
		}

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		var texts []string
		json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &texts)

		content, _ := json.Marshal(map[string][]string{"translations": reply(texts)})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": string(content)}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Translate(t *testing.T) {
	srv := chatServer(t, http.StatusOK, func(texts []string) []string {
		out := make([]string, len(texts))
		for i, s := range texts {
			out[i] = strings.ToUpper(s)
		}
		return out
	})
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	got, err := p.Translate(context.Background(), gotlm.TranslateRequest{
		SourceLocale: "en",
		TargetLocale: "fr",
		Texts:        []string{"hello", `see <a id="a1">docs</a>`},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got["hello"] != "HELLO" || got[`see <a id="a1">docs</a>`] != `SEE <A ID="A1">DOCS</A>` {
		t.Errorf("got %v", got)
	}
}

func TestOpenAIProvider_RateLimitIsRetryable(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, nil)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := p.Translate(context.Background(), gotlm.TranslateRequest{TargetLocale: "fr", Texts: []string{"hello"}})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !gotlm.IsRetryable(err) {
		t.Errorf("429 should be retryable: %v", err)
	}
}

func TestOpenAIProvider_EmptyRequest(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: "http://127.0.0.1:0"})
	got, err := p.Translate(context.Background(), gotlm.TranslateRequest{TargetLocale: "fr"})
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()
	m.Translations["Hello"] = "Bonjour"

	got, err := m.Translate(context.Background(), gotlm.TranslateRequest{
		TargetLocale: "fr",
		Texts:        []string{"Hello", "Unknown"},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got["Hello"] != "Bonjour" || got["Unknown"] != "[fr] Unknown" {
		t.Errorf("got %v", got)
	}
	if m.Calls() != 1 || m.LastRequest().TargetLocale != "fr" {
		t.Errorf("calls = %d, last = %+v", m.Calls(), m.LastRequest())
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Name: "mock"}); err != nil {
		t.Errorf("mock: %v", err)
	}
	if _, err := New(Config{Name: "openai"}); err == nil {
		t.Error("openai without a key should fail")
	}
	if _, err := New(Config{Name: "openai", APIKey: "k"}); err != nil {
		t.Errorf("openai: %v", err)
	}
	if _, err := New(Config{Name: "deepl"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
