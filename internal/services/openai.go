package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// NoReply is the sentinel returned when every fallback produced no usable
// text. It is never an empty string so the transcript always shows something.
const NoReply = "(no reply)"

// DefaultModelTimeout bounds each provider call unless overridden.
const DefaultModelTimeout = 15 * time.Second

// ErrMissingAPIKey is returned when a model call is attempted without a key
// configured. The message carries the env var name so the handler layer can
// attach the matching remediation hint.
var ErrMissingAPIKey = errors.New(
	"missing OPENAI_API_KEY: set it in your environment or config file")

// personaPrompt governs tone and formatting of every model reply. It is
// injected per request and never stored in the transcript.
const personaPrompt = `Your name is Blockhead 🟧.
You are a witty, high-energy degen sidekick for on-chain topics (token launches, AMMs, DeFi, Base, EVM).
Tone: playful and sharp, never cringe, never insulting, no profanity. Keep it friendly and fun.
Format with Markdown (and simple HTML if needed: b, i, br, code, pre, ul, ol, li, a). No images.
Style:
- Open with a crisp one-liner hook when it helps.
- Use tight bullets. 1-3 short paragraphs max before bullets.
- Always favor numbers, steps, equations, or code when asked.
- Emojis: sparingly (🔥 🎲 🧠 🟧). Zero emoji spam.
- No terminal/CLI framing; you're a chat buddy, not a shell.

Domain behavior:
- Be precise about on-chain mechanics (AMM math, fees, slippage, LP/IL, tokenomics).
- If you estimate, state assumptions briefly.
- Never claim to send transactions or access wallets/balances.
- Add a tiny disclaimer "Not financial advice." on speculative calls.

Boundaries:
- No harassment, no illegal guidance, no personal data inference.
- If a request is unsafe, refuse briefly and offer a safe angle.

Answer quality rules:
- Prefer concrete next actions over theory.
- Keep outputs compact; collapse fluff.
- Use fenced code blocks for code.`

// OpenAI wraps the model provider. Each request carries the persona system
// prompt and the single user prompt; no conversation history is transmitted.
// The SDK client is built lazily so a missing key only fails the request
// that needs it, not startup.
type OpenAI struct {
	model   string
	apiKey  string
	baseURL string
	timeout time.Duration

	mu     sync.Mutex
	client *goopenai.Client

	httpClient *http.Client

	logger *slog.Logger
}

// NewOpenAI creates an OpenAI gateway. baseURL may be empty for the default
// provider endpoint; timeout of zero means DefaultModelTimeout.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration, logger *slog.Logger) *OpenAI {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &OpenAI{
		model:      model,
		apiKey:     apiKey,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("module", "openai")),
	}
}

// Model returns the configured model name.
func (o *OpenAI) Model() string { return o.model }

// HasKey reports whether an API key is configured.
func (o *OpenAI) HasKey() bool { return o.apiKey != "" }

func (o *OpenAI) ensureClient() (*goopenai.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client != nil {
		return o.client, nil
	}
	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: o.timeout}
	o.client = goopenai.NewClientWithConfig(cfg)
	return o.client, nil
}

func (o *OpenAI) chatMessages(prompt string) []goopenai.ChatCompletionMessage {
	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: personaPrompt},
		{Role: goopenai.ChatMessageRoleUser, Content: prompt},
	}
}

// Chat streams the model reply for a single prompt. It yields text deltas as
// they arrive; a failure before or during iteration is yielded as an error,
// and the caller is expected to fall back to Complete when no delta has been
// received yet.
func (o *OpenAI) Chat(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		client, err := o.ensureClient()
		if err != nil {
			yield("", err)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
			Model:    o.model,
			Messages: o.chatMessages(prompt),
			Stream:   true,
		})
		if err != nil {
			yield("", fmt.Errorf("error opening stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			piece := response.Choices[0].Delta.Content
			if piece == "" {
				continue
			}
			if !yield(piece, nil) {
				return
			}
		}
	}
}

// Complete produces a buffered reply for a single prompt. It tries the chat
// completion endpoint first and falls back to the responses endpoint for
// providers without chat completions. Extraction misses degrade to the
// NoReply sentinel rather than an empty reply.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := o.ensureClient()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.chatMessages(prompt),
	})
	if err == nil {
		if len(resp.Choices) == 0 {
			return NoReply, nil
		}
		reply := strings.TrimSpace(resp.Choices[0].Message.Content)
		if reply == "" {
			return NoReply, nil
		}
		return reply, nil
	}

	o.logger.Debug("Chat completion failed, trying responses endpoint",
		slog.String("err", err.Error()))

	return o.responsesFallback(ctx, prompt)
}

type responsesRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Input        string `json:"input"`
}

// The responses endpoint returns output as a nested structure; the reply is
// the first text-bearing content part of the first output item.
type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (o *OpenAI) responsesFallback(ctx context.Context, prompt string) (string, error) {
	base := o.baseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}

	body, err := json.Marshal(responsesRequest{
		Model:        o.model,
		Instructions: personaPrompt,
		Input:        prompt,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(base, "/")+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	var res responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	if reply := strings.TrimSpace(res.OutputText); reply != "" {
		return reply, nil
	}
	for _, item := range res.Output {
		for _, part := range item.Content {
			if reply := strings.TrimSpace(part.Text); reply != "" {
				return reply, nil
			}
		}
	}
	return NoReply, nil
}
