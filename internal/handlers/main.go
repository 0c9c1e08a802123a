package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"
	aichatbot "github.com/xpelch/ai-chatbot"
	"github.com/xpelch/ai-chatbot/internal/renderer"
	"github.com/xpelch/ai-chatbot/internal/services"
)

// LLM is the model gateway. Chat streams text deltas; Complete is the
// buffered fallback chain ending in the no-reply sentinel.
type LLM interface {
	Chat(ctx context.Context, prompt string) iter.Seq2[string, error]
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
	HasKey() bool
}

// CommandResolver intercepts local commands before any model call.
type CommandResolver interface {
	Resolve(ctx context.Context, prompt string) (string, bool)
}

// WalletReader produces the balance and price summary for an address.
type WalletReader interface {
	Summary(ctx context.Context, address string) (services.WalletSummary, error)
}

// SessionStore persists unlock sessions.
type SessionStore interface {
	Create() (string, error)
	Valid(token string) bool
}

// Main owns the chat surface: the per-session transcripts, the SSE server
// pushing rendered message updates, and the HTML templates.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	renderer  *renderer.Renderer

	llm      LLM
	resolver CommandResolver
	wallet   WalletReader
	sessions SessionStore
	password string

	mu          sync.Mutex
	transcripts map[string]*transcript

	logger *slog.Logger
}

const errLoggerKey = "err"

// exchangeTimeout bounds a full prompt/reply exchange.
const exchangeTimeout = 20 * time.Second

// maxReplySize caps a single streamed assistant reply; chunks past the cap
// are dropped and the message is finalized.
const maxReplySize = 64 << 10

const (
	welcomeMessage     = "Welcome! Connect your wallet and ask me anything."
	emptyPromptReply   = "Say something and I'll make it spicy (but useful)."
	connectWalletReply = "Connect a wallet first, then hit My bags."
)

var messagesSSEType = sse.Type("messages")

// NewMain wires the chat surface. It parses the embedded templates and
// configures the SSE server so each client subscribes to the topic of the
// message it is watching.
func NewMain(
	llm LLM,
	resolver CommandResolver,
	wallet WalletReader,
	sessions SessionStore,
	password string,
	logger *slog.Logger,
) (*Main, error) {
	tmpl, err := template.ParseFS(
		aichatbot.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	return &Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				messageID := s.Req.URL.Query().Get("message_id")
				if messageID != "" {
					topics = append(topics, messageIDTopic(messageID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates:   tmpl,
		renderer:    renderer.New(),
		llm:         llm,
		resolver:    resolver,
		wallet:      wallet,
		sessions:    sessions,
		password:    password,
		transcripts: make(map[string]*transcript),
		logger:      logger.With(slog.String("module", "handlers")),
	}, nil
}

func messageIDTopic(messageID string) string {
	return fmt.Sprintf("message-%s", messageID)
}

// Shutdown broadcasts a close event and terminates the SSE server, waiting
// up to 5 seconds for connections to drain.
func (m *Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	e.AppendData("bye")
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
