package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
	"github.com/xpelch/ai-chatbot/internal/models"
	"github.com/xpelch/ai-chatbot/internal/renderer"
	"github.com/xpelch/ai-chatbot/internal/services"
)

// transcript is the per-session conversation state. The ordered message list
// is the sole source of truth for rendering; the busy flag serializes
// submissions so at most one exchange is in flight per session.
type transcript struct {
	mu       sync.Mutex
	messages []models.Message
	busy     bool
}

func (t *transcript) snapshot() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (m *Main) transcriptFor(token string) *transcript {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transcripts[token]
	if !ok {
		t = &transcript{
			messages: []models.Message{{
				ID:        uuid.New().String(),
				Role:      models.RoleSystem,
				Content:   welcomeMessage,
				Timestamp: time.Now(),
			}},
		}
		m.transcripts[token] = t
	}
	return t
}

// HandleSSE serves the message update stream.
func (m *Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// HandleChatMessage accepts a chat form submission from the web UI, appends
// the user message and an assistant placeholder, and kicks off the exchange
// in the background. The reply streams to the client over SSE.
func (m *Main) HandleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	prompt := strings.TrimSpace(r.FormValue("message"))
	if prompt == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	walletAddr := strings.TrimSpace(r.FormValue("wallet_address"))

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	t := m.transcriptFor(cookie.Value)

	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		http.Error(w, "A reply is already in flight", http.StatusConflict)
		return
	}
	t.busy = true

	userMsg := models.Message{
		ID:             uuid.New().String(),
		Role:           models.RoleUser,
		Content:        prompt,
		Timestamp:      time.Now(),
		StreamingState: models.StreamingStateEnded,
	}
	assistantMsg := models.Message{
		ID:             uuid.New().String(),
		Role:           models.RoleAssistant,
		Timestamp:      time.Now(),
		StreamingState: models.StreamingStateLoading,
	}
	t.messages = append(t.messages, userMsg, assistantMsg)
	t.mu.Unlock()

	go m.converse(t, prompt, walletAddr, assistantMsg.ID)

	if err := m.templates.ExecuteTemplate(w, "user_message", m.messageView(userMsg)); err != nil {
		m.logger.Error("Failed to render user message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "ai_message", m.messageView(assistantMsg)); err != nil {
		m.logger.Error("Failed to render assistant message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// converse resolves one prompt: wallet summary shortcut first, then local
// commands, then the model with its fallback chain. It owns the assistant
// placeholder created by HandleChatMessage and is the only writer to it.
func (m *Main) converse(t *transcript, prompt, walletAddr, msgID string) {
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()

		e := &sse.Message{Type: sse.Type("closeMessage")}
		e.AppendData("bye")
		_ = m.sseSrv.Publish(e, messageIDTopic(msgID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), exchangeTimeout)
	defer cancel()

	if strings.EqualFold(strings.TrimSpace(prompt), "my bags") {
		m.walletShortcut(ctx, t, walletAddr, msgID)
		return
	}

	if reply, ok := m.resolver.Resolve(ctx, prompt); ok {
		m.finalize(t, msgID, models.RoleAssistant, models.OriginLocal, reply)
		return
	}

	m.streamModelReply(ctx, t, prompt, msgID)
}

// walletShortcut answers "my bags" directly from the wallet service,
// bypassing both the resolver and the model.
func (m *Main) walletShortcut(ctx context.Context, t *transcript, walletAddr, msgID string) {
	if walletAddr == "" {
		m.finalize(t, msgID, models.RoleAssistant, models.OriginWallet, connectWalletReply)
		return
	}

	summary, err := m.wallet.Summary(ctx, walletAddr)
	if err != nil {
		m.logger.Error("Wallet summary failed", slog.String(errLoggerKey, err.Error()))
		m.finalize(t, msgID, models.RoleError, models.OriginWallet, userFacingError(err))
		return
	}

	card := renderer.BuildWalletSummaryCard(
		services.ShortAddress(summary.Address),
		summary.BalanceETH, summary.PriceUSD, summary.ValueUSD)
	m.finalize(t, msgID, models.RoleAssistant, models.OriginWallet, card)
}

// streamModelReply consumes the gateway stream into the placeholder message.
// A failure before the first chunk falls back to the buffered completion; a
// timeout discards any partial content and surfaces as an error.
func (m *Main) streamModelReply(ctx context.Context, t *transcript, prompt, msgID string) {
	received := 0

	for piece, err := range m.llm.Chat(ctx, prompt) {
		if err != nil {
			if received == 0 {
				m.bufferedFallback(ctx, t, prompt, msgID)
				return
			}
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				m.finalize(t, msgID, models.RoleError, models.OriginModel, timeoutMessage())
				return
			}
			// Mid-stream provider hiccup after output started: keep what
			// we have, matching the plain-text stream contract.
			m.logger.Error("Stream failed mid-reply", slog.String(errLoggerKey, err.Error()))
			m.finalizeStreaming(t, msgID)
			return
		}

		received += len(piece)
		m.appendChunk(t, msgID, piece)
	}

	if received == 0 {
		// Stream closed without content; the buffered chain still owes a
		// non-empty reply.
		m.bufferedFallback(ctx, t, prompt, msgID)
		return
	}
	m.finalizeStreaming(t, msgID)
}

func (m *Main) bufferedFallback(ctx context.Context, t *transcript, prompt, msgID string) {
	reply, err := m.llm.Complete(ctx, prompt)
	if err != nil {
		m.logger.Error("Fallback completion failed", slog.String(errLoggerKey, err.Error()))
		m.finalize(t, msgID, models.RoleError, models.OriginModel, userFacingError(err))
		return
	}
	m.finalize(t, msgID, models.RoleAssistant, models.OriginModel, reply)
}

// appendChunk grows the streaming message and publishes the re-rendered
// content. Growth is monotonic and capped at maxReplySize.
func (m *Main) appendChunk(t *transcript, msgID, piece string) {
	t.mu.Lock()
	msg, ok := findMessage(t.messages, msgID)
	if !ok {
		t.mu.Unlock()
		return
	}
	if len(msg.Content) >= maxReplySize {
		t.mu.Unlock()
		return
	}
	msg.Content += piece
	msg.Origin = models.OriginModel
	msg.StreamingState = models.StreamingStateStreaming
	rendered := m.renderer.HTML(msg.Role, msg.Content)
	t.mu.Unlock()

	m.publishMessage(msgID, string(rendered))
}

// finalize replaces the placeholder's content wholesale and marks it ended.
func (m *Main) finalize(t *transcript, msgID string, role models.Role, origin models.Origin, content string) {
	t.mu.Lock()
	msg, ok := findMessage(t.messages, msgID)
	if !ok {
		t.mu.Unlock()
		return
	}
	msg.Role = role
	msg.Origin = origin
	msg.Content = content
	msg.StreamingState = models.StreamingStateEnded
	rendered := m.renderer.HTML(msg.Role, msg.Content)
	t.mu.Unlock()

	m.publishMessage(msgID, string(rendered))
}

// finalizeStreaming marks a streamed message as ended without touching its
// accumulated content.
func (m *Main) finalizeStreaming(t *transcript, msgID string) {
	t.mu.Lock()
	msg, ok := findMessage(t.messages, msgID)
	if !ok {
		t.mu.Unlock()
		return
	}
	msg.StreamingState = models.StreamingStateEnded
	rendered := m.renderer.HTML(msg.Role, msg.Content)
	t.mu.Unlock()

	m.publishMessage(msgID, string(rendered))
}

func (m *Main) publishMessage(msgID, rendered string) {
	e := &sse.Message{Type: messagesSSEType}
	e.AppendData(rendered)
	if err := m.sseSrv.Publish(e, messageIDTopic(msgID)); err != nil {
		m.logger.Error("Failed to publish message",
			slog.String("messageID", msgID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func findMessage(messages []models.Message, id string) (*models.Message, bool) {
	for i := range messages {
		if messages[i].ID == id {
			return &messages[i], true
		}
	}
	return nil, false
}

func timeoutMessage() string {
	return "Request timed out after 20s. Try again or reduce the prompt size."
}

// userFacingError keeps error-role messages human readable.
func userFacingError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage()
	}
	return err.Error()
}
