package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xpelch/ai-chatbot/internal/services"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

type healthResponse struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	HasKey bool   `json:"hasKey"`
}

// HandleChatAPI serves the programmatic chat contract. The body is
// {"prompt": string}; ?stream=1 selects the chunked text/plain mode, the
// default is a buffered JSON reply. Local commands short-circuit before any
// model call, and every failure surfaces as a structured 500 with an
// optional remediation hint.
func (m *Main) HandleChatAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	wantsStream := r.URL.Query().Get("stream") == "1"

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, "invalid JSON body: "+err.Error())
		return
	}
	prompt := req.Prompt

	if strings.TrimSpace(prompt) == "" {
		if wantsStream {
			writePlainText(w, emptyPromptReply)
			return
		}
		writeJSON(w, http.StatusOK, replyResponse{Reply: emptyPromptReply})
		return
	}

	if reply, ok := m.resolver.Resolve(r.Context(), prompt); ok {
		if wantsStream {
			writePlainText(w, reply)
			return
		}
		writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
		return
	}

	if wantsStream {
		m.streamChatAPI(w, r, prompt)
		return
	}

	reply, err := m.llm.Complete(r.Context(), prompt)
	if err != nil {
		m.logger.Error("Buffered chat failed", slog.String(errLoggerKey, err.Error()))
		writeAPIError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

// streamChatAPI writes the reply as raw unframed text chunks. If the stream
// fails before the first chunk, the buffered chain runs and its reply is
// written as a single chunk; once bytes are on the wire the only remaining
// signal is closing the stream.
func (m *Main) streamChatAPI(w http.ResponseWriter, r *http.Request, prompt string) {
	flusher, _ := w.(http.Flusher)

	wrote := false
	for piece, err := range m.llm.Chat(r.Context(), prompt) {
		if err != nil {
			if wrote {
				m.logger.Error("Stream failed mid-reply", slog.String(errLoggerKey, err.Error()))
				return
			}
			reply, cerr := m.llm.Complete(r.Context(), prompt)
			if cerr != nil {
				m.logger.Error("Fallback completion failed", slog.String(errLoggerKey, cerr.Error()))
				writeAPIError(w, cerr.Error())
				return
			}
			writePlainText(w, reply)
			return
		}

		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}
		if _, err := w.Write([]byte(piece)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if !wrote {
		// Stream closed silently; fall back so the reply is never empty.
		reply, err := m.llm.Complete(r.Context(), prompt)
		if err != nil {
			writeAPIError(w, err.Error())
			return
		}
		writePlainText(w, reply)
	}
}

// HandleHealth reports liveness and configuration visibility. It never fails.
func (m *Main) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		OK:     true,
		Model:  m.llm.Model(),
		HasKey: m.llm.HasKey(),
	})
}

type walletSummaryRequest struct {
	Address string `json:"address"`
}

type walletSummaryResponse struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Eth     struct {
		Balance  float64 `json:"balance"`
		PriceUSD float64 `json:"priceUsd"`
		ValueUSD float64 `json:"valueUsd"`
	} `json:"eth"`
	Timestamp int64 `json:"ts"`
}

// HandleWalletSummary validates the address shape before any lookup, then
// returns the balance, price, and derived USD value.
func (m *Main) HandleWalletSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req walletSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if !services.IsAddress(req.Address) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid address"})
		return
	}

	summary, err := m.wallet.Summary(r.Context(), req.Address)
	if err != nil {
		m.logger.Error("Wallet summary failed", slog.String(errLoggerKey, err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := walletSummaryResponse{
		Chain:     summary.Chain,
		Address:   summary.Address,
		Timestamp: summary.Timestamp,
	}
	resp.Eth.Balance = summary.BalanceETH
	resp.Eth.PriceUSD = summary.PriceUSD
	resp.Eth.ValueUSD = summary.ValueUSD
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePlainText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s))
}

func writeAPIError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: message,
		Hint:  errorHint(message),
	})
}

// errorHint maps known failure shapes to remediation advice.
func errorHint(message string) string {
	if strings.Contains(message, "OPENAI_API_KEY") {
		return "Set OPENAI_API_KEY in your environment. If using OpenRouter, " +
			"also set the API base URL to https://openrouter.ai/api/v1 and ensure your key is valid."
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "model") && strings.Contains(lower, "not") {
		return "Verify the model name is correct and accessible to your account. " +
			"You can override it with AI_MODEL_NAME."
	}
	return ""
}
