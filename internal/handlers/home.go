package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/xpelch/ai-chatbot/internal/models"
)

type messageView struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time

	StreamingState string
}

type homePageData struct {
	Messages []messageView
}

func (m *Main) messageView(msg models.Message) messageView {
	return messageView{
		ID:             msg.ID,
		Role:           string(msg.Role),
		Content:        m.renderer.HTML(msg.Role, msg.Content),
		Timestamp:      msg.Timestamp,
		StreamingState: msg.StreamingState,
	}
}

// HandleHome renders the chat page with the session's transcript.
func (m *Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		http.Redirect(w, r, "/unlock?next=/", http.StatusFound)
		return
	}

	messages := m.transcriptFor(cookie.Value).snapshot()
	data := homePageData{Messages: make([]messageView, len(messages))}
	for i, msg := range messages {
		data.Messages[i] = m.messageView(msg)
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
