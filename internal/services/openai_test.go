package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider fakes the two provider endpoints the gateway talks to. Each
// field is the raw response body; a nil entry answers 500.
type stubProvider struct {
	chatStatus      int
	chatBody        string
	responsesStatus int
	responsesBody   string

	chatCalls      int
	responsesCalls int
}

func (s *stubProvider) start(t *testing.T) *OpenAI {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		s.chatCalls++
		if s.chatStatus != http.StatusOK {
			w.WriteHeader(s.chatStatus)
			fmt.Fprint(w, `{"error":{"message":"boom"}}`)
			return
		}
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
		}
		fmt.Fprint(w, s.chatBody)
	})
	mux.HandleFunc("/v1/responses", func(w http.ResponseWriter, _ *http.Request) {
		s.responsesCalls++
		if s.responsesStatus != http.StatusOK {
			w.WriteHeader(s.responsesStatus)
			return
		}
		fmt.Fprint(w, s.responsesBody)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewOpenAI("test-key", "test-model", srv.URL+"/v1", time.Second, discardLogger())
}

func chatCompletionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func streamBody(pieces ...string) string {
	out := ""
	for _, p := range pieces {
		out += fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, p) + "\n\n"
	}
	return out + "data: [DONE]\n\n"
}

func TestCompleteMissingKey(t *testing.T) {
	o := NewOpenAI("", "test-model", "", 0, discardLogger())

	_, err := o.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, o.HasKey())
}

func TestChatMissingKey(t *testing.T) {
	o := NewOpenAI("", "test-model", "", 0, discardLogger())

	var got error
	for _, err := range o.Chat(context.Background(), "hi") {
		got = err
	}
	assert.ErrorIs(t, got, ErrMissingAPIKey)
}

func TestComplete(t *testing.T) {
	provider := &stubProvider{
		chatStatus: http.StatusOK,
		chatBody:   chatCompletionBody("  a fine reply  "),
	}
	o := provider.start(t)

	reply, err := o.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "a fine reply", reply)
	assert.Zero(t, provider.responsesCalls)
}

func TestCompleteEmptyContentIsNoReply(t *testing.T) {
	provider := &stubProvider{
		chatStatus: http.StatusOK,
		chatBody:   chatCompletionBody("   "),
	}
	o := provider.start(t)

	reply, err := o.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, NoReply, reply)
}

func TestCompleteFallsBackToResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "output_text",
			body: `{"output_text":"from responses"}`,
			want: "from responses",
		},
		{
			name: "nested output",
			body: `{"output":[{"content":[{"text":""},{"text":"nested text"}]}]}`,
			want: "nested text",
		},
		{
			name: "nothing extractable",
			body: `{}`,
			want: NoReply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{
				chatStatus:      http.StatusInternalServerError,
				responsesStatus: http.StatusOK,
				responsesBody:   tt.body,
			}
			o := provider.start(t)

			reply, err := o.Complete(context.Background(), "hi")
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, 1, provider.responsesCalls)
		})
	}
}

func TestCompleteBothEndpointsDown(t *testing.T) {
	provider := &stubProvider{
		chatStatus:      http.StatusInternalServerError,
		responsesStatus: http.StatusBadGateway,
	}
	o := provider.start(t)

	_, err := o.Complete(context.Background(), "hi")
	assert.Error(t, err)
}

func TestChatStreams(t *testing.T) {
	provider := &stubProvider{
		chatStatus: http.StatusOK,
		chatBody:   streamBody("Hel", "lo ", "world"),
	}
	o := provider.start(t)

	var pieces []string
	for piece, err := range o.Chat(context.Background(), "hi") {
		require.NoError(t, err)
		pieces = append(pieces, piece)
	}
	assert.Equal(t, []string{"Hel", "lo ", "world"}, pieces)
}

func TestChatStopsWhenConsumerBreaks(t *testing.T) {
	provider := &stubProvider{
		chatStatus: http.StatusOK,
		chatBody:   streamBody("one", "two", "three"),
	}
	o := provider.start(t)

	var pieces []string
	for piece, err := range o.Chat(context.Background(), "hi") {
		require.NoError(t, err)
		pieces = append(pieces, piece)
		break
	}
	assert.Equal(t, []string{"one"}, pieces)
}

func TestChatYieldsErrorOnFailure(t *testing.T) {
	provider := &stubProvider{chatStatus: http.StatusInternalServerError}
	o := provider.start(t)

	received := 0
	var got error
	for piece, err := range o.Chat(context.Background(), "hi") {
		if err != nil {
			got = err
			continue
		}
		received += len(piece)
	}
	assert.Error(t, got)
	assert.Zero(t, received)
}

func TestModelAccessor(t *testing.T) {
	o := NewOpenAI("k", "gpt-5-nano", "", 0, discardLogger())
	assert.Equal(t, "gpt-5-nano", o.Model())
	assert.True(t, o.HasKey())
}
