package models

import "time"

// Message is a single entry in a chat transcript. Messages are immutable once
// appended, except for the one assistant message that is being streamed, whose
// Content grows until the stream ends.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Origin    Origin
	Timestamp time.Time

	StreamingState string
}

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is a reply produced by a local command, the wallet
	// summary, or the model.
	RoleAssistant Role = "assistant"
	// RoleSystem is an informational message shown in the transcript, such
	// as the welcome line. It is unrelated to the model's system prompt.
	RoleSystem Role = "system"
	// RoleError is a failure surfaced to the user as a chat entry.
	RoleError Role = "error"
)

// Origin records where an assistant reply came from. Card grammars are plain
// text sniffing, so keeping the provenance around lets renderers scope them
// to replies that were actually produced by local logic.
type Origin string

const (
	// OriginLocal marks replies answered by the local command resolver.
	OriginLocal Origin = "local"
	// OriginModel marks replies produced by the language model.
	OriginModel Origin = "model"
	// OriginWallet marks wallet summary cards.
	OriginWallet Origin = "wallet"
)

// Streaming states of an assistant message, mirrored into the UI.
const (
	StreamingStateLoading   = "loading"
	StreamingStateStreaming = "streaming"
	StreamingStateEnded     = "ended"
)
