// Package chat implements the append-only message log and the
// pluggable reply generation behind the assistant pane. Messages are
// never reordered, mutated, or deleted after insertion; a monotonic
// sequence counter assigned at append time fixes display order.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "User"
	SenderAI   Sender = "AI"
)

// Message is one entry in the chat log.
type Message struct {
	ID        string
	Sender    Sender
	Content   string
	Timestamp time.Time
	Seq       int
}

// Replier produces the assistant's reply to the conversation so far.
// Implementations may be scripted stand-ins or real inference
// backends; the chat flow contract does not change between them.
type Replier interface {
	Reply(ctx context.Context, history []Message, fin finance.Context) (string, error)
}

// Log is a thread-safe append-only chat log.
type Log struct {
	mu       sync.Mutex
	messages []Message
	nextSeq  int
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append inserts a message at the end of the log and returns it with
// its assigned ID and sequence number.
func (l *Log) Append(sender Sender, content string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now(),
		Seq:       l.nextSeq,
	}
	l.nextSeq++
	l.messages = append(l.messages, msg)
	return msg
}

// History returns a copy of all messages in insertion order.
func (l *Log) History() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Seed appends the opening exchange shown before the user has said
// anything, so the pane never starts blank.
func (l *Log) Seed(userName string) {
	if userName == "" {
		userName = "there"
	}
	l.Append(SenderAI, "Welcome, "+userName+"! I've analyzed your financial context. How can I help you today?")
}
