package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Update is the subset of a Bot API update the bot reacts to
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Message is a chat message or an edited chat message
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// Chat identifies the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// IncomingKind tells which branch of an update carried the message
type IncomingKind int

const (
	KindMessage IncomingKind = iota + 1
	KindEditedMessage
)

func (k IncomingKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEditedMessage:
		return "edited_message"
	default:
		return "unknown"
	}
}

// Incoming is a validated update: a chat to answer and the text to analyze.
// Text may be empty when the message carried neither text nor caption.
type Incoming struct {
	Kind      IncomingKind
	ChatID    int64
	MessageID int64
	Text      string
}

// ParseUpdate decodes a webhook body
func ParseUpdate(body []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	return &u, nil
}

// Incoming picks the live message over the edited one. It reports false when
// neither branch names a chat.
func (u *Update) Incoming() (Incoming, bool) {
	if u == nil {
		return Incoming{}, false
	}

	var (
		msg  *Message
		kind IncomingKind
	)
	switch {
	case u.Message != nil && u.Message.Chat != nil && u.Message.Chat.ID != 0:
		msg, kind = u.Message, KindMessage
	case u.EditedMessage != nil && u.EditedMessage.Chat != nil && u.EditedMessage.Chat.ID != 0:
		msg, kind = u.EditedMessage, KindEditedMessage
	default:
		return Incoming{}, false
	}

	return Incoming{
		Kind:      kind,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      u.text(),
	}, true
}

// text returns the first non-empty of message text, message caption,
// edited text and edited caption
func (u *Update) text() string {
	var candidates []string
	if u.Message != nil {
		candidates = append(candidates, u.Message.Text, u.Message.Caption)
	}
	if u.EditedMessage != nil {
		candidates = append(candidates, u.EditedMessage.Text, u.EditedMessage.Caption)
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// IsCommand reports whether text is the given bot command, with or without
// a @botname suffix
func IsCommand(text, command string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	name := fields[0]
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	return strings.EqualFold(name, "/"+command)
}

// ChatIDString formats a numeric chat id for the Bot API
func ChatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
