package model

import (
	"time"
	"unicode/utf8"
)

// EventType classifies an APIEvent.
type EventType string

const (
	EventTokenAcquired  EventType = "token_acquired"
	EventTokenRefreshed EventType = "token_refreshed"
	EventTokenFailed    EventType = "token_failed"
	EventNewsFetch      EventType = "news_fetch"
	EventNewsFallback   EventType = "news_fallback"
	EventEquityFetch    EventType = "equity_fetch"
	EventEquityFallback EventType = "equity_fallback"
	EventEmailSent      EventType = "email_sent"
	EventEmailFallback  EventType = "email_fallback"
	EventAIMatch        EventType = "ai_match"
	EventEmbedding      EventType = "embedding"
)

// MaxEventDetail is the maximum stored length of APIEvent.Detail, in characters.
const MaxEventDetail = 500

// APIEvent is a write-once record of an external API attempt. Detail must
// never contain credentials.
type APIEvent struct {
	ID            string    `json:"id"`
	EventType     EventType `json:"event_type"`
	APIName       string    `json:"api_name"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	Detail        string    `json:"detail,omitempty"`
	CorrelationID *int64    `json:"correlation_id,omitempty"`
}

// TruncateDetail cuts s to at most MaxEventDetail runes.
func TruncateDetail(s string) string {
	return Truncate(s, MaxEventDetail)
}

// Truncate cuts s to at most n runes without splitting a multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
