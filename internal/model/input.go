package model

// TelegramLink is a parsed channel-post link such as https://t.me/channel/42
type TelegramLink struct {
	URL       string `json:"url"`
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
}

// ResolvedInput is the text chosen for analysis.
//
// When UsedTelegramFetch is true, TelegramLink is set and Text holds the
// fetched post body, which differs from OriginalText.
type ResolvedInput struct {
	Text              string        `json:"text"`
	OriginalText      string        `json:"original_text"`
	TelegramLink      *TelegramLink `json:"telegram_link,omitempty"`
	UsedTelegramFetch bool          `json:"used_telegram_fetch"`
}
