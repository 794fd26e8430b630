package model

// UserProfile stores per-user bot state keyed by Telegram user id.
// Handle is empty until registration verifies ownership. LastCompletion is
// the ISO date of the last verified challenge completion, empty if none.
type UserProfile struct {
	UserID         int64  `json:"user_id"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"display_name"`
	Score          int    `json:"score"`
	LastCompletion string `json:"last_completion"`
}

// GuildSettings stores per-group-chat settings. A zero ChannelID means the
// chat has not configured an announcement channel and is skipped during
// broadcast.
type GuildSettings struct {
	ChatID    int64 `json:"chat_id"`
	ChannelID int64 `json:"channel_id"`
}
