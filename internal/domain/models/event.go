package models

import (
	"time"
)

// MessageEvent описывает сообщение, опубликованное на платформе.
type MessageEvent struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId,omitempty"`
	ChannelID   string    `json:"channelId"`
	ThreadID    string    `json:"threadId,omitempty"`
	AuthorID    string    `json:"authorId"`
	AuthorIsBot bool      `json:"authorIsBot,omitempty"`
	Text        string    `json:"text"`
	Mentions    []string  `json:"mentions,omitempty"`
	URL         string    `json:"url,omitempty"`
	PostedAt    time.Time `json:"postedAt"`
}

// ReactionEvent описывает реакцию, добавленную к сообщению.
type ReactionEvent struct {
	GroupID   string    `json:"groupId,omitempty"`
	ChannelID string    `json:"channelId"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	UserIsBot bool      `json:"userIsBot,omitempty"`
	Emoji     Emoji     `json:"emoji"`
	URL       string    `json:"url,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}
