package models

import (
	"time"
)

type FireReason string

const (
	ReasonTimer    FireReason = "timer"
	ReasonMention  FireReason = "mention"
	ReasonKeyword  FireReason = "keyword"
	ReasonReaction FireReason = "reaction"
	ReasonThread   FireReason = "thread"
)

// FireContext описывает, что и когда вызвало срабатывание напоминания.
type FireContext struct {
	Reason    FireReason `json:"reason"`
	ChannelID string     `json:"channelId,omitempty"`
	ThreadID  string     `json:"threadId,omitempty"`
	ActorID   string     `json:"actorId,omitempty"`
	Excerpt   string     `json:"excerpt,omitempty"`
	EventURL  string     `json:"eventUrl,omitempty"`
	At        time.Time  `json:"at"`
}

type ActionType string

const (
	ActionAcknowledge ActionType = "ack"
	ActionSnooze      ActionType = "snooze"
)

type Action struct {
	Type  ActionType `json:"type"`
	Label string     `json:"label"`
}

// Notification готовое к отправке уведомление.
type Notification struct {
	ReminderID string    `json:"reminderId"`
	OwnerID    string    `json:"ownerId"`
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Context    string    `json:"context"`
	Footer     string    `json:"footer"`
	Actions    []Action  `json:"actions,omitempty"`
	FiredAt    time.Time `json:"firedAt"`
}

func (n *Notification) Text() string {
	text := n.Title + "\n\n" + n.Body

	if n.Context != "" {
		text += "\n\n" + n.Context
	}

	if n.Footer != "" {
		text += "\n\n" + n.Footer
	}

	return text
}

type DeliveryStatus string

const (
	DeliveredPrimary  DeliveryStatus = "primary"
	DeliveredFallback DeliveryStatus = "fallback"
	DeliveryFailed    DeliveryStatus = "failed"
)

type DeliveryResult struct {
	Status DeliveryStatus
	Err    error
}

func (r DeliveryResult) Delivered() bool {
	return r.Status == DeliveredPrimary || r.Status == DeliveredFallback
}
