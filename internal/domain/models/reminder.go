package models

import (
	"time"
)

type Kind string

const (
	KindTimer    Kind = "timer"
	KindMention  Kind = "mention"
	KindKeyword  Kind = "keyword"
	KindReaction Kind = "reaction"
	KindThread   Kind = "thread"
)

var AllKinds = []Kind{KindTimer, KindMention, KindKeyword, KindReaction, KindThread}

// IsContextual сообщает, срабатывает ли напоминание по событию, а не по времени.
func (k Kind) IsContextual() bool {
	return k == KindMention || k == KindKeyword || k == KindReaction || k == KindThread
}

func (k Kind) Valid() bool {
	for _, kind := range AllKinds {
		if k == kind {
			return true
		}
	}

	return false
}

type Recurrence string

const (
	RecurrenceNone   Recurrence = "none"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

func ParseRecurrence(value string) (Recurrence, bool) {
	switch value {
	case "", "none", "aucun", "нет":
		return RecurrenceNone, true
	case "daily", "quotidien", "ежедневно":
		return RecurrenceDaily, true
	case "weekly", "hebdomadaire", "еженедельно":
		return RecurrenceWeekly, true
	default:
		return "", false
	}
}

type State string

const (
	StateActive    State = "active"
	StateFired     State = "fired"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

type Reminder struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	GroupID         string     `json:"groupId,omitempty"`
	OriginChannelID string     `json:"originChannelId"`
	Kind            Kind       `json:"kind"`
	Trigger         Trigger    `json:"trigger"`
	Message         string     `json:"message"`
	Recurrence      Recurrence `json:"recurrence"`
	State           State      `json:"state"`
	TriggeredCount  int        `json:"triggeredCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (r *Reminder) IsActive() bool {
	return r.State == StateActive
}

// FireAt возвращает момент срабатывания для напоминаний по времени.
func (r *Reminder) FireAt() (time.Time, bool) {
	if r.Kind != KindTimer || r.Trigger.Timer == nil {
		return time.Time{}, false
	}

	return r.Trigger.Timer.FireAt, true
}

// Spec описывает запрос на создание напоминания.
type Spec struct {
	OwnerID         string
	GroupID         string
	OriginChannelID string
	Kind            Kind
	Trigger         Trigger
	Message         string
	Recurrence      Recurrence
}

type Stats struct {
	Total  int          `json:"total"`
	Active int          `json:"active"`
	Owners int          `json:"owners"`
	Groups int          `json:"groups"`
	ByKind map[Kind]int `json:"byKind"`
}

func (r *Reminder) Clone() Reminder {
	clone := *r
	clone.Trigger = r.Trigger.Clone()

	return clone
}
