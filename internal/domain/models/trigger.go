package models

import (
	"time"
)

type TimerTrigger struct {
	FireAt   time.Time `json:"fireAt"`
	Timezone string    `json:"timezone"`
}

type MentionTrigger struct {
	TargetUserID string `json:"targetUserId"`
}

type KeywordTrigger struct {
	Pattern string `json:"pattern"`
}

// Emoji идентифицирует реакцию либо по имени, либо по ID пользовательского эмодзи.
type Emoji struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

func (e Emoji) Matches(other Emoji) bool {
	if e.ID != "" && e.ID == other.ID {
		return true
	}

	return e.Name != "" && e.Name == other.Name
}

func (e Emoji) String() string {
	if e.ID != "" {
		return "<:" + e.Name + ":" + e.ID + ">"
	}

	return e.Name
}

type ReactionTrigger struct {
	Emoji     Emoji  `json:"emoji"`
	ChannelID string `json:"channelId,omitempty"`
}

type ThreadTrigger struct {
	ThreadID string `json:"threadId"`
}

// Trigger содержит ровно одно заполненное поле, соответствующее Kind напоминания.
type Trigger struct {
	Timer    *TimerTrigger    `json:"timer,omitempty"`
	Mention  *MentionTrigger  `json:"mention,omitempty"`
	Keyword  *KeywordTrigger  `json:"keyword,omitempty"`
	Reaction *ReactionTrigger `json:"reaction,omitempty"`
	Thread   *ThreadTrigger   `json:"thread,omitempty"`
}

// Kind возвращает тип триггера или пустую строку, если заполнено не ровно одно поле.
func (t Trigger) Kind() Kind {
	var (
		kind  Kind
		count int
	)

	if t.Timer != nil {
		kind = KindTimer
		count++
	}

	if t.Mention != nil {
		kind = KindMention
		count++
	}

	if t.Keyword != nil {
		kind = KindKeyword
		count++
	}

	if t.Reaction != nil {
		kind = KindReaction
		count++
	}

	if t.Thread != nil {
		kind = KindThread
		count++
	}

	if count != 1 {
		return ""
	}

	return kind
}

func (t Trigger) Clone() Trigger {
	clone := Trigger{}

	if t.Timer != nil {
		timer := *t.Timer
		clone.Timer = &timer
	}

	if t.Mention != nil {
		mention := *t.Mention
		clone.Mention = &mention
	}

	if t.Keyword != nil {
		keyword := *t.Keyword
		clone.Keyword = &keyword
	}

	if t.Reaction != nil {
		reaction := *t.Reaction
		clone.Reaction = &reaction
	}

	if t.Thread != nil {
		thread := *t.Thread
		clone.Thread = &thread
	}

	return clone
}

// LocalDateTime настенное время без часового пояса.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

func LocalDateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// AddDays сдвигает календарную дату, сохраняя время суток.
func (d LocalDateTime) AddDays(days int) LocalDateTime {
	shifted := time.Date(d.Year, d.Month, d.Day+days, 0, 0, 0, 0, time.UTC)

	return LocalDateTime{
		Year:   shifted.Year(),
		Month:  shifted.Month(),
		Day:    shifted.Day(),
		Hour:   d.Hour,
		Minute: d.Minute,
	}
}
