package matcher

import (
	"context"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/central-university-dev/go-reminders/internal/common/metrics"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const tracerName = "github.com/central-university-dev/go-reminders/internal/reminder/matcher"

var contextualKinds = []models.Kind{
	models.KindMention,
	models.KindKeyword,
	models.KindReaction,
	models.KindThread,
}

type ReminderStore interface {
	Get(id string) (models.Reminder, bool)
	ByGroup(groupID string) []models.Reminder
	Active(kinds ...models.Kind) []models.Reminder
	IncrementTriggerCount(ctx context.Context, id string) (int, bool)
}

type Dispatcher interface {
	Deliver(ctx context.Context, reminder models.Reminder, fireCtx models.FireContext) models.DeliveryResult
}

// Matcher сопоставляет события платформы с контекстными напоминаниями.
// Сработавшие напоминания остаются активными до удаления владельцем.
type Matcher struct {
	store      ReminderStore
	dispatcher Dispatcher
	keywords   *keywordIndex
	tracer     trace.Tracer
	logger     *slog.Logger
}

func New(store ReminderStore, dispatcher Dispatcher, logger *slog.Logger) *Matcher {
	return &Matcher{
		store:      store,
		dispatcher: dispatcher,
		keywords:   newKeywordIndex(),
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// OnMessage обрабатывает новое сообщение и возвращает число сработавших напоминаний.
func (m *Matcher) OnMessage(ctx context.Context, event models.MessageEvent) int {
	metrics.RecordEvent("message")

	if event.AuthorIsBot {
		return 0
	}

	ctx, span := m.tracer.Start(ctx, "matcher.OnMessage", trace.WithAttributes(
		attribute.String("group.id", event.GroupID),
		attribute.String("channel.id", event.ChannelID),
	))
	defer span.End()

	candidates := m.candidates(event.GroupID, event.ChannelID)
	if len(candidates) == 0 {
		return 0
	}

	keywords, err := m.matchKeywords(event, candidates)
	if err != nil {
		m.logger.Error("Ошибка при поиске ключевых слов",
			"error", err,
			"channel", event.ChannelID,
		)
	}

	fired := 0

	for i := range candidates {
		reminder := &candidates[i]

		reason, ok := matchMessage(reminder, event, keywords)
		if !ok {
			continue
		}

		if m.fire(ctx, reminder, models.FireContext{
			Reason:    reason,
			ChannelID: event.ChannelID,
			ThreadID:  event.ThreadID,
			ActorID:   event.AuthorID,
			Excerpt:   excerpt(event.Text),
			EventURL:  event.URL,
			At:        event.PostedAt,
		}) {
			fired++
		}
	}

	span.SetAttributes(attribute.Int("reminders.fired", fired))

	return fired
}

// OnReactionAdded обрабатывает добавленную реакцию и возвращает число сработавших напоминаний.
func (m *Matcher) OnReactionAdded(ctx context.Context, event models.ReactionEvent) int {
	metrics.RecordEvent("reaction")

	if event.UserIsBot {
		return 0
	}

	ctx, span := m.tracer.Start(ctx, "matcher.OnReactionAdded", trace.WithAttributes(
		attribute.String("group.id", event.GroupID),
		attribute.String("channel.id", event.ChannelID),
		attribute.String("emoji", event.Emoji.String()),
	))
	defer span.End()

	fired := 0

	for _, reminder := range m.candidates(event.GroupID, event.ChannelID) {
		if reminder.Kind != models.KindReaction || !matchReaction(reminder.Trigger.Reaction, event) {
			continue
		}

		if m.fire(ctx, &reminder, models.FireContext{
			Reason:    models.ReasonReaction,
			ChannelID: event.ChannelID,
			ActorID:   event.UserID,
			Excerpt:   event.Emoji.String(),
			EventURL:  event.URL,
			At:        event.AddedAt,
		}) {
			fired++
		}
	}

	span.SetAttributes(attribute.Int("reminders.fired", fired))

	return fired
}

// candidates возвращает активные контекстные напоминания группы. Для личных
// сообщений (пустая группа) берутся напоминания, созданные в том же канале.
func (m *Matcher) candidates(groupID, channelID string) []models.Reminder {
	var pool []models.Reminder

	if groupID != "" {
		pool = m.store.ByGroup(groupID)
	} else {
		pool = m.store.Active(contextualKinds...)
	}

	result := pool[:0]

	for _, reminder := range pool {
		if !reminder.Kind.IsContextual() || !reminder.IsActive() {
			continue
		}

		if groupID == "" && (reminder.GroupID != "" || reminder.OriginChannelID != channelID) {
			continue
		}

		result = append(result, reminder)
	}

	return result
}

func (m *Matcher) matchKeywords(event models.MessageEvent, candidates []models.Reminder) (map[string]bool, error) {
	var patterns []string

	for _, reminder := range candidates {
		if reminder.Kind == models.KindKeyword && reminder.Trigger.Keyword != nil {
			patterns = append(patterns, reminder.Trigger.Keyword.Pattern)
		}
	}

	scope := event.GroupID
	if scope == "" {
		scope = "dm:" + event.ChannelID
	}

	return m.keywords.Match(scope, patterns, event.Text)
}

func (m *Matcher) fire(ctx context.Context, reminder *models.Reminder, fireCtx models.FireContext) bool {
	// Напоминание могло быть удалено после выборки кандидатов.
	current, ok := m.store.Get(reminder.ID)
	if !ok || !current.IsActive() {
		return false
	}

	metrics.RecordMatch(string(current.Kind))

	result := m.dispatcher.Deliver(ctx, current, fireCtx)
	if !result.Delivered() {
		m.logger.Error("Не удалось доставить контекстное напоминание",
			"id", current.ID,
			"kind", current.Kind,
			"error", result.Err,
		)

		return false
	}

	count, _ := m.store.IncrementTriggerCount(ctx, current.ID)

	m.logger.Info("Контекстное напоминание сработало",
		"id", current.ID,
		"kind", current.Kind,
		"triggeredCount", count,
	)

	return true
}

func matchMessage(reminder *models.Reminder, event models.MessageEvent, keywords map[string]bool) (models.FireReason, bool) {
	switch reminder.Kind {
	case models.KindMention:
		if reminder.Trigger.Mention != nil && slices.Contains(event.Mentions, reminder.Trigger.Mention.TargetUserID) {
			return models.ReasonMention, true
		}
	case models.KindKeyword:
		if reminder.Trigger.Keyword != nil && keywords[normalizeKeyword(reminder.Trigger.Keyword.Pattern)] {
			return models.ReasonKeyword, true
		}
	case models.KindThread:
		if reminder.Trigger.Thread != nil && event.ThreadID != "" && event.ThreadID == reminder.Trigger.Thread.ThreadID {
			return models.ReasonThread, true
		}
	}

	return "", false
}

func matchReaction(trigger *models.ReactionTrigger, event models.ReactionEvent) bool {
	if trigger == nil || !trigger.Emoji.Matches(event.Emoji) {
		return false
	}

	return trigger.ChannelID == "" || trigger.ChannelID == event.ChannelID
}

func normalizeKeyword(pattern string) string {
	normalized := normalizePatterns([]string{pattern})
	if len(normalized) == 0 {
		return ""
	}

	return normalized[0]
}

const excerptLimit = 200

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}

	return string(runes[:excerptLimit]) + "…"
}
