package trigger

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

const (
	MinDelayMinutes = 1
	MaxDelayMinutes = 24 * 60
)

var (
	durationPrefixes = []string{"dans", "in", "через"}

	durationPattern  = regexp.MustCompile(`(?i)^(?:\s*\d+\s*(?:min|mn|m|hr|h))+\s*$`)
	componentPattern = regexp.MustCompile(`(?i)(\d+)\s*(min|mn|m|hr|h)`)

	mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

	keywordPrefixPattern = regexp.MustCompile(`(?i)^keyword[:\s]+`)
	quotedPattern        = regexp.MustCompile(`"([^"]+)"|«([^»]+)»`)

	channelPattern     = regexp.MustCompile(`<#(\d+)>`)
	emojiPrefixPattern = regexp.MustCompile(`(?i)emoji:(\S+)`)
	customEmojiPattern = regexp.MustCompile(`<a?:(\w+):(\d+)>`)

	threadPattern  = regexp.MustCompile(`(?i)thread[:\s]+(\d+)`)
	numericPattern = regexp.MustCompile(`^\d+$`)
)

// ParseDuration разбирает относительную задержку вида "dans 1h 25mn".
// Все компоненты суммируются, результат должен лежать в пределах [1 минута, 24 часа].
func ParseDuration(text string) (time.Duration, error) {
	body := strings.TrimSpace(text)
	lower := strings.ToLower(body)

	for _, prefix := range durationPrefixes {
		if strings.HasPrefix(lower, prefix+" ") {
			body = strings.TrimSpace(body[len(prefix):])
			break
		}
	}

	if body == "" || !durationPattern.MatchString(body) {
		return 0, &domainerrors.ErrInvalidTrigger{
			Kind:   string(models.KindTimer),
			Reason: "ожидается длительность вида 30m, 1h 25mn или 2hr",
		}
	}

	total := 0

	for _, component := range componentPattern.FindAllStringSubmatch(body, -1) {
		minutes := componentMinutes(component[1], strings.ToLower(component[2]))
		if minutes > MaxDelayMinutes {
			return 0, &domainerrors.ErrDurationTooLong{Minutes: minutes}
		}

		total += minutes

		if total > MaxDelayMinutes {
			return 0, &domainerrors.ErrDurationTooLong{Minutes: total}
		}
	}

	if total < MinDelayMinutes {
		return 0, &domainerrors.ErrDurationTooShort{Minutes: total}
	}

	return time.Duration(total) * time.Minute, nil
}

func ParseMention(text string) (*models.MentionTrigger, error) {
	match := mentionPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, &domainerrors.ErrInvalidTrigger{
			Kind:   string(models.KindMention),
			Reason: "укажите пользователя через упоминание",
		}
	}

	return &models.MentionTrigger{TargetUserID: match[1]}, nil
}

// ParseKeyword принимает фразу в кавычках или, если кавычек нет, весь текст без пробелов по краям.
func ParseKeyword(text string) (*models.KeywordTrigger, error) {
	body := keywordPrefixPattern.ReplaceAllString(strings.TrimSpace(text), "")

	pattern := strings.TrimSpace(body)

	if match := quotedPattern.FindStringSubmatch(body); match != nil {
		pattern = strings.TrimSpace(match[1] + match[2])
	}

	if pattern == "" {
		return nil, &domainerrors.ErrInvalidTrigger{
			Kind:   string(models.KindKeyword),
			Reason: "ключевое слово не может быть пустым",
		}
	}

	return &models.KeywordTrigger{Pattern: pattern}, nil
}

// ParseReaction требует эмодзи, канал необязателен и ограничивает срабатывание этим каналом.
func ParseReaction(text string) (*models.ReactionTrigger, error) {
	reaction := &models.ReactionTrigger{}

	if match := channelPattern.FindStringSubmatch(text); match != nil {
		reaction.ChannelID = match[1]
	}

	rest := channelPattern.ReplaceAllString(text, " ")

	if match := emojiPrefixPattern.FindStringSubmatch(rest); match != nil {
		rest = match[1]
	}

	if match := customEmojiPattern.FindStringSubmatch(rest); match != nil {
		reaction.Emoji = models.Emoji{Name: match[1], ID: match[2]}
		return reaction, nil
	}

	for _, field := range strings.Fields(rest) {
		if isEmojiToken(field) {
			reaction.Emoji = models.Emoji{Name: field}
			return reaction, nil
		}
	}

	return nil, &domainerrors.ErrInvalidTrigger{
		Kind:   string(models.KindReaction),
		Reason: "укажите эмодзи, например emoji:👍",
	}
}

func ParseThread(text string) (*models.ThreadTrigger, error) {
	if match := threadPattern.FindStringSubmatch(text); match != nil {
		return &models.ThreadTrigger{ThreadID: match[1]}, nil
	}

	body := strings.TrimSpace(text)
	if numericPattern.MatchString(body) {
		return &models.ThreadTrigger{ThreadID: body}, nil
	}

	return nil, &domainerrors.ErrInvalidTrigger{
		Kind:   string(models.KindThread),
		Reason: "укажите идентификатор треда",
	}
}

// DetectKind определяет тип триггера по тексту.
func DetectKind(text string) models.Kind {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case mentionPattern.MatchString(text):
		return models.KindMention
	case emojiPrefixPattern.MatchString(text) || customEmojiPattern.MatchString(text):
		return models.KindReaction
	case threadPattern.MatchString(text) || numericPattern.MatchString(lower):
		return models.KindThread
	case keywordPrefixPattern.MatchString(lower) || quotedPattern.MatchString(text):
		return models.KindKeyword
	}

	if _, err := ParseDuration(text); err == nil || looksLikeDuration(lower) {
		return models.KindTimer
	}

	return models.KindKeyword
}

// Parse разбирает текст триггера заданного типа. Для таймера момент срабатывания
// отсчитывается от now, часовой пояс сохраняется для отображения.
func Parse(kind models.Kind, text string, now time.Time, timezone string) (models.Trigger, error) {
	switch kind {
	case models.KindTimer:
		delay, err := ParseDuration(text)
		if err != nil {
			return models.Trigger{}, err
		}

		return models.Trigger{Timer: &models.TimerTrigger{FireAt: now.Add(delay).UTC(), Timezone: timezone}}, nil
	case models.KindMention:
		mention, err := ParseMention(text)
		if err != nil {
			return models.Trigger{}, err
		}

		return models.Trigger{Mention: mention}, nil
	case models.KindKeyword:
		keyword, err := ParseKeyword(text)
		if err != nil {
			return models.Trigger{}, err
		}

		return models.Trigger{Keyword: keyword}, nil
	case models.KindReaction:
		reaction, err := ParseReaction(text)
		if err != nil {
			return models.Trigger{}, err
		}

		return models.Trigger{Reaction: reaction}, nil
	case models.KindThread:
		thread, err := ParseThread(text)
		if err != nil {
			return models.Trigger{}, err
		}

		return models.Trigger{Thread: thread}, nil
	default:
		return models.Trigger{}, &domainerrors.ErrInvalidTrigger{Kind: string(kind), Reason: "неизвестный тип напоминания"}
	}
}

func looksLikeDuration(lower string) bool {
	for _, prefix := range durationPrefixes {
		if strings.HasPrefix(lower, prefix+" ") {
			return true
		}
	}

	return false
}

func isEmojiToken(token string) bool {
	if strings.HasPrefix(token, ":") && strings.HasSuffix(token, ":") && len(token) > 2 {
		return true
	}

	for _, r := range token {
		if r > 0x2000 {
			return true
		}
	}

	return false
}

// componentMinutes переводит одну компоненту длительности в минуты.
// Значения, не помещающиеся в int, насыщаются до math.MaxInt.
func componentMinutes(digits, unit string) int {
	value, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}

	if unit == "h" || unit == "hr" {
		if value > math.MaxInt/60 {
			return math.MaxInt
		}

		return value * 60
	}

	return value
}
