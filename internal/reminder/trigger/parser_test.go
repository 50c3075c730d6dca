package trigger_test

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/central-university-dev/go-reminders/internal/domain/errors"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
	"github.com/central-university-dev/go-reminders/internal/reminder/trigger"
)

func TestParseDuration_Valid(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected time.Duration
	}{
		{name: "minutes with prefix", text: "dans 30m", expected: 30 * time.Minute},
		{name: "hours and mn spaced", text: "dans 1h 25mn", expected: 85 * time.Minute},
		{name: "glued components", text: "1h25mn", expected: 85 * time.Minute},
		{name: "min unit", text: "45min", expected: 45 * time.Minute},
		{name: "hr unit", text: "2hr", expected: 2 * time.Hour},
		{name: "space between number and unit", text: "in 3 h", expected: 3 * time.Hour},
		{name: "upper case", text: "DANS 10M", expected: 10 * time.Minute},
		{name: "russian prefix", text: "через 15m", expected: 15 * time.Minute},
		{name: "repeated units are summed", text: "10m 10m 10m", expected: 30 * time.Minute},
		{name: "lower bound", text: "1m", expected: time.Minute},
		{name: "upper bound", text: "24h", expected: 24 * time.Hour},
		{name: "upper bound in minutes", text: "23h 60m", expected: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, err := trigger.ParseDuration(tt.text)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, delay)
		})
	}
}

func TestParseDuration_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected error
	}{
		{name: "zero", text: "0m", expected: &domainerrors.ErrDurationTooShort{}},
		{name: "zero hours", text: "dans 0h 0mn", expected: &domainerrors.ErrDurationTooShort{}},
		{name: "over a day", text: "25h", expected: &domainerrors.ErrDurationTooLong{}},
		{name: "one minute over", text: "24h 1m", expected: &domainerrors.ErrDurationTooLong{}},
		{name: "huge number", text: "99999999999999999999m", expected: &domainerrors.ErrDurationTooLong{}},
		{name: "no unit", text: "dans 30", expected: &domainerrors.ErrInvalidTrigger{}},
		{name: "unknown unit", text: "5 minutes", expected: &domainerrors.ErrInvalidTrigger{}},
		{name: "empty", text: "", expected: &domainerrors.ErrInvalidTrigger{}},
		{name: "words only", text: "dans un moment", expected: &domainerrors.ErrInvalidTrigger{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trigger.ParseDuration(tt.text)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.True(t, domainerrors.IsValidation(err))
		})
	}
}

func TestParseDuration_TooLongReportsParsedMinutes(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		minutes int
	}{
		{name: "minutes", text: "3000m", minutes: 3000},
		{name: "hours", text: "30h", minutes: 1800},
		{name: "sum of components", text: "20h 300mn", minutes: 1500},
		{name: "overflow saturates", text: "99999999999999999999m", minutes: math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trigger.ParseDuration(tt.text)

			var target *domainerrors.ErrDurationTooLong
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.minutes, target.Minutes)
		})
	}
}

// Сумма компонентов всегда равна результату, а значения вне [1, 1440] отклоняются.
func TestParseDuration_SumProperty(t *testing.T) {
	for hours := 0; hours <= 25; hours++ {
		for _, minutes := range []int{0, 1, 7, 30, 59, 60, 61} {
			text := "dans " + strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "mn"
			total := hours*60 + minutes

			delay, err := trigger.ParseDuration(text)

			switch {
			case total < trigger.MinDelayMinutes:
				assert.ErrorIs(t, err, &domainerrors.ErrDurationTooShort{}, text)
			case total > trigger.MaxDelayMinutes:
				assert.ErrorIs(t, err, &domainerrors.ErrDurationTooLong{}, text)
			default:
				require.NoError(t, err, text)
				assert.Equal(t, time.Duration(total)*time.Minute, delay, text)
			}
		}
	}
}

func TestParseMention(t *testing.T) {
	mention, err := trigger.ParseMention("quand <@!123456> parle")
	require.NoError(t, err)
	assert.Equal(t, "123456", mention.TargetUserID)

	mention, err = trigger.ParseMention("<@42>")
	require.NoError(t, err)
	assert.Equal(t, "42", mention.TargetUserID)

	_, err = trigger.ParseMention("@someone")
	assert.ErrorIs(t, err, &domainerrors.ErrInvalidTrigger{})
}

func TestParseKeyword(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "quoted phrase", text: `"code review"`, expected: "code review"},
		{name: "keyword prefix", text: `keyword: "deploy"`, expected: "deploy"},
		{name: "keyword prefix without colon", text: `keyword "release notes"`, expected: "release notes"},
		{name: "guillemets", text: "«срочно»", expected: "срочно"},
		{name: "raw trimmed text", text: "  urgent  ", expected: "urgent"},
		{name: "raw phrase", text: "stand up", expected: "stand up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyword, err := trigger.ParseKeyword(tt.text)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, keyword.Pattern)
		})
	}

	_, err := trigger.ParseKeyword("   ")
	assert.ErrorIs(t, err, &domainerrors.ErrInvalidTrigger{})
}

func TestParseReaction(t *testing.T) {
	reaction, err := trigger.ParseReaction("emoji:👍 <#777>")
	require.NoError(t, err)
	assert.Equal(t, "👍", reaction.Emoji.Name)
	assert.Equal(t, "777", reaction.ChannelID)

	reaction, err = trigger.ParseReaction("<:party:998877>")
	require.NoError(t, err)
	assert.Equal(t, models.Emoji{Name: "party", ID: "998877"}, reaction.Emoji)
	assert.Empty(t, reaction.ChannelID)

	reaction, err = trigger.ParseReaction("🔥")
	require.NoError(t, err)
	assert.Equal(t, "🔥", reaction.Emoji.Name)

	_, err = trigger.ParseReaction("<#777> nothing here")
	assert.ErrorIs(t, err, &domainerrors.ErrInvalidTrigger{})
}

func TestParseThread(t *testing.T) {
	thread, err := trigger.ParseThread("thread: 123")
	require.NoError(t, err)
	assert.Equal(t, "123", thread.ThreadID)

	thread, err = trigger.ParseThread(" 456 ")
	require.NoError(t, err)
	assert.Equal(t, "456", thread.ThreadID)

	_, err = trigger.ParseThread("general")
	assert.ErrorIs(t, err, &domainerrors.ErrInvalidTrigger{})
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		text     string
		expected models.Kind
	}{
		{text: "dans 30m", expected: models.KindTimer},
		{text: "1h 25mn", expected: models.KindTimer},
		{text: "dans 30", expected: models.KindTimer},
		{text: "<@123>", expected: models.KindMention},
		{text: "emoji:👍", expected: models.KindReaction},
		{text: "<:party:1>", expected: models.KindReaction},
		{text: "thread:42", expected: models.KindThread},
		{text: "42", expected: models.KindThread},
		{text: `"urgent"`, expected: models.KindKeyword},
		{text: "urgent", expected: models.KindKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, trigger.DetectKind(tt.text))
		})
	}
}

func TestParse_TimerUsesNow(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	parsed, err := trigger.Parse(models.KindTimer, "dans 30m", now, "Europe/Paris")

	require.NoError(t, err)
	assert.Equal(t, models.KindTimer, parsed.Kind())
	assert.Equal(t, now.Add(30*time.Minute), parsed.Timer.FireAt)
	assert.Equal(t, "Europe/Paris", parsed.Timer.Timezone)
	assert.Equal(t, int64(1_800_000), parsed.Timer.FireAt.Sub(now).Milliseconds())
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := trigger.Parse("calendar", "x", time.Now(), "UTC")
	assert.ErrorIs(t, err, &domainerrors.ErrInvalidTrigger{})
}

func TestParseLocalDateTime(t *testing.T) {
	local, err := trigger.ParseLocalDateTime("29/03/2026", "09:00")
	require.NoError(t, err)
	assert.Equal(t, models.LocalDateTime{Year: 2026, Month: time.March, Day: 29, Hour: 9, Minute: 0}, local)

	_, err = trigger.ParseLocalDateTime("2026-03-29", "09:00")
	assert.True(t, domainerrors.IsValidation(err))

	_, err = trigger.ParseLocalDateTime("31/02/2026", "09:00")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	keyword := models.Trigger{Keyword: &models.KeywordTrigger{Pattern: "urgent"}}
	assert.Contains(t, trigger.Describe(keyword), "urgent")

	timer := models.Trigger{Timer: &models.TimerTrigger{
		FireAt:   time.Date(2026, time.July, 1, 7, 0, 0, 0, time.UTC),
		Timezone: "Europe/Paris",
	}}
	assert.Equal(t, "В 01/07/2026 09:00 (Europe/Paris)", trigger.Describe(timer))

	assert.Equal(t, "1ч 25мин", trigger.FormatDuration(85*time.Minute))
	assert.Equal(t, "30мин", trigger.FormatDuration(30*time.Minute))
	assert.Equal(t, "2ч", trigger.FormatDuration(2*time.Hour))
}
