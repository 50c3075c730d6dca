package models

type CommandType string

const (
	CommandStart    CommandType = "/start"
	CommandHelp     CommandType = "/help"
	CommandRemind   CommandType = "/remind"
	CommandAt       CommandType = "/at"
	CommandList     CommandType = "/list"
	CommandDelete   CommandType = "/delete"
	CommandComplete CommandType = "/complete"
	CommandSnooze   CommandType = "/snooze"
	CommandStats    CommandType = "/stats"
	CommandUnknown  CommandType = "unknown"
)

type Command struct {
	Type     CommandType
	ChatID   int64
	UserID   int64
	Text     string
	Args     string
	Username string
	// IsPrivate истинно для личного чата с ботом.
	IsPrivate bool
}
