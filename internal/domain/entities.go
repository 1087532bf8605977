package domain

import "time"

// CommandType перечисляет закрытый набор команд бота.
type CommandType string

const (
	CommandBind               CommandType = "bind"
	CommandUnbind             CommandType = "unbind"
	CommandQuery              CommandType = "query"
	CommandList               CommandType = "list"
	CommandHelp               CommandType = "help"
	CommandTestReminder       CommandType = "test_reminder"
	CommandProductionDateTest CommandType = "production_date_test"
	CommandQuota              CommandType = "quota"
)

// ScheduleEvent описывает одну датированную смену из объявления.
// DayOfWeek хранится так, как напечатано в тексте, и не сверяется с Date.
type ScheduleEvent struct {
	Date       time.Time `json:"date"`
	DayOfWeek  string    `json:"day_of_week"`
	Type       string    `json:"type"`
	Volunteers []string  `json:"volunteers"`
	RawText    string    `json:"raw_text"`
}

// Schedule представляет разобранное объявление группы.
// После создания не изменяется: новое объявление порождает новый Schedule.
type Schedule struct {
	ID         string
	GroupID    string
	Title      string
	Year       int
	Events     []ScheduleEvent
	RawMessage string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CreatedBy  string
}

// UserBinding связывает имя из списка дежурных с аккаунтом LINE внутри группы.
type UserBinding struct {
	GroupID     string
	DisplayName string
	UserID      string
	UserName    string
	BoundAt     time.Time
	BoundBy     string
}

// GroupInfo хранит сведения о группе, в которой присутствует бот.
type GroupInfo struct {
	GroupID      string
	GroupName    string
	BotJoinedAt  time.Time
	LastActiveAt time.Time
}

// ParsedCommand содержит распознанную команду и её аргументы.
type ParsedCommand struct {
	Type    CommandType
	Args    []string
	RawText string
}

// QuotaInfo описывает месячный лимит сообщений LINE.
type QuotaInfo struct {
	Quota     int64
	Used      int64
	Remaining int64
}

// Shift — одна запись личного напоминания: дата и тип активности.
type Shift struct {
	Date time.Time
	Type string
}
