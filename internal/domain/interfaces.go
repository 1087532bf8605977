package domain

import (
	"context"
	"time"
)

// ScheduleRepo управляет расписаниями групп.
// У каждой группы актуально только последнее расписание.
type ScheduleRepo interface {
	SaveSchedule(ctx context.Context, schedule Schedule) (string, error)
	GetLatestSchedule(ctx context.Context, groupID string) (*Schedule, error)
}

// BindingRepo управляет привязками имён дежурных к аккаунтам LINE.
type BindingRepo interface {
	BindUser(ctx context.Context, binding UserBinding) error
	UnbindUser(ctx context.Context, groupID, displayName string) (bool, error)
	GetBinding(ctx context.Context, groupID, displayName string) (*UserBinding, error)
	GetBindingByUserID(ctx context.Context, groupID, userID string) (*UserBinding, error)
	ListBindings(ctx context.Context, groupID string) ([]UserBinding, error)
	GetBindingsForNames(ctx context.Context, groupID string, displayNames []string) (map[string]UserBinding, error)
}

// GroupRepo управляет сведениями о группах.
type GroupRepo interface {
	SaveGroupInfo(ctx context.Context, groupID, groupName string) error
	SetBotJoinedAt(ctx context.Context, groupID string) error
	GetAllGroups(ctx context.Context) ([]GroupInfo, error)
}

// Messenger отправляет сообщения через платформу чата.
// Каждый вызов падает независимо и восстановимо.
type Messenger interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	PushText(ctx context.Context, to, text string) error
	GetMemberName(ctx context.Context, groupID, userID string) (string, error)
	GetQuota(ctx context.Context) (QuotaInfo, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
