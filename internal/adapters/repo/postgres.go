package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ScheduleRepo = (*Postgres)(nil)
	_ domain.BindingRepo  = (*Postgres)(nil)
	_ domain.GroupRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// SaveSchedule сохраняет новое расписание группы. Старые записи не
// перезаписываются: актуальной считается последняя по created_at.
func (p *Postgres) SaveSchedule(ctx context.Context, schedule domain.Schedule) (string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	events, err := json.Marshal(schedule.Events)
	if err != nil {
		return "", fmt.Errorf("marshal events: %w", err)
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO schedules (id, group_id, title, year, events, raw_message, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, schedule.ID, schedule.GroupID, schedule.Title, schedule.Year, events, schedule.RawMessage, schedule.CreatedBy, schedule.CreatedAt, schedule.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "schedules_insert", "schedules", start, err)
	if err != nil {
		return "", err
	}
	return schedule.ID, nil
}

// GetLatestSchedule возвращает последнее расписание группы или nil.
func (p *Postgres) GetLatestSchedule(ctx context.Context, groupID string) (*domain.Schedule, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		schedule domain.Schedule
		events   []byte
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, group_id, title, year, events, raw_message, created_by, created_at, updated_at
FROM schedules
WHERE group_id = $1
ORDER BY created_at DESC
LIMIT 1
`, groupID).Scan(&schedule.ID, &schedule.GroupID, &schedule.Title, &schedule.Year, &events, &schedule.RawMessage, &schedule.CreatedBy, &schedule.CreatedAt, &schedule.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "schedules_latest", "schedules", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(events, &schedule.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return &schedule, nil
}

// BindUser сохраняет привязку; повторная привязка того же имени
// перезаписывает предыдущую.
func (p *Postgres) BindUser(ctx context.Context, binding domain.UserBinding) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO user_bindings (group_id, display_name, user_id, user_name, bound_at, bound_by)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (group_id, display_name) DO UPDATE SET user_id = EXCLUDED.user_id, user_name = EXCLUDED.user_name, bound_at = EXCLUDED.bound_at, bound_by = EXCLUDED.bound_by
`, binding.GroupID, binding.DisplayName, binding.UserID, binding.UserName, binding.BoundAt, binding.BoundBy)
	metrics.ObserveNetworkRequest("postgres", "bindings_upsert", "user_bindings", start, err)
	return err
}

// UnbindUser удаляет привязку по имени. Возвращает false, если её не было.
func (p *Postgres) UnbindUser(ctx context.Context, groupID, displayName string) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM user_bindings WHERE group_id = $1 AND display_name = $2
`, groupID, displayName)
	metrics.ObserveNetworkRequest("postgres", "bindings_delete", "user_bindings", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetBinding возвращает привязку по имени дежурного или nil.
func (p *Postgres) GetBinding(ctx context.Context, groupID, displayName string) (*domain.UserBinding, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var binding domain.UserBinding
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT group_id, display_name, user_id, user_name, bound_at, bound_by
FROM user_bindings
WHERE group_id = $1 AND display_name = $2
`, groupID, displayName).Scan(&binding.GroupID, &binding.DisplayName, &binding.UserID, &binding.UserName, &binding.BoundAt, &binding.BoundBy)
	metrics.ObserveNetworkRequest("postgres", "bindings_get", "user_bindings", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

// GetBindingByUserID возвращает привязку по аккаунту LINE или nil.
func (p *Postgres) GetBindingByUserID(ctx context.Context, groupID, userID string) (*domain.UserBinding, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var binding domain.UserBinding
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT group_id, display_name, user_id, user_name, bound_at, bound_by
FROM user_bindings
WHERE group_id = $1 AND user_id = $2
ORDER BY bound_at DESC
LIMIT 1
`, groupID, userID).Scan(&binding.GroupID, &binding.DisplayName, &binding.UserID, &binding.UserName, &binding.BoundAt, &binding.BoundBy)
	metrics.ObserveNetworkRequest("postgres", "bindings_get_by_user", "user_bindings", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

// ListBindings возвращает все привязки группы.
func (p *Postgres) ListBindings(ctx context.Context, groupID string) ([]domain.UserBinding, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT group_id, display_name, user_id, user_name, bound_at, bound_by
FROM user_bindings
WHERE group_id = $1
ORDER BY bound_at
`, groupID)
	metrics.ObserveNetworkRequest("postgres", "bindings_list", "user_bindings", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []domain.UserBinding
	for rows.Next() {
		var binding domain.UserBinding
		if err := rows.Scan(&binding.GroupID, &binding.DisplayName, &binding.UserID, &binding.UserName, &binding.BoundAt, &binding.BoundBy); err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	return bindings, rows.Err()
}

// GetBindingsForNames возвращает привязки для указанных имён одной выборкой.
func (p *Postgres) GetBindingsForNames(ctx context.Context, groupID string, displayNames []string) (map[string]domain.UserBinding, error) {
	result := make(map[string]domain.UserBinding, len(displayNames))
	if len(displayNames) == 0 {
		return result, nil
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT group_id, display_name, user_id, user_name, bound_at, bound_by
FROM user_bindings
WHERE group_id = $1 AND display_name = ANY($2)
`, groupID, displayNames)
	metrics.ObserveNetworkRequest("postgres", "bindings_for_names", "user_bindings", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var binding domain.UserBinding
		if err := rows.Scan(&binding.GroupID, &binding.DisplayName, &binding.UserID, &binding.UserName, &binding.BoundAt, &binding.BoundBy); err != nil {
			return nil, err
		}
		result[binding.DisplayName] = binding
	}
	return result, rows.Err()
}

// SaveGroupInfo обновляет сведения о группе и время последней активности.
func (p *Postgres) SaveGroupInfo(ctx context.Context, groupID, groupName string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO groups (group_id, group_name, last_active_at)
VALUES ($1, NULLIF($2, ''), now())
ON CONFLICT (group_id) DO UPDATE SET group_name = COALESCE(NULLIF(EXCLUDED.group_name, ''), groups.group_name), last_active_at = now()
`, groupID, groupName)
	metrics.ObserveNetworkRequest("postgres", "groups_upsert", "groups", start, err)
	return err
}

// SetBotJoinedAt отмечает вступление бота в группу.
func (p *Postgres) SetBotJoinedAt(ctx context.Context, groupID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO groups (group_id, bot_joined_at, last_active_at)
VALUES ($1, now(), now())
ON CONFLICT (group_id) DO UPDATE SET bot_joined_at = now(), last_active_at = now()
`, groupID)
	metrics.ObserveNetworkRequest("postgres", "groups_set_joined", "groups", start, err)
	return err
}

// GetAllGroups возвращает все группы, где присутствует бот.
func (p *Postgres) GetAllGroups(ctx context.Context) ([]domain.GroupInfo, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT group_id, COALESCE(group_name, ''), COALESCE(bot_joined_at, to_timestamp(0)), COALESCE(last_active_at, to_timestamp(0))
FROM groups
ORDER BY group_id
`)
	metrics.ObserveNetworkRequest("postgres", "groups_list", "groups", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.GroupInfo
	for rows.Next() {
		var group domain.GroupInfo
		if err := rows.Scan(&group.GroupID, &group.GroupName, &group.BotJoinedAt, &group.LastActiveAt); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}
