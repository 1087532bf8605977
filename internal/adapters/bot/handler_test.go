package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/rs/zerolog"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/usecase/remind"
)

type stubMessenger struct {
	replies    []string
	pushes     map[string][]string
	memberName string
	failPush   map[string]bool
	quota      domain.QuotaInfo
	quotaErr   error
}

func newStubMessenger() *stubMessenger {
	return &stubMessenger{
		pushes:     make(map[string][]string),
		failPush:   make(map[string]bool),
		memberName: "小明",
	}
}

func (s *stubMessenger) ReplyText(ctx context.Context, replyToken, text string) error {
	s.replies = append(s.replies, text)
	return nil
}

func (s *stubMessenger) PushText(ctx context.Context, to, text string) error {
	if s.failPush[to] {
		return errors.New("пользователь не в друзьях")
	}
	s.pushes[to] = append(s.pushes[to], text)
	return nil
}

func (s *stubMessenger) GetMemberName(ctx context.Context, groupID, userID string) (string, error) {
	return s.memberName, nil
}

func (s *stubMessenger) GetQuota(ctx context.Context) (domain.QuotaInfo, error) {
	return s.quota, s.quotaErr
}

type stubScheduleRepo struct {
	saved  []domain.Schedule
	latest *domain.Schedule
}

func (s *stubScheduleRepo) SaveSchedule(ctx context.Context, schedule domain.Schedule) (string, error) {
	s.saved = append(s.saved, schedule)
	return "S1", nil
}

func (s *stubScheduleRepo) GetLatestSchedule(ctx context.Context, groupID string) (*domain.Schedule, error) {
	return s.latest, nil
}

type stubBindingRepo struct {
	bound    []domain.UserBinding
	byUserID *domain.UserBinding
	all      []domain.UserBinding
	removed  []string
	haveName bool
}

func (s *stubBindingRepo) BindUser(ctx context.Context, binding domain.UserBinding) error {
	s.bound = append(s.bound, binding)
	return nil
}

func (s *stubBindingRepo) UnbindUser(ctx context.Context, groupID, displayName string) (bool, error) {
	s.removed = append(s.removed, displayName)
	return s.haveName, nil
}

func (s *stubBindingRepo) GetBinding(ctx context.Context, groupID, displayName string) (*domain.UserBinding, error) {
	return nil, nil
}

func (s *stubBindingRepo) GetBindingByUserID(ctx context.Context, groupID, userID string) (*domain.UserBinding, error) {
	return s.byUserID, nil
}

func (s *stubBindingRepo) ListBindings(ctx context.Context, groupID string) ([]domain.UserBinding, error) {
	return s.all, nil
}

func (s *stubBindingRepo) GetBindingsForNames(ctx context.Context, groupID string, displayNames []string) (map[string]domain.UserBinding, error) {
	return map[string]domain.UserBinding{}, nil
}

type stubGroupRepo struct {
	saved  []string
	joined []string
}

func (s *stubGroupRepo) SaveGroupInfo(ctx context.Context, groupID, groupName string) error {
	s.saved = append(s.saved, groupID)
	return nil
}

func (s *stubGroupRepo) SetBotJoinedAt(ctx context.Context, groupID string) error {
	s.joined = append(s.joined, groupID)
	return nil
}

func (s *stubGroupRepo) GetAllGroups(ctx context.Context) ([]domain.GroupInfo, error) {
	return nil, nil
}

type fixture struct {
	handler   *Handler
	messenger *stubMessenger
	schedules *stubScheduleRepo
	bindings  *stubBindingRepo
	groups    *stubGroupRepo
}

func newFixture() *fixture {
	messenger := newStubMessenger()
	schedules := &stubScheduleRepo{}
	bindings := &stubBindingRepo{}
	groups := &stubGroupRepo{}
	reminder := remind.NewService(schedules, bindings, groups, messenger, zerolog.Nop())
	handler := NewHandler(messenger, zerolog.Nop(), reminder, schedules, bindings, groups, time.UTC)
	return &fixture{handler: handler, messenger: messenger, schedules: schedules, bindings: bindings, groups: groups}
}

func groupTextEvent(text string, mention bool) *linebot.Event {
	message := &linebot.TextMessage{Text: text}
	if mention {
		message.Mention = &linebot.Mention{Mentionees: []*linebot.Mentionee{{Index: 0, Length: 4, UserID: "BOT"}}}
	}
	return &linebot.Event{
		Type:       linebot.EventTypeMessage,
		ReplyToken: "RT",
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeGroup, GroupID: "G1", UserID: "U1"},
		Message:    message,
	}
}

func privateTextEvent(text string) *linebot.Event {
	return &linebot.Event{
		Type:       linebot.EventTypeMessage,
		ReplyToken: "RT",
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: "U1"},
		Message:    &linebot.TextMessage{Text: text},
	}
}

func lastReply(t *testing.T, f *fixture) string {
	t.Helper()
	if len(f.messenger.replies) == 0 {
		t.Fatal("ответ не отправлен")
	}
	return f.messenger.replies[len(f.messenger.replies)-1]
}

func TestBindCommand(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!綁定 user1", false))

	if len(f.bindings.bound) != 1 {
		t.Fatalf("привязок сохранено %d, ожидали 1", len(f.bindings.bound))
	}
	binding := f.bindings.bound[0]
	if binding.GroupID != "G1" || binding.DisplayName != "user1" || binding.UserID != "U1" || binding.UserName != "小明" {
		t.Fatalf("привязка: %+v", binding)
	}

	if len(f.messenger.pushes["U1"]) != 1 {
		t.Fatal("тестовое личное сообщение не отправлено")
	}
	mustContain(t, f.messenger.pushes["U1"][0], "🎉 綁定測試成功！")

	reply := lastReply(t, f)
	mustContain(t, reply, "✅ 小明 已綁定為「user1」")
	mustContain(t, reply, "✅ 已發送測試私訊給您")
}

func TestBindCommandPrivateMessageFails(t *testing.T) {
	f := newFixture()
	f.messenger.failPush["U1"] = true
	f.handler.HandleEvent(context.Background(), groupTextEvent("!綁定 user1", false))

	if len(f.bindings.bound) != 1 {
		t.Fatal("привязка должна сохраняться даже без личного сообщения")
	}
	mustContain(t, lastReply(t, f), "⚠️ 無法發送私訊，請確認已加我為好友")
}

func TestBindCommandWithoutArgs(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!綁定", false))

	if len(f.bindings.bound) != 0 {
		t.Fatal("привязка без имени недопустима")
	}
	mustContain(t, lastReply(t, f), "❌ 請指定要綁定的名稱")
}

func TestUnbindSelf(t *testing.T) {
	f := newFixture()
	f.bindings.byUserID = &domain.UserBinding{GroupID: "G1", DisplayName: "user1", UserID: "U1"}
	f.bindings.haveName = true
	f.handler.HandleEvent(context.Background(), groupTextEvent("!解綁", false))

	if len(f.bindings.removed) != 1 || f.bindings.removed[0] != "user1" {
		t.Fatalf("снятые привязки: %v", f.bindings.removed)
	}
	mustContain(t, lastReply(t, f), "✅ 已解除「user1」的綁定")
}

func TestUnbindSelfWithoutBinding(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!解綁", false))
	mustContain(t, lastReply(t, f), "❌ 您尚未綁定任何名稱")
}

func TestUnbindByNameNotFound(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!解綁 user9", false))
	mustContain(t, lastReply(t, f), "❌ 找不到「user9」的綁定")
}

func TestQueryCommand(t *testing.T) {
	f := newFixture()
	f.bindings.byUserID = &domain.UserBinding{
		GroupID:     "G1",
		DisplayName: "user1",
		UserID:      "U1",
		UserName:    "小明",
		BoundAt:     time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	f.handler.HandleEvent(context.Background(), groupTextEvent("!查詢", false))

	reply := lastReply(t, f)
	mustContain(t, reply, "📋 您的綁定資訊：")
	mustContain(t, reply, "📝 名稱：user1")
	mustContain(t, reply, "👤 LINE 帳號：小明")
	mustContain(t, reply, "📅 綁定時間：2026/01/02")
}

func TestListCommand(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!列表", false))
	mustContain(t, lastReply(t, f), "📋 目前沒有任何綁定")

	f.bindings.all = []domain.UserBinding{
		{DisplayName: "user1", UserName: "小明"},
		{DisplayName: "user2", UserName: "小華"},
	}
	f.handler.HandleEvent(context.Background(), groupTextEvent("!列表", false))
	reply := lastReply(t, f)
	mustContain(t, reply, "📋 綁定列表：")
	mustContain(t, reply, "• user1 → 小明")
	mustContain(t, reply, "• user2 → 小華")
}

func TestQuotaCommand(t *testing.T) {
	f := newFixture()
	f.messenger.quota = domain.QuotaInfo{Quota: 500, Used: 120, Remaining: 380}
	f.handler.HandleEvent(context.Background(), groupTextEvent("!用量", false))

	reply := lastReply(t, f)
	mustContain(t, reply, "📊 本月訊息用量")
	mustContain(t, reply, "🔹 總額度：500 則")
	mustContain(t, reply, "🔸 已使用：120 則")
	mustContain(t, reply, "✅ 剩餘：380 則")
}

func TestScheduleCaptureRequiresMention(t *testing.T) {
	message := strings.Join([]string{
		"115年排班",
		"---",
		"1/04(日)共修: user1、user2",
		"1/11(日)法會: user1",
	}, "\n")

	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent(message, false))
	if len(f.schedules.saved) != 0 {
		t.Fatal("без упоминания объявление не должно сохраняться")
	}
	if len(f.messenger.replies) != 0 {
		t.Fatalf("без упоминания ответов быть не должно: %v", f.messenger.replies)
	}

	f.handler.HandleEvent(context.Background(), groupTextEvent(message, true))
	if len(f.schedules.saved) != 1 {
		t.Fatalf("объявлений сохранено %d, ожидали 1", len(f.schedules.saved))
	}
	reply := lastReply(t, f)
	mustContain(t, reply, "✅ 已儲存活動排程！")
	mustContain(t, reply, "📋 115年排班")
	mustContain(t, reply, "📅 共 2 場活動")
	mustContain(t, reply, "👥 共 2 位志工")
	mustContain(t, reply, "!綁定 <名稱>")
}

func TestMentionWithoutScheduleShowsHelp(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("你好呀", true))
	mustContain(t, lastReply(t, f), "📚 活動提醒機器人使用說明")
}

func TestUnparsableScheduleReturnsFormatHint(t *testing.T) {
	// дата с двоеточием есть, но меньше трёх строк
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("1/04(日)共修: user1", true))
	if len(f.schedules.saved) != 0 {
		t.Fatal("невалидное объявление не должно сохраняться")
	}
	mustContain(t, lastReply(t, f), "❌ 無法解析活動排程")
}

func TestPrivateChatSupportsHelpAndQuotaOnly(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), privateTextEvent("!幫助"))
	mustContain(t, lastReply(t, f), "📚 活動提醒機器人使用說明")

	f.handler.HandleEvent(context.Background(), privateTextEvent("!用量"))
	mustContain(t, lastReply(t, f), "📊 本月訊息用量")

	f.handler.HandleEvent(context.Background(), privateTextEvent("!綁定 user1"))
	if len(f.bindings.bound) != 0 {
		t.Fatal("привязка из личного чата недопустима")
	}
	mustContain(t, lastReply(t, f), "💡 其他功能請在群組中使用")

	f.handler.HandleEvent(context.Background(), privateTextEvent("привет"))
	mustContain(t, lastReply(t, f), "👋 您好！我是活動提醒機器人")
}

func TestJoinEvent(t *testing.T) {
	f := newFixture()
	event := &linebot.Event{
		Type:       linebot.EventTypeJoin,
		ReplyToken: "RT",
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeGroup, GroupID: "G1"},
	}
	f.handler.HandleEvent(context.Background(), event)

	if len(f.groups.joined) != 1 || f.groups.joined[0] != "G1" {
		t.Fatalf("вступление не отмечено: %v", f.groups.joined)
	}
	mustContain(t, lastReply(t, f), "👋 大家好！我是活動提醒機器人")
}

func TestGroupActivityTracked(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("обычное сообщение", false))
	if len(f.groups.saved) != 1 || f.groups.saved[0] != "G1" {
		t.Fatalf("активность группы не зафиксирована: %v", f.groups.saved)
	}
}

func TestTestReminderWithoutSchedule(t *testing.T) {
	f := newFixture()
	f.handler.HandleEvent(context.Background(), groupTextEvent("!測試提醒", false))
	mustContain(t, lastReply(t, f), "❌ 尚未設定活動排程")
}

func mustContain(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("ожидали найти подстроку %q в %q", substr, s)
	}
}
