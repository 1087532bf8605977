package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/rs/zerolog"

	lineadapter "line-shift-bot/internal/adapters/line"
	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/metrics"
	"line-shift-bot/internal/usecase/parse"
	"line-shift-bot/internal/usecase/remind"
)

// Handler обслуживает вебхук бота.
type Handler struct {
	messenger domain.Messenger
	log       zerolog.Logger
	reminder  *remind.Service
	schedules domain.ScheduleRepo
	bindings  domain.BindingRepo
	groups    domain.GroupRepo
	loc       *time.Location
}

// NewHandler создаёт обработчик.
func NewHandler(messenger domain.Messenger, log zerolog.Logger, reminder *remind.Service, schedules domain.ScheduleRepo, bindings domain.BindingRepo, groups domain.GroupRepo, loc *time.Location) *Handler {
	return &Handler{
		messenger: messenger,
		log:       log,
		reminder:  reminder,
		schedules: schedules,
		bindings:  bindings,
		groups:    groups,
		loc:       loc,
	}
}

// HandleEvent обрабатывает входящее событие вебхука.
func (h *Handler) HandleEvent(ctx context.Context, event *linebot.Event) {
	if event.Type == linebot.EventTypeJoin {
		h.handleBotJoin(ctx, event)
		return
	}

	if event.Type != linebot.EventTypeMessage {
		return
	}
	textMessage, ok := event.Message.(*linebot.TextMessage)
	if !ok {
		return
	}

	message := textMessage.Text
	command := parse.ParseCommand(message)

	// в личных сообщениях доступны только помощь и квота
	if event.Source != nil && event.Source.Type == linebot.EventSourceTypeUser {
		if command != nil {
			switch command.Type {
			case domain.CommandHelp:
				h.reply(ctx, event.ReplyToken, helpMessage())
				return
			case domain.CommandQuota:
				h.handleQuotaCommand(ctx, event.ReplyToken)
				return
			}
		}
		h.reply(ctx, event.ReplyToken, strings.Join([]string{
			"👋 您好！我是活動提醒機器人",
			"",
			"📌 私訊可用指令：",
			"• !幫助 - 查看說明",
			"• !用量 - 查看本月訊息用量",
			"",
			"💡 其他功能請在群組中使用",
		}, "\n"))
		return
	}

	// комнаты и прочие источники игнорируем
	if event.Source == nil || event.Source.Type != linebot.EventSourceTypeGroup {
		return
	}

	groupID := event.Source.GroupID
	userID := event.Source.UserID

	// обновление активности группы некритично
	if err := h.groups.SaveGroupInfo(ctx, groupID, ""); err != nil {
		h.log.Error().Err(err).Str("group", groupID).Msg("bot: не удалось сохранить сведения о группе")
	}

	if command != nil {
		h.log.Info().Str("command", string(command.Type)).Strs("args", command.Args).Msg("bot: команда распознана")
		metrics.IncCommand(string(command.Type))
		h.handleCommand(ctx, event.ReplyToken, groupID, userID, command)
		return
	}

	if lineadapter.IsMentioned(textMessage) {
		if parse.IsScheduleMessage(message) {
			h.handleScheduleMessage(ctx, event.ReplyToken, groupID, userID, message)
			return
		}
		h.reply(ctx, event.ReplyToken, helpMessage())
	}
}

func (h *Handler) handleBotJoin(ctx context.Context, event *linebot.Event) {
	if event.Source == nil || event.Source.GroupID == "" {
		return
	}
	if err := h.groups.SetBotJoinedAt(ctx, event.Source.GroupID); err != nil {
		h.log.Error().Err(err).Str("group", event.Source.GroupID).Msg("bot: не удалось отметить вступление в группу")
	}
	h.reply(ctx, event.ReplyToken, strings.Join([]string{
		"👋 大家好！我是活動提醒機器人",
		"",
		"📌 功能說明：",
		"1. @ 我並貼上活動排程，我會記住",
		"2. 每週六我會提醒下週的活動",
		"",
		"💡 輸入 !幫助 查看更多指令",
	}, "\n"))
}

func (h *Handler) handleCommand(ctx context.Context, replyToken, groupID, userID string, command *domain.ParsedCommand) {
	switch command.Type {
	case domain.CommandBind:
		h.handleBindCommand(ctx, replyToken, groupID, userID, command.Args)
	case domain.CommandUnbind:
		h.handleUnbindCommand(ctx, replyToken, groupID, userID, command.Args)
	case domain.CommandQuery:
		h.handleQueryCommand(ctx, replyToken, groupID, userID)
	case domain.CommandList:
		h.handleListCommand(ctx, replyToken, groupID)
	case domain.CommandHelp:
		h.reply(ctx, replyToken, helpMessage())
	case domain.CommandTestReminder:
		h.handleTestReminder(ctx, replyToken, groupID)
	case domain.CommandProductionDateTest:
		h.handleProductionDateTest(ctx, replyToken, groupID)
	case domain.CommandQuota:
		h.handleQuotaCommand(ctx, replyToken)
	}
}

func (h *Handler) handleScheduleMessage(ctx context.Context, replyToken, groupID, userID, message string) {
	schedule := parse.ParseScheduleMessage(message, groupID, userID, time.Now().In(h.loc), h.loc)
	if schedule == nil {
		h.reply(ctx, replyToken, strings.Join([]string{
			"❌ 無法解析活動排程",
			"請確認格式正確，例如：",
			"1/04(日)共修: user1",
			"1/11(日)法會: user1、user2",
		}, "\n"))
		return
	}

	if _, err := h.schedules.SaveSchedule(ctx, *schedule); err != nil {
		h.log.Error().Err(err).Str("group", groupID).Msg("bot: не удалось сохранить расписание")
		h.reply(ctx, replyToken, "❌ 儲存活動排程時發生錯誤，請稍後再試")
		return
	}
	metrics.IncScheduleParsed()

	volunteers := remind.CollectVolunteers(schedule.Events)
	h.reply(ctx, replyToken, strings.Join([]string{
		"✅ 已儲存活動排程！",
		"",
		"📋 " + schedule.Title,
		fmt.Sprintf("📅 共 %d 場活動", len(schedule.Events)),
		fmt.Sprintf("👥 共 %d 位志工", len(volunteers)),
		"",
		"💡 提醒：請志工使用 !綁定 <名稱> 完成綁定",
		"例如：!綁定 user1",
	}, "\n"))
}

func (h *Handler) handleBindCommand(ctx context.Context, replyToken, groupID, userID string, args []string) {
	if len(args) == 0 {
		h.reply(ctx, replyToken, strings.Join([]string{
			"❌ 請指定要綁定的名稱",
			"格式：!綁定 <名稱>",
			"例如：!綁定 user1",
		}, "\n"))
		return
	}

	displayName := args[0]

	userName, err := h.messenger.GetMemberName(ctx, groupID, userID)
	if err != nil {
		h.log.Error().Err(err).Str("group", groupID).Str("user", userID).Msg("bot: не удалось получить профиль участника")
		h.reply(ctx, replyToken, "❌ 綁定失敗，請稍後再試")
		return
	}

	binding := domain.UserBinding{
		GroupID:     groupID,
		DisplayName: displayName,
		UserID:      userID,
		UserName:    userName,
		BoundAt:     time.Now().In(h.loc),
		BoundBy:     userID,
	}
	if err := h.bindings.BindUser(ctx, binding); err != nil {
		h.log.Error().Err(err).Str("group", groupID).Str("name", displayName).Msg("bot: не удалось сохранить привязку")
		h.reply(ctx, replyToken, "❌ 綁定失敗，請稍後再試")
		return
	}

	// тестовое личное сообщение проверяет, что бот в друзьях
	testMessage := strings.Join([]string{
		"🎉 綁定測試成功！",
		"",
		"您已成功綁定為「" + displayName + "」",
		"之後有活動提醒時，我會私訊通知您。",
	}, "\n")
	status := "\n\n✅ 已發送測試私訊給您"
	if err := h.messenger.PushText(ctx, userID, testMessage); err != nil {
		h.log.Info().Err(err).Str("user", userID).Msg("bot: тестовое личное сообщение не доставлено")
		status = "\n\n⚠️ 無法發送私訊，請確認已加我為好友"
	}

	h.reply(ctx, replyToken, fmt.Sprintf("✅ %s 已綁定為「%s」%s", userName, displayName, status))
}

func (h *Handler) handleUnbindCommand(ctx context.Context, replyToken, groupID, userID string, args []string) {
	if len(args) == 0 {
		// без аргумента снимаем собственную привязку
		binding, err := h.bindings.GetBindingByUserID(ctx, groupID, userID)
		if err != nil {
			h.log.Error().Err(err).Str("group", groupID).Str("user", userID).Msg("bot: не удалось получить привязку")
			h.reply(ctx, replyToken, "❌ 解綁失敗，請稍後再試")
			return
		}
		if binding == nil {
			h.reply(ctx, replyToken, "❌ 您尚未綁定任何名稱")
			return
		}
		if _, err := h.bindings.UnbindUser(ctx, groupID, binding.DisplayName); err != nil {
			h.log.Error().Err(err).Str("group", groupID).Str("name", binding.DisplayName).Msg("bot: не удалось снять привязку")
			h.reply(ctx, replyToken, "❌ 解綁失敗，請稍後再試")
			return
		}
		h.reply(ctx, replyToken, "✅ 已解除「"+binding.DisplayName+"」的綁定")
		return
	}

	displayName := args[0]
	removed, err := h.bindings.UnbindUser(ctx, groupID, displayName)
	if err != nil {
		h.log.Error().Err(err).Str("group", groupID).Str("name", displayName).Msg("bot: не удалось снять привязку")
		h.reply(ctx, replyToken, "❌ 解綁失敗，請稍後再試")
		return
	}
	if !removed {
		h.reply(ctx, replyToken, "❌ 找不到「"+displayName+"」的綁定")
		return
	}
	h.reply(ctx, replyToken, "✅ 已解除「"+displayName+"」的綁定")
}

func (h *Handler) handleQueryCommand(ctx context.Context, replyToken, groupID, userID string) {
	binding, err := h.bindings.GetBindingByUserID(ctx, groupID, userID)
	if err != nil {
		h.log.Error().Err(err).Str("group", groupID).Str("user", userID).Msg("bot: не удалось получить привязку")
		h.reply(ctx, replyToken, "❌ 查詢失敗，請稍後再試")
		return
	}
	if binding == nil {
		h.reply(ctx, replyToken, "❌ 您尚未綁定任何名稱\n使用 !綁定 <名稱> 來綁定")
		return
	}

	h.reply(ctx, replyToken, strings.Join([]string{
		"📋 您的綁定資訊：",
		"",
		"📝 名稱：" + binding.DisplayName,
		"👤 LINE 帳號：" + binding.UserName,
		"📅 綁定時間：" + binding.BoundAt.In(h.loc).Format("2006/01/02"),
	}, "\n"))
}

func (h *Handler) handleListCommand(ctx context.Context, replyToken, groupID string) {
	bindings, err := h.bindings.ListBindings(ctx, groupID)
	if err != nil {
		h.log.Error().Err(err).Str("group", groupID).Msg("bot: не удалось получить список привязок")
		h.reply(ctx, replyToken, "❌ 查詢失敗，請稍後再試")
		return
	}
	if len(bindings) == 0 {
		h.reply(ctx, replyToken, "📋 目前沒有任何綁定\n使用 !綁定 <名稱> 來新增綁定")
		return
	}

	lines := []string{"📋 綁定列表：", ""}
	for _, binding := range bindings {
		lines = append(lines, fmt.Sprintf("• %s → %s", binding.DisplayName, binding.UserName))
	}
	h.reply(ctx, replyToken, strings.Join(lines, "\n"))
}

func (h *Handler) handleTestReminder(ctx context.Context, replyToken, groupID string) {
	text, err := h.reminder.TestReminder(ctx, groupID, time.Now().In(h.loc))
	if err != nil {
		switch {
		case errors.Is(err, remind.ErrNoSchedule):
			h.reply(ctx, replyToken, "❌ 尚未設定活動排程\n請先 @ 我並貼上活動訊息")
		case errors.Is(err, remind.ErrNoUpcomingEvents):
			h.reply(ctx, replyToken, "📅 沒有即將到來的活動\n所有活動都已過期，請更新排程")
		default:
			h.log.Error().Err(err).Str("group", groupID).Msg("bot: тестовое напоминание не удалось")
			h.reply(ctx, replyToken, "❌ 測試提醒失敗\n錯誤："+err.Error())
		}
		return
	}
	h.reply(ctx, replyToken, text)
}

func (h *Handler) handleProductionDateTest(ctx context.Context, replyToken, groupID string) {
	text, err := h.reminder.ProductionDateTest(ctx, groupID, time.Now().In(h.loc))
	if err != nil {
		if errors.Is(err, remind.ErrNoSchedule) {
			h.reply(ctx, replyToken, "❌ 尚未設定活動排程\n請先 @ 我並貼上活動訊息")
			return
		}
		h.log.Error().Err(err).Str("group", groupID).Msg("bot: тест боевого диапазона не удался")
		h.reply(ctx, replyToken, "❌ 正式日期測試失敗\n錯誤："+err.Error())
		return
	}
	h.reply(ctx, replyToken, text)
}

func (h *Handler) handleQuotaCommand(ctx context.Context, replyToken string) {
	quota, err := h.messenger.GetQuota(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось получить квоту сообщений")
		h.reply(ctx, replyToken, "❌ 查詢用量失敗，請稍後再試")
		return
	}
	h.reply(ctx, replyToken, strings.Join([]string{
		"📊 本月訊息用量",
		"",
		fmt.Sprintf("🔹 總額度：%d 則", quota.Quota),
		fmt.Sprintf("🔸 已使用：%d 則", quota.Used),
		fmt.Sprintf("✅ 剩餘：%d 則", quota.Remaining),
	}, "\n"))
}

func (h *Handler) reply(ctx context.Context, replyToken, text string) {
	if err := h.messenger.ReplyText(ctx, replyToken, text); err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось отправить ответ")
	}
}

func helpMessage() string {
	return strings.Join([]string{
		"📚 活動提醒機器人使用說明",
		"",
		"【新增活動排程】",
		"@ 我並貼上活動訊息即可",
		"",
		"【指令列表】",
		"!綁定 <名稱> - 將自己綁定為該名稱",
		"!解綁 - 解除自己的綁定",
		"!查詢 - 查詢自己的綁定",
		"!列表 - 列出所有綁定",
		"!測試提醒 - 測試發送提醒（顯示所有活動）",
		"!正式日期測試 - 測試正式日期範圍",
		"!用量 - 查詢本月訊息用量",
		"!幫助 - 顯示此說明",
		"",
		"💡 私訊可使用：!幫助、!用量",
		"🔔 每週六早上 8:00 自動發送提醒",
	}, "\n")
}
