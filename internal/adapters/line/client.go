package line

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/metrics"
)

// Client оборачивает LINE Messaging API и реализует domain.Messenger.
type Client struct {
	sdk *linebot.Client
}

// NewClient создаёт клиента LINE.
func NewClient(channelSecret, channelToken string) (*Client, error) {
	sdk, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, err
	}
	return &Client{sdk: sdk}, nil
}

// ParseRequest разбирает вебхук LINE и проверяет его подпись.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.sdk.ParseRequest(r)
}

// ReplyText отвечает текстом на событие по его reply token.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	messages, err := textMessages(text)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = c.sdk.ReplyMessage(replyToken, messages...).WithContext(ctx).Do()
	metrics.ObserveNetworkRequest("line", "reply_message", "messaging_api", start, err)
	return err
}

// PushText отправляет текст получателю: группе или пользователю.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	messages, err := textMessages(text)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = c.sdk.PushMessage(to, messages...).WithContext(ctx).Do()
	metrics.ObserveNetworkRequest("line", "push_message", "messaging_api", start, err)
	return err
}

// GetMemberName возвращает отображаемое имя участника группы.
func (c *Client) GetMemberName(ctx context.Context, groupID, userID string) (string, error) {
	start := time.Now()
	profile, err := c.sdk.GetGroupMemberProfile(groupID, userID).WithContext(ctx).Do()
	metrics.ObserveNetworkRequest("line", "get_member_profile", "messaging_api", start, err)
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}

// GetQuota возвращает месячный лимит сообщений и текущее потребление.
func (c *Client) GetQuota(ctx context.Context) (domain.QuotaInfo, error) {
	start := time.Now()
	quota, err := c.sdk.GetMessageQuota().WithContext(ctx).Do()
	metrics.ObserveNetworkRequest("line", "get_message_quota", "messaging_api", start, err)
	if err != nil {
		return domain.QuotaInfo{}, err
	}

	start = time.Now()
	consumption, err := c.sdk.GetMessageQuotaConsumption().WithContext(ctx).Do()
	metrics.ObserveNetworkRequest("line", "get_quota_consumption", "messaging_api", start, err)
	if err != nil {
		return domain.QuotaInfo{}, err
	}

	return domain.QuotaInfo{
		Quota:     quota.Value,
		Used:      consumption.TotalUsage,
		Remaining: quota.Value - consumption.TotalUsage,
	}, nil
}

// textMessages режет текст по лимиту LINE и упаковывает в сообщения.
// В одном reply/push допускается не более пяти сообщений.
func textMessages(text string) ([]linebot.SendingMessage, error) {
	parts := SplitMessage(text)
	if len(parts) == 0 {
		return nil, errors.New("line: empty message")
	}
	if len(parts) > maxMessagesPerSend {
		parts = parts[:maxMessagesPerSend]
	}
	messages := make([]linebot.SendingMessage, 0, len(parts))
	for _, part := range parts {
		messages = append(messages, linebot.NewTextMessage(part))
	}
	return messages, nil
}

// IsMentioned проверяет, упомянут ли кто-то в текстовом сообщении.
// LINE API не позволяет отличить упоминание именно бота, поэтому
// достаточно любого упоминания — как и в остальной логике захвата
// объявлений.
func IsMentioned(message *linebot.TextMessage) bool {
	return message.Mention != nil && len(message.Mention.Mentionees) > 0
}
