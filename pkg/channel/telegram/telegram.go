package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/channel"
	"xlatorbot/pkg/config"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const probeFailureLimit = 3

// Adapter connects the bot to Telegram through the Bot API.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
	sdkLog    *slog.Logger

	mu  sync.RWMutex
	bot *telego.Bot
}

var _ channel.Client = (*Adapter)(nil)

// NewAdapter validates Telegram configuration and constructs an adapter instance.
// sdkLog receives telego's own request logging.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger, sdkLog *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}
	cfg.Token = token

	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = config.DefaultProbeInterval
	}
	if log == nil {
		log = slog.Default()
	}
	if sdkLog == nil {
		sdkLog = log
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
		sdkLog:    sdkLog.With("component", "telego"),
	}, nil
}

// Name returns the channel identifier used in logs.
func (a *Adapter) Name() string {
	return channelName
}

// Logon creates a Bot API client and verifies the token with getMe.
func (a *Adapter) Logon(ctx context.Context) (channel.Account, error) {
	bot, err := telego.NewBot(a.cfg.Token, telego.WithLogger(sdkLogger{log: a.sdkLog}))
	if err != nil {
		return channel.Account{}, fmt.Errorf("initialize telegram bot: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		if isTokenRejected(err) {
			return channel.Account{}, fmt.Errorf("get bot account: %w: %v", channel.ErrTokenRejected, err)
		}
		return channel.Account{}, fmt.Errorf("get bot account: %w", err)
	}

	a.mu.Lock()
	a.bot = bot
	a.mu.Unlock()

	account := channel.Account{
		UserID:      strconv.FormatInt(me.ID, 10),
		DisplayName: displayName(me),
	}
	a.log.Info("Telegram logon completed", "user_id", account.UserID, "name", account.DisplayName)

	return account, nil
}

// Listen long-polls for updates and publishes new and edited messages. It
// returns nil when ctx is canceled and an error when the connection is lost.
func (a *Adapter) Listen(ctx context.Context, publish channel.Publisher) error {
	if publish == nil {
		return errors.New("publisher is required")
	}

	bot := a.current()
	if bot == nil {
		return fmt.Errorf("telegram: %w", channel.ErrNotLoggedOn)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := bot.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	lost := make(chan error, 1)
	go a.probe(pollCtx, bot, lost)

	a.log.Info("Telegram listener started", "probe_interval", a.cfg.ProbeInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-lost:
			return err
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			kind, message := classify(update)
			if message == nil {
				continue
			}
			if message.From == nil {
				a.log.Debug("Ignoring message without sender", "update_id", update.UpdateID)
				continue
			}

			item := toItem(message)
			if !a.senderAllowed(item.CreatorID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", item.CreatorID)
				continue
			}

			a.log.Debug("Received message", "kind", kind, "conv_id", item.ConvID, "item_id", item.ID, "type", item.Type, "content", previewText(message.Text))
			if !publish(ctx, bus.Notification{Kind: kind, Item: &item}) && ctx.Err() == nil {
				a.log.Warn("Dropped message notification", "conv_id", item.ConvID, "item_id", item.ID)
			}
		}
	}
}

// AddTextItem sends reply.Content to the chat as a reply to reply.ThreadID.
func (a *Adapter) AddTextItem(ctx context.Context, reply bus.Reply) (string, error) {
	bot := a.current()
	if bot == nil {
		return "", fmt.Errorf("telegram: %w", channel.ErrNotLoggedOn)
	}

	params, err := sendParams(reply)
	if err != nil {
		return "", err
	}

	sent, err := bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("send telegram message: %w", err)
	}

	a.log.Debug("Sent message", "conv_id", reply.ConvID, "thread_id", reply.ThreadID, "content", previewText(reply.Content))
	return strconv.Itoa(sent.MessageID), nil
}

func (a *Adapter) current() *telego.Bot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bot
}

// probe calls getMe every ProbeInterval. Long polling retries forever on its
// own, so this is how a revoked token or a dead network surfaces as a
// disconnect.
func (a *Adapter) probe(ctx context.Context, bot *telego.Bot, lost chan<- error) {
	ticker := time.NewTicker(a.cfg.ProbeInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := bot.GetMe(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if isTokenRejected(err) {
			lost <- fmt.Errorf("liveness probe: %w: %v", channel.ErrTokenRejected, err)
			return
		}

		failures++
		a.log.Warn("Telegram liveness probe failed", "failures", failures, "error", err)
		if failures >= probeFailureLimit {
			lost <- fmt.Errorf("liveness probe failed %d times: %w", failures, err)
			return
		}
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

func classify(update telego.Update) (bus.Kind, *telego.Message) {
	switch {
	case update.Message != nil:
		return bus.KindItemAdded, update.Message
	case update.EditedMessage != nil:
		return bus.KindItemUpdated, update.EditedMessage
	default:
		return "", nil
	}
}

// toItem maps a Telegram message onto a conversation item. Telegram text is
// plain, so it is escaped to keep markup stripping lossless.
func toItem(message *telego.Message) bus.Item {
	item := bus.Item{
		ID:     strconv.Itoa(message.MessageID),
		ConvID: strconv.FormatInt(message.Chat.ID, 10),
		Type:   itemType(message),
	}
	if message.From != nil {
		item.CreatorID = strconv.FormatInt(message.From.ID, 10)
	}
	if message.ReplyToMessage != nil {
		item.ParentID = strconv.Itoa(message.ReplyToMessage.MessageID)
	}
	if message.IsTopicMessage && message.MessageThreadID != 0 {
		item.TopicID = strconv.Itoa(message.MessageThreadID)
	}
	if item.Type == bus.ItemTypeText {
		item.Content = html.EscapeString(message.Text)
	}

	return item
}

func itemType(message *telego.Message) bus.ItemType {
	switch {
	case strings.TrimSpace(message.Text) != "":
		return bus.ItemTypeText
	case message.Caption != "" || len(message.Photo) > 0 || message.Document != nil ||
		message.Audio != nil || message.Video != nil || message.Voice != nil || message.Sticker != nil:
		return bus.ItemTypeMedia
	default:
		return bus.ItemTypeService
	}
}

func sendParams(reply bus.Reply) (*telego.SendMessageParams, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(reply.ConvID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", reply.ConvID, err)
	}

	params := tu.Message(tu.ID(chatID), reply.Content)
	if threadID := strings.TrimSpace(reply.ThreadID); threadID != "" {
		messageID, err := strconv.Atoi(threadID)
		if err != nil {
			return nil, fmt.Errorf("invalid thread id %q: %w", reply.ThreadID, err)
		}
		params.ReplyParameters = &telego.ReplyParameters{
			MessageID:                messageID,
			AllowSendingWithoutReply: true,
		}
	}
	if topicID := strings.TrimSpace(reply.TopicID); topicID != "" {
		messageThreadID, err := strconv.Atoi(topicID)
		if err != nil {
			return nil, fmt.Errorf("invalid topic id %q: %w", reply.TopicID, err)
		}
		params.MessageThreadID = messageThreadID
	}

	return params, nil
}

func isTokenRejected(err error) bool {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == http.StatusUnauthorized
	}
	return false
}

func displayName(user *telego.User) string {
	if user == nil {
		return ""
	}
	if user.Username != "" {
		return "@" + user.Username
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns at most messagePreviewLimit runes of text for logging.
func previewText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= messagePreviewLimit {
		return string(runes)
	}

	return string(runes[:messagePreviewLimit]) + "..."
}

// sdkLogger routes telego's printf-style logging into slog.
type sdkLogger struct {
	log *slog.Logger
}

func (l sdkLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l sdkLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
