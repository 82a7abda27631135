package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/channel"
	"xlatorbot/pkg/diag"
	"xlatorbot/pkg/hint"
	"xlatorbot/pkg/markup"
	"xlatorbot/pkg/translate"
)

// Session is the part of the platform session the bot drives.
type Session interface {
	Logon(ctx context.Context) error
	UserID() string
	LastLogonAttempt() time.Time
	AddTextItem(ctx context.Context, reply bus.Reply) (string, error)
}

// Scheduler runs a delayed task.
type Scheduler interface {
	After(name string, delay time.Duration, task func()) error
}

// Outcome is how ProcessItem ended for one message.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"
	OutcomeTranslated Outcome = "translated"
	OutcomeFailed     Outcome = "failed"
)

// Options carries the optional collaborators of a Bot.
type Options struct {
	Stats                *diag.Stats
	Scheduler            Scheduler
	ReconnectMinInterval time.Duration
	Log                  *slog.Logger
}

// Bot reacts to session notifications: it translates hinted messages and keeps
// the session connected.
type Bot struct {
	bus          *bus.MessageBus
	session      Session
	parser       *hint.Parser
	translator   translate.Translator
	stats        *diag.Stats
	scheduler    Scheduler
	reconnectMin time.Duration
	log          *slog.Logger
	now          func() time.Time

	mu               sync.Mutex
	runCtx           context.Context
	reconnectPending bool
	tasks            sync.WaitGroup
}

func New(mb *bus.MessageBus, session Session, parser *hint.Parser, translator translate.Translator, opts Options) (*Bot, error) {
	switch {
	case mb == nil:
		return nil, errors.New("message bus is required")
	case session == nil:
		return nil, errors.New("session is required")
	case parser == nil:
		return nil, errors.New("hint parser is required")
	case translator == nil:
		return nil, errors.New("translator is required")
	}

	if opts.Stats == nil {
		opts.Stats = diag.NewStats()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timerScheduler{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	return &Bot{
		bus:          mb,
		session:      session,
		parser:       parser,
		translator:   translator,
		stats:        opts.Stats,
		scheduler:    opts.Scheduler,
		reconnectMin: opts.ReconnectMinInterval,
		log:          opts.Log.With("component", "bot"),
		now:          time.Now,
		runCtx:       context.Background(),
	}, nil
}

// Run logs on and dispatches notifications until ctx is canceled or the bus
// closes. It waits for in-flight message tasks before returning.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runCtx = ctx
	b.mu.Unlock()

	b.bus.RegisterHandler(bus.KindItemAdded, b.handleItem)
	b.bus.RegisterHandler(bus.KindItemUpdated, b.handleItem)
	b.bus.RegisterHandler(bus.KindConnectionStateChanged, b.handleConnectionState)
	b.bus.RegisterHandler(bus.KindTokenRenewError, b.handleTokenRenewError)

	b.connect(ctx)

	err := b.bus.Dispatch(ctx)
	b.tasks.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) currentContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runCtx
}

func (b *Bot) handleItem(n bus.Notification) {
	if n.Item == nil {
		err := NewError(KindMalformedEvent, errors.New(string(n.Kind)+" notification without item"))
		b.log.Debug("Ignoring notification", "error", err)
		return
	}

	item := *n.Item
	ctx := b.currentContext()

	b.tasks.Add(1)
	go func() {
		defer b.tasks.Done()
		b.ProcessItem(ctx, item)
	}()
}

// ProcessItem runs the whole pipeline for one message: filter, strip markup,
// detect the language hint, translate and reply in the item's thread. Failures
// are logged and reported through events; nothing is retried.
func (b *Bot) ProcessItem(ctx context.Context, item bus.Item) Outcome {
	log := b.log.With("conv_id", item.ConvID, "item_id", item.ID)

	if item.Type != bus.ItemTypeText {
		return b.skip(ctx, log, item, "unsupported item type "+string(item.Type))
	}
	if userID := b.session.UserID(); userID != "" && item.CreatorID == userID {
		return b.skip(ctx, log, item, "own message")
	}
	if strings.TrimSpace(item.Content) == "" {
		return b.skip(ctx, log, item, "empty content")
	}

	result := b.parser.Parse(markup.ToText(item.Content))
	if strings.TrimSpace(result.Text) == "" {
		return b.skip(ctx, log, item, "nothing to translate")
	}
	log = log.With("lang", result.Lang, "hinted", result.Matched)

	translated, err := b.translator.Translate(ctx, result.Text, result.Lang)
	if err != nil {
		return b.fail(ctx, log, item, result.Lang, bus.EventTranslationFailed, NewError(KindTranslationFailure, err))
	}
	b.publishEvent(ctx, bus.Event{Type: bus.EventTranslationCompleted, ConvID: item.ConvID, ItemID: item.ID, Lang: result.Lang})

	reply := bus.Reply{
		ConvID:   item.ConvID,
		ThreadID: item.ThreadID(),
		TopicID:  item.TopicID,
		Content:  translated,
	}
	postedID, err := b.session.AddTextItem(ctx, reply)
	if err != nil {
		kind := KindPostFailure
		if errors.Is(err, channel.ErrNotLoggedOn) {
			kind = KindConversationLookupFailure
		}
		return b.fail(ctx, log, item, result.Lang, bus.EventReplyFailed, NewError(kind, err))
	}

	b.stats.RecordTranslation()
	b.publishEvent(ctx, bus.Event{
		Type:    bus.EventReplyPosted,
		ConvID:  item.ConvID,
		ItemID:  item.ID,
		Lang:    result.Lang,
		Payload: map[string]string{"reply_id": postedID, "thread_id": reply.ThreadID},
	})
	log.Info("Translation posted", "thread_id", reply.ThreadID, "reply_id", postedID)

	return OutcomeTranslated
}

func (b *Bot) skip(ctx context.Context, log *slog.Logger, item bus.Item, reason string) Outcome {
	log.Debug("Skipping item", "reason", reason)
	b.publishEvent(ctx, bus.Event{
		Type:    bus.EventItemSkipped,
		ConvID:  item.ConvID,
		ItemID:  item.ID,
		Payload: map[string]string{"reason": reason},
	})
	return OutcomeSkipped
}

func (b *Bot) fail(ctx context.Context, log *slog.Logger, item bus.Item, lang string, eventType bus.EventType, err error) Outcome {
	payload := map[string]string{"kind": string(KindOf(err))}
	if status := translate.StatusCode(err); status != 0 {
		payload["status_code"] = strconv.Itoa(status)
		log = log.With("status_code", status)
	}

	log.Warn("Dropping item", "kind", KindOf(err), "error", err)
	b.stats.RecordFailure()
	b.publishEvent(ctx, bus.Event{
		Type:    eventType,
		ConvID:  item.ConvID,
		ItemID:  item.ID,
		Lang:    lang,
		Payload: payload,
		Error:   err.Error(),
	})
	return OutcomeFailed
}

func (b *Bot) handleConnectionState(n bus.Notification) {
	ctx := b.currentContext()

	b.stats.RecordState(n.State, n.At)
	b.publishEvent(ctx, bus.Event{Type: bus.EventStateChanged, State: n.State, Error: n.Error})
	b.log.Info("Connection state changed", "state", n.State)

	if n.State == bus.StateDisconnected {
		b.scheduleReconnect(ctx, "disconnected")
	}
}

func (b *Bot) handleTokenRenewError(n bus.Notification) {
	b.log.Error("Access token rejected", "error", n.Error)
	b.publishEvent(b.currentContext(), bus.Event{Type: bus.EventTokenRejected, Error: n.Error})
}

// connect logs on once. A failure schedules a throttled retry.
func (b *Bot) connect(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if err := b.session.Logon(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		err = NewError(KindLoginFailure, err)
		b.log.Error("Logon failed", "error", err)
		b.publishEvent(ctx, bus.Event{Type: bus.EventLogonFailed, Error: err.Error()})
		b.scheduleReconnect(ctx, "logon failed")
		return
	}

	b.publishEvent(ctx, bus.Event{Type: bus.EventLogonCompleted})
}

// scheduleReconnect retries the logon. When the previous attempt is more
// recent than the minimum interval the retry waits that interval, otherwise it
// starts right away. At most one reconnect is pending at a time.
func (b *Bot) scheduleReconnect(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}

	b.mu.Lock()
	if b.reconnectPending {
		b.mu.Unlock()
		b.log.Debug("Reconnect already pending", "reason", reason)
		return
	}
	b.reconnectPending = true
	b.mu.Unlock()

	delay := b.reconnectDelay()
	b.stats.RecordReconnect()
	b.publishEvent(ctx, bus.Event{
		Type:    bus.EventReconnectScheduled,
		Payload: map[string]string{"reason": reason, "delay": delay.String()},
	})
	b.log.Info("Reconnect scheduled", "reason", reason, "delay", delay)

	fire := func() {
		b.mu.Lock()
		b.reconnectPending = false
		b.mu.Unlock()
		b.connect(ctx)
	}

	if delay <= 0 {
		go fire()
		return
	}
	if err := b.scheduler.After("reconnect", delay, fire); err != nil {
		b.log.Warn("Scheduler rejected reconnect, using a timer", "error", err)
		time.AfterFunc(delay, fire)
	}
}

func (b *Bot) reconnectDelay() time.Duration {
	last := b.session.LastLogonAttempt()
	if last.IsZero() {
		return 0
	}
	if b.now().Sub(last) < b.reconnectMin {
		return b.reconnectMin
	}
	return 0
}

func (b *Bot) publishEvent(ctx context.Context, event bus.Event) {
	b.bus.PublishEvent(ctx, event)
}

// timerScheduler is the fallback when no Scheduler is configured.
type timerScheduler struct{}

func (timerScheduler) After(_ string, delay time.Duration, task func()) error {
	time.AfterFunc(delay, task)
	return nil
}
