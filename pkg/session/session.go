package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/channel"
)

// Manager owns the platform session: it logs on, runs the listener and
// reports connection state changes as notifications.
type Manager struct {
	client  channel.Client
	publish channel.Publisher
	log     *slog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	account     channel.Account
	connected   bool
	listening   bool
	lastAttempt time.Time
	stopListen  context.CancelFunc
	listeners   sync.WaitGroup
}

// NewManager wraps client. publish receives item and connection notifications.
func NewManager(client channel.Client, publish channel.Publisher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		client:  client,
		publish: publish,
		log:     log.With("component", "session", "channel", client.Name()),
		now:     time.Now,
	}
}

// Logon authenticates and starts listening. The listener lives until ctx is
// canceled, Close is called or the connection drops. Calling Logon while a
// listener is running is a no-op.
func (m *Manager) Logon(ctx context.Context) error {
	m.mu.Lock()
	if m.listening {
		m.mu.Unlock()
		return nil
	}
	m.lastAttempt = m.now()
	m.mu.Unlock()

	m.publishState(ctx, bus.StateConnecting, nil)

	account, err := m.client.Logon(ctx)
	if err != nil {
		m.log.Warn("Logon failed", "error", err)
		m.publishState(ctx, bus.StateDisconnected, err)
		return fmt.Errorf("logon: %w", err)
	}

	listenCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.account = account
	m.connected = true
	m.listening = true
	m.stopListen = cancel
	m.mu.Unlock()

	m.log.Info("Logged on", "user_id", account.UserID, "name", account.DisplayName)
	m.publishState(ctx, bus.StateConnected, nil)

	m.listeners.Add(1)
	go m.listen(listenCtx, cancel)

	return nil
}

func (m *Manager) listen(ctx context.Context, cancel context.CancelFunc) {
	defer m.listeners.Done()
	defer cancel()

	err := m.client.Listen(ctx, m.publish)

	m.mu.Lock()
	m.connected = false
	m.listening = false
	m.stopListen = nil
	m.mu.Unlock()

	if err == nil && ctx.Err() != nil {
		m.log.Info("Listener stopped")
		return
	}
	if err == nil {
		err = errors.New("listener returned unexpectedly")
	}

	m.log.Warn("Connection lost", "error", err)
	if errors.Is(err, channel.ErrTokenRejected) {
		m.publish(ctx, bus.Notification{Kind: bus.KindTokenRenewError, Error: err.Error()})
	}
	m.publishState(ctx, bus.StateDisconnected, err)
}

// publishState stamps the notification with the session clock, so the
// Connected notification carries the logon time.
func (m *Manager) publishState(ctx context.Context, state bus.ConnectionState, err error) {
	n := bus.Notification{Kind: bus.KindConnectionStateChanged, State: state, At: m.now()}
	if err != nil {
		n.Error = err.Error()
	}
	if !m.publish(ctx, n) && ctx.Err() == nil {
		m.log.Warn("Dropped state notification", "state", state)
	}
}

// UserID returns the id of the logged-on account, or "" before the first logon.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account.UserID
}

// LastLogonAttempt returns when Logon was last called, successful or not.
func (m *Manager) LastLogonAttempt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAttempt
}

// Connected reports whether the session is logged on and listening.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// AddTextItem posts reply into its conversation thread.
func (m *Manager) AddTextItem(ctx context.Context, reply bus.Reply) (string, error) {
	if !m.Connected() {
		return "", channel.ErrNotLoggedOn
	}

	return m.client.AddTextItem(ctx, reply)
}

// Close stops the listener and waits for it to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	stop := m.stopListen
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	m.listeners.Wait()
}
