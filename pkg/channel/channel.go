package channel

import (
	"context"
	"errors"

	"xlatorbot/pkg/bus"
)

var (
	// ErrTokenRejected is returned when the platform refuses the account credentials.
	ErrTokenRejected = errors.New("access token rejected")
	// ErrNotLoggedOn is returned for operations that need an authenticated session.
	ErrNotLoggedOn = errors.New("not logged on")
)

// Account identifies the platform account the bot is logged in as.
type Account struct {
	UserID      string
	DisplayName string
}

// Publisher forwards one notification into the bot. It reports false when the
// notification could not be delivered.
type Publisher func(context.Context, bus.Notification) bool

// Client bridges one chat platform (for example Telegram) into the bot.
type Client interface {
	Name() string
	// Logon authenticates and returns the bot's own account.
	Logon(ctx context.Context) (Account, error)
	// Listen delivers item notifications until ctx ends or the connection is lost.
	// A nil return means ctx was canceled.
	Listen(ctx context.Context, publish Publisher) error
	// AddTextItem posts a text reply and returns the new item id.
	AddTextItem(ctx context.Context, reply bus.Reply) (string, error)
}
