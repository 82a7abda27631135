package bus

import "time"

// ItemType tags the kind of content a conversation item carries.
type ItemType string

const (
	ItemTypeText    ItemType = "TEXT"
	ItemTypeMedia   ItemType = "MEDIA"
	ItemTypeService ItemType = "SERVICE"
)

// Item is one chat message as delivered by a channel.
type Item struct {
	ID        string   `json:"id"`
	ConvID    string   `json:"conv_id"`
	ParentID  string   `json:"parent_id,omitempty"`
	CreatorID string   `json:"creator_id"`
	Type      ItemType `json:"type"`
	Content   string   `json:"content,omitempty"`
	// TopicID is the forum topic the item was posted in, when the channel has topics.
	TopicID string `json:"topic_id,omitempty"`
}

// ThreadID is the id a reply should be attached to: the parent when the item is
// already part of a thread, otherwise the item itself.
func (i Item) ThreadID() string {
	if i.ParentID != "" {
		return i.ParentID
	}

	return i.ID
}

// Reply is a text item to post back into a conversation thread.
type Reply struct {
	ConvID   string `json:"conv_id"`
	ThreadID string `json:"thread_id"`
	TopicID  string `json:"topic_id,omitempty"`
	Content  string `json:"content"`
}

// ConnectionState is the session connection state reported by the channel.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "Disconnected"
	StateConnecting   ConnectionState = "Connecting"
	StateConnected    ConnectionState = "Connected"
)

// Kind identifies a notification type.
type Kind string

const (
	KindItemAdded              Kind = "item_added"
	KindItemUpdated            Kind = "item_updated"
	KindConnectionStateChanged Kind = "connection_state_changed"
	KindTokenRenewError        Kind = "token_renew_error"
)

// Notification is one inbound event from the session.
type Notification struct {
	Kind  Kind            `json:"kind"`
	At    time.Time       `json:"at"`
	Item  *Item           `json:"item,omitempty"`
	State ConnectionState `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Handler processes one notification. Handlers run on the dispatch goroutine in
// arrival order and must not block for long.
type Handler func(Notification)
