package heartbeat

import "context"

// Message is the payload sent over a liveness channel. No reply is read.
type Message struct {
	Content string `json:"content"`
}

// Ping is the message sent on every heartbeat round.
var Ping = Message{Content: "ping"}

// Channel is an open liveness channel to the host process.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Dialer opens liveness channels.
//
// onDisconnect is called at most once per successfully opened channel, when
// the host drops it. err is nil for an orderly close. Implementations must
// not call onDisconnect from inside Open or Send, and never when Open
// returns an error.
type Dialer interface {
	Open(ctx context.Context, name string, onDisconnect func(err error)) (Channel, error)
}
