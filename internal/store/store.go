package store

import (
	"context"
	"errors"
)

var ErrInvalidConnectionString = errors.New("invalid connection string")

// Listener is invoked on connectivity transitions.
type Listener func(Event)

// Notifier exposes connectivity events of a connection.
type Notifier interface {
	OnConnectionLost(fn Listener)
	OnConnectionRestored(fn Listener)
}

// Conn is an open session with the store. The owner must Close it.
type Conn interface {
	Notifier

	// Eval runs a server-side script and returns the textual form of its
	// result. A nil reply yields an empty string.
	Eval(ctx context.Context, script string) (string, error)
	IsConnected() bool
	Close() error
}

// Dialer opens connections from a connection string.
type Dialer interface {
	Dial(ctx context.Context, connectionString string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, connectionString string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, connectionString string) (Conn, error) {
	return f(ctx, connectionString)
}

type ConnectionType int

const (
	ConnectionInteractive ConnectionType = iota
	ConnectionSubscription
)

func (t ConnectionType) String() string {
	switch t {
	case ConnectionInteractive:
		return "Interactive"
	case ConnectionSubscription:
		return "Subscription"
	default:
		return "Unknown"
	}
}

type FailureType int

const (
	FailureNone FailureType = iota
	FailureUnableToConnect
	FailureSocketFailure
	FailureSocketClosed
	FailureAuthentication
	FailureLoading
	FailureConnectionDisposed
	FailureInternal
)

func (f FailureType) String() string {
	switch f {
	case FailureNone:
		return "None"
	case FailureUnableToConnect:
		return "UnableToConnect"
	case FailureSocketFailure:
		return "SocketFailure"
	case FailureSocketClosed:
		return "SocketClosed"
	case FailureAuthentication:
		return "AuthenticationFailure"
	case FailureLoading:
		return "Loading"
	case FailureConnectionDisposed:
		return "ConnectionDisposed"
	case FailureInternal:
		return "InternalFailure"
	default:
		return "Unknown"
	}
}

// Event describes a connectivity transition.
type Event struct {
	ConnectionType ConnectionType
	FailureType    FailureType
	Endpoint       string
	Err            error
}
