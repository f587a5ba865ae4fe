package core

import "sync"

// Identity is the authenticated user behind a connection, fixed for its
// lifetime.
type Identity struct {
	UserID int64
	Role   string
}

// Client is one live connection as seen by the core layer. It exists only
// after authentication succeeded; an unauthenticated transport connection
// never reaches the registry.
type Client struct {
	ID       string
	Identity Identity
	Events   chan *Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string, identity Identity) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		Events:   make(chan *Event, 16),
		done:     make(chan struct{}),
	}
}

// Close marks the client terminated. Idempotent; entering the closed state
// happens exactly once no matter which path triggered it.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the client has been terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// send queues an event without ever blocking the caller. Events to a closed
// or slow client are dropped.
func (c *Client) send(event *Event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
