package protocol

import (
	"context"
	"errors"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// ErrClosed is returned by a Conn after Close.
var ErrClosed = errors.New("protocol: connection closed")

// Conn moves Messages between the two parties, in order.
type Conn interface {
	// Send blocks until msg is handed to the other end, ctx is done, or the connection closes.
	Send(ctx context.Context, msg *Message) error
	// Receive blocks until a message arrives, ctx is done, or the connection closes.
	Receive(ctx context.Context) (*Message, error)
	// Close closes both directions. It is safe to call more than once.
	Close() error
}

// Pipe returns the two ends of an in-memory connection.
// Messages cross it in their cbor encoding, as they would over a network.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte)
	ba := make(chan []byte)
	p := &pipe{done: make(chan struct{})}
	return &pipeConn{pipe: p, in: ba, out: ab}, &pipeConn{pipe: p, in: ab, out: ba}
}

type pipe struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	*pipe
	in  <-chan []byte
	out chan<- []byte
}

func (c *pipeConn) Send(ctx context.Context, msg *Message) error {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Receive(ctx context.Context) (*Message, error) {
	select {
	case data := <-c.in:
		var msg Message
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
