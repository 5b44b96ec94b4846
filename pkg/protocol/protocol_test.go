package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type payload struct {
	A uint64
	B []byte
}

func TestMessage_Decode(t *testing.T) {
	ssid := uuid.New()
	msg, err := NewMessage(ssid, "test", []byte{1, 2}, &payload{A: 5, B: []byte("x")})
	require.NoError(t, err)

	var p payload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, payload{A: 5, B: []byte("x")}, p)
	assert.Equal(t, ssid, msg.SSID)

	var wrong []string
	assert.Error(t, msg.Decode(&wrong))
}

func TestPipe(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	ctx := context.Background()

	var g errgroup.Group
	sent := make([]*Message, 3)
	for i := range sent {
		msg, err := NewMessage(uuid.New(), "ping", []byte("key"), uint64(i))
		require.NoError(t, err)
		sent[i] = msg
	}
	g.Go(func() error {
		for _, msg := range sent {
			if err := a.Send(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	for i, want := range sent {
		got, err := b.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.SSID, got.SSID)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Key, got.Key)
		var v uint64
		require.NoError(t, got.Decode(&v))
		assert.Equal(t, uint64(i), v)
	}
	require.NoError(t, g.Wait())
}

func TestPipe_Close(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := a.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Send(context.Background(), &Message{}), ErrClosed)
}

func TestPipe_Context(t *testing.T) {
	a, _ := Pipe()
	defer a.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
