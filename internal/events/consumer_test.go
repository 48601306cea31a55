package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (d *fakeDeleter) DeleteCart(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, userID)
	return nil
}

func (d *fakeDeleter) Deleted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deleted...)
}

// chanReader feeds queued messages and then blocks until ctx is done.
type chanReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed bool
}

func newChanReader() *chanReader {
	return &chanReader{msgs: make(chan kafka.Message, 10), errs: make(chan error, 10)}
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case err := <-r.errs:
		return kafka.Message{}, err
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.closed = true
	return nil
}

func TestCheckoutConsumer_HandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		deleteErr error
		wantErr   bool
		deleted   []string
	}{
		{
			name:    "deletes cart",
			payload: `{"checkout_id":"c1","user_id":"123","total_amount":"1","currency":"rur"}`,
			deleted: []string{"123"},
		},
		{
			name:      "missing cart is fine",
			payload:   `{"user_id":"123"}`,
			deleteErr: domain.NewNotFoundError("cart", "123"),
		},
		{
			name:    "malformed json",
			payload: `{"user_id":`,
			wantErr: true,
		},
		{
			name:    "missing user id",
			payload: `{"checkout_id":"c1"}`,
			wantErr: true,
		},
		{
			name:    "user id wrong type",
			payload: `{"user_id":42}`,
			wantErr: true,
		},
		{
			name:      "delete failure",
			payload:   `{"user_id":"123"}`,
			deleteErr: errors.New("boom"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDeleter{err: tt.deleteErr}
			c := newCheckoutConsumer(d, newChanReader(), nil)

			err := c.handleMessage(context.Background(), kafka.Message{Value: []byte(tt.payload)})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.deleted, d.Deleted())
		})
	}
}

func TestCheckoutConsumer_Run(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := &fakeDeleter{}
	r := newChanReader()
	c := newCheckoutConsumer(d, r, zap.New(core))
	c.backoff = time.Millisecond

	r.errs <- errors.New("transient")
	r.msgs <- kafka.Message{Value: []byte(`not json`)}
	r.msgs <- kafka.Message{Value: []byte(`{"user_id":"a"}`)}
	r.msgs <- kafka.Message{Value: []byte(`{"user_id":"b"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(d.Deleted()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	assert.Equal(t, []string{"a", "b"}, d.Deleted())
	assert.Equal(t, 1, logs.FilterMessage("read checkout message").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping checkout message").Len())

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}
