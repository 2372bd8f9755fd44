package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tidewatch/aisbridge"
)

// fakeConn is a minimal frameConn double driven by a queue of frames to
// return from ReadMessage; it records every value passed to WriteJSON.
type fakeConn struct {
	mu         sync.Mutex
	writeJSON  []interface{}
	writeErr   error
	frames     [][]byte
	frameIndex int
	readErr    error
	closed     bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeJSON = append(f.writeJSON, v)
	return f.writeErr
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frameIndex >= len(f.frames) {
		if f.readErr != nil {
			return 0, nil, f.readErr
		}
		return 0, nil, errors.New("fakeConn: no more frames")
	}
	data := f.frames[f.frameIndex]
	f.frameIndex++
	return 1, data, nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (frameConn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func newTestClient(conn *fakeConn) (*Client, *fakeDialer) {
	c := New(Config{
		URL:         "wss://example.invalid",
		APIKey:      "key",
		BoundingBox: aisbridge.BoundingBox{North: 49, South: 47, East: -122, West: -124},
	})
	fd := &fakeDialer{conn: conn}
	c.dialer = fd
	c.sleepFunc = func(time.Duration) {}
	return c, fd
}

func TestClientSendsSubscriptionAndDecodesFrames(t *testing.T) {
	frame := []byte(`{"MetaData":{"MMSI":111},"Message":{"PositionReport":{"Latitude":1,"Longitude":2}}}`)
	conn := &fakeConn{frames: [][]byte{frame}, readErr: errors.New("EOF")}
	c, _ := newTestClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var got []aisbridge.VesselRecord
	done := make(chan struct{})
	go func() {
		for r := range c.Records() {
			got = append(got, r)
		}
		close(done)
	}()

	c.Start(ctx)
	<-done

	assert.Len(t, conn.writeJSON, 1)
	assert.GreaterOrEqual(t, len(got), 1)
	assert.EqualValues(t, 111, got[0].MMSI)
}

func TestClientReconnectsAfterTransportFailure(t *testing.T) {
	conn := &fakeConn{readErr: errors.New("connection reset")}
	c, fd := newTestClient(conn)
	_ = fd

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		for range c.Records() {
		}
	}()

	c.Start(ctx)
	assert.Equal(t, StateIdle, c.State())
}
