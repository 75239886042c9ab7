package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type fakeTransport struct {
	mu           sync.Mutex
	opens        int
	nilExecutors int
	deadlines    int
	scripted     []*fakeRaw
	created      []*fakeRaw
	delay        time.Duration
	failOpen     atomic.Bool
}

func (t *fakeTransport) Open(ctx context.Context, exec Executor) (RawConnection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	if exec == nil {
		t.nilExecutors++
	} else {
		exec(func() {})
	}
	if _, ok := ctx.Deadline(); ok {
		t.deadlines++
	}
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.failOpen.Load() {
		return nil, errors.New("connection refused")
	}
	var raw *fakeRaw
	if len(t.scripted) > 0 {
		raw = t.scripted[0]
		t.scripted = t.scripted[1:]
	} else {
		raw = newFakeRaw(fmt.Sprintf("fake-%d", t.opens))
	}
	t.created = append(t.created, raw)
	return raw, nil
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

type fakeRaw struct {
	name       string
	open       atomic.Bool
	closes     atomic.Int32
	channels   atomic.Int32
	closeErr   error
	channelErr error
	txErr      error

	mu          sync.Mutex
	lastTimeout time.Duration
	last        *fakeChannel
}

func newFakeRaw(name string) *fakeRaw {
	raw := &fakeRaw{name: name}
	raw.open.Store(true)
	return raw
}

func newDeadRaw(name string) *fakeRaw {
	return &fakeRaw{name: name}
}

func (r *fakeRaw) IsOpen() bool {
	return r.open.Load()
}

func (r *fakeRaw) Close(timeout time.Duration) error {
	r.closes.Add(1)
	r.open.Store(false)
	r.mu.Lock()
	r.lastTimeout = timeout
	r.mu.Unlock()
	return r.closeErr
}

func (r *fakeRaw) CreateChannel() (Channel, error) {
	if r.channelErr != nil {
		return nil, r.channelErr
	}
	r.channels.Add(1)
	ch := &fakeChannel{txErr: r.txErr}
	r.mu.Lock()
	r.last = ch
	r.mu.Unlock()
	return ch, nil
}

func (r *fakeRaw) String() string {
	return "amqp://guest@" + r.name + ":5672/"
}

func (r *fakeRaw) lastChannel() *fakeChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type fakeChannel struct {
	txErr   error
	txCalls int
	closed  bool
}

func (c *fakeChannel) Tx() error {
	c.txCalls++
	return c.txErr
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

// countingListener mirrors the create/close balance of the connections it sees.
type countingListener struct {
	called atomic.Int32
}

func (l *countingListener) OnCreate(Connection) { l.called.Add(1) }
func (l *countingListener) OnClose(Connection)  { l.called.Add(-1) }

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) OnCreate(conn Connection) { l.record("create", conn) }
func (l *recordingListener) OnClose(conn Connection)  { l.record("close", conn) }

func (l *recordingListener) record(event string, conn Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event+":"+conn.Delegate().(*fakeRaw).name)
}

func (l *recordingListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type recordingCollector struct {
	mu        sync.Mutex
	created   int
	closed    int
	recovered int
	failures  map[string]int
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{failures: make(map[string]int)}
}

func (c *recordingCollector) IncConnectionCreated(string) {
	c.mu.Lock()
	c.created++
	c.mu.Unlock()
}

func (c *recordingCollector) IncConnectionClosed(string) {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func (c *recordingCollector) IncConnectionRecovered(string) {
	c.mu.Lock()
	c.recovered++
	c.mu.Unlock()
}

func (c *recordingCollector) IncConnectionFailure(_ string, stage string) {
	c.mu.Lock()
	c.failures[stage]++
	c.mu.Unlock()
}

func (c *recordingCollector) IncHotReload(string) {}
