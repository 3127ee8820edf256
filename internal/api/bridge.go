package api

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sprite-ai/easygit/internal/app"
)

// ErrClosed is returned by a Bridge whose loop has stopped.
var ErrClosed = errors.New("bridge closed")

const subscriberBuffer = 16

// Op is a controller transition run on the bridge loop.
type Op func(c *app.Controller) tea.Cmd

type opRequest struct {
	op    Op
	reply chan Snapshot
}

// Bridge owns a controller for clients outside the terminal. Every
// transition, whether requested by a client or produced by a finished
// command, runs on the single Run goroutine; state snapshots are broadcast to
// subscribers after each one.
type Bridge struct {
	ctrl   *app.Controller
	logger *log.Logger

	ops  chan opRequest
	msgs chan tea.Msg
	done chan struct{}

	mu   sync.Mutex
	subs map[string]chan Snapshot
}

// NewBridge wraps ctrl. Call Run before Do.
func NewBridge(ctrl *app.Controller, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bridge{
		ctrl:   ctrl,
		logger: logger,
		ops:    make(chan opRequest),
		msgs:   make(chan tea.Msg, 64),
		done:   make(chan struct{}),
		subs:   make(map[string]chan Snapshot),
	}
}

// Run processes transitions until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-b.ops:
			b.exec(req.op(b.ctrl))
			snap := newSnapshot(b.ctrl.State())
			req.reply <- snap
			b.broadcast(snap)
		case msg := <-b.msgs:
			b.exec(b.ctrl.Update(msg))
			b.broadcast(newSnapshot(b.ctrl.State()))
		}
	}
}

// Do runs op on the loop and returns the snapshot taken right after it.
// Work started by op completes later and is broadcast to subscribers.
func (b *Bridge) Do(ctx context.Context, op Op) (Snapshot, error) {
	req := opRequest{op: op, reply: make(chan Snapshot, 1)}
	select {
	case b.ops <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-b.done:
		return Snapshot{}, ErrClosed
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-b.done:
		return Snapshot{}, ErrClosed
	}
}

// Snapshot returns the current state.
func (b *Bridge) Snapshot(ctx context.Context) (Snapshot, error) {
	return b.Do(ctx, func(*app.Controller) tea.Cmd { return nil })
}

// Subscribe registers a receiver of state snapshots. A slow subscriber loses
// intermediate snapshots, never the latest one.
func (b *Bridge) Subscribe(id string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bridge) broadcast(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
			b.logger.Printf("dropping snapshot for subscriber %s", id)
		}
	}
}

// exec runs cmd off the loop and feeds its result back in.
func (b *Bridge) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		switch msg := msg.(type) {
		case nil:
			return
		case tea.BatchMsg:
			for _, c := range msg {
				b.exec(c)
			}
			return
		}
		select {
		case b.msgs <- msg:
		case <-b.done:
		}
	}()
}
