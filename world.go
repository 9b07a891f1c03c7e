package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

var (
	ErrAlreadyWatching = errors.New("world is already watching")
	ErrWorldStopped    = errors.New("world is stopped")
	// ErrPollInProgress is returned when Poll is entered while another poll,
	// including the one currently dispatching to the caller, is running.
	ErrPollInProgress = errors.New("poll already in progress")
)

type worldState int32

const (
	stateIdle worldState = iota
	stateWatching
	stateStopped
)

func (s worldState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateWatching:
		return "watching"
	case stateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("worldState(%d)", int32(s))
	}
}

// SubscriberFault describes a subscriber that panicked while handling an event.
type SubscriberFault struct {
	Subscriber Subscriber
	Event      any // ChatEvent or ListChange
	Value      any // value passed to panic
}

func (f SubscriberFault) Error() string {
	return fmt.Sprintf("subscriber %T panicked handling %T: %v", f.Subscriber, f.Event, f.Value)
}

// PollError is a transient read failure during a poll; Source is "logs" or "lists".
type PollError struct {
	Source string
	Err    error
}

func (e *PollError) Error() string { return fmt.Sprintf("read %s: %v", e.Source, e.Err) }
func (e *PollError) Unwrap() error { return e.Err }

type WorldOptions struct {
	PollInterval time.Duration
	OnFault      func(SubscriberFault)
	OnPollError  func(*PollError)
	OnSendError  func(message string, err error)
	Now          func() time.Time
}

// World watches one running game world: it tails the log into chat events,
// tracks who is online, reconciles the access-control lists and fans every
// event out to subscribers. A World runs once; after Stop a new one is needed.
type World struct {
	api   WorldAPI
	opts  WorldOptions
	lists *ListReconciler

	lifeMu sync.Mutex
	state  atomic.Int32
	life   context.Context
	cancel context.CancelFunc

	pollMu sync.Mutex

	mu        sync.RWMutex
	roster    *OnlineRoster
	snapshots map[ListKind]ListSnapshot

	subMu sync.Mutex
	subs  []*Subscription
}

func NewWorld(api WorldAPI, opts WorldOptions) *World {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &World{
		api:       api,
		opts:      opts,
		lists:     NewListReconciler(api),
		roster:    NewOnlineRoster(),
		snapshots: make(map[ListKind]ListSnapshot),
	}
}

// Start moves the world from idle to watching and records the current lists
// as the baseline for later diffs.
func (w *World) Start(ctx context.Context) error {
	w.lifeMu.Lock()
	switch worldState(w.state.Load()) {
	case stateWatching:
		w.lifeMu.Unlock()
		return ErrAlreadyWatching
	case stateStopped:
		w.lifeMu.Unlock()
		return ErrWorldStopped
	}
	w.life, w.cancel = context.WithCancel(context.Background())
	w.state.Store(int32(stateWatching))
	w.lifeMu.Unlock()

	if err := w.lists.Prime(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("prime lists: %w", err)
	}
	w.storeSnapshots()
	return nil
}

// Watch starts the world and polls it every PollInterval until ctx is done,
// Stop is called, or the platform reports the world gone.
func (w *World) Watch(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.life.Done():
			return nil
		case <-ticker.C:
			err := w.Poll(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrWorldGone):
				log.Printf("world gone, stopping: %v", err)
				return err
			case errors.Is(err, ErrWorldStopped):
				return nil
			default:
				log.Printf("world poll: %v", err)
			}
		}
	}
}

// Stop ends watching. Once Stop returns no further events are dispatched,
// including those of a poll that is still reading.
func (w *World) Stop() {
	w.lifeMu.Lock()
	w.state.Store(int32(stateStopped))
	cancel := w.cancel
	w.lifeMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (w *World) watching() bool {
	return worldState(w.state.Load()) == stateWatching
}

// State reports "idle", "watching" or "stopped".
func (w *World) State() string {
	return worldState(w.state.Load()).String()
}

// Poll runs one cycle: read new log lines and the lists, update the roster,
// then dispatch chat events in log order followed by list changes.
// Transient read failures are reported and the cycle continues with what was
// read; ErrWorldGone stops the world.
func (w *World) Poll(ctx context.Context) error {
	if !w.pollMu.TryLock() {
		return ErrPollInProgress
	}
	defer w.pollMu.Unlock()
	if !w.watching() {
		return ErrWorldStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(w.life, cancel)
	defer stopAfter()

	lines, logErr := w.api.Logs(ctx)
	changes, listErr := w.lists.Reconcile(ctx)
	for _, err := range []error{logErr, listErr} {
		if errors.Is(err, ErrWorldGone) {
			w.Stop()
			return err
		}
	}
	if !w.watching() {
		return ErrWorldStopped
	}
	if logErr != nil {
		w.pollError(&PollError{Source: "logs", Err: logErr})
	}
	if listErr != nil {
		w.pollError(&PollError{Source: "lists", Err: listErr})
	}

	now := w.opts.Now()
	for _, line := range lines {
		for _, event := range ParseLine(line, w.roster) {
			event.Time = now
			w.apply(event)
			w.dispatchChat(event)
		}
	}

	w.storeSnapshots()
	for _, change := range changes {
		change.Time = now
		w.dispatchList(change)
	}
	if !w.watching() {
		return ErrWorldStopped
	}
	return nil
}

func (w *World) pollError(err *PollError) {
	log.Printf("world poll: %v", err)
	if w.opts.OnPollError != nil {
		w.opts.OnPollError(err)
	}
}

func (w *World) apply(event ChatEvent) {
	switch event.Type {
	case ChatJoin:
		w.mu.Lock()
		w.roster.Add(event.Name)
		w.mu.Unlock()
	case ChatLeave:
		w.mu.Lock()
		w.roster.Remove(event.Name)
		w.mu.Unlock()
	}
}

func (w *World) storeSnapshots() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, kind := range listKinds {
		w.snapshots[kind] = w.lists.Snapshot(kind)
	}
}

func (w *World) dispatchChat(event ChatEvent) {
	for _, s := range w.subscriptions() {
		if !w.watching() {
			return
		}
		if s.cancelled.Load() {
			continue
		}
		w.call(s.sub, event, func() { s.sub.OnChatEvent(event) })
	}
}

func (w *World) dispatchList(change ListChange) {
	for _, s := range w.subscriptions() {
		if !w.watching() {
			return
		}
		ls, ok := s.sub.(ListSubscriber)
		if !ok || s.cancelled.Load() {
			continue
		}
		w.call(s.sub, change, func() { ls.OnListChange(change) })
	}
}

// call runs fn, turning a panic into a SubscriberFault so one bad subscriber
// cannot stop the others or the poll loop.
func (w *World) call(sub Subscriber, event any, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			fault := SubscriberFault{Subscriber: sub, Event: event, Value: r}
			log.Printf("dispatch: %v", fault)
			if w.opts.OnFault != nil {
				w.opts.OnFault(fault)
			}
		}
	}()
	fn()
}

// Send expands placeholders in message (see expandMessage) and sends it to the
// world. Delivery is best effort: failures are logged and passed to
// OnSendError, never returned.
func (w *World) Send(ctx context.Context, message string, params map[string]string) {
	msg := expandMessage(message, params)
	err := ErrWorldStopped
	if worldState(w.state.Load()) != stateStopped {
		err = w.api.Send(ctx, msg)
	}
	if err != nil {
		log.Printf("send to world: %v", err)
		if w.opts.OnSendError != nil {
			w.opts.OnSendError(msg, err)
		}
	}
}

// Online returns the names of the players currently online, in join order.
func (w *World) Online() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.roster.Snapshot()
}

func (w *World) IsOnline(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.roster.Contains(name)
}

// List returns the last successfully read content of kind.
func (w *World) List(kind ListKind) ListSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append(ListSnapshot(nil), w.snapshots[kind]...)
}

// Subscription is the handle returned by Subscribe. It does not keep the
// World alive beyond the subscriber's own references.
type Subscription struct {
	world     *World
	sub       Subscriber
	cancelled atomic.Bool
}

// Cancel stops delivery to the subscriber. It is safe to call more than once
// and from inside a handler.
func (s *Subscription) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	w := s.world
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for i, other := range w.subs {
		if other == s {
			w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
			break
		}
	}
}

// Subscribe registers sub for every chat event, and for list changes if sub
// implements ListSubscriber. Subscribers are called in registration order.
func (w *World) Subscribe(sub Subscriber) *Subscription {
	s := &Subscription{world: w, sub: sub}
	w.subMu.Lock()
	w.subs = append(w.subs, s)
	w.subMu.Unlock()
	return s
}

// On registers fn for chat events of type t only.
func (w *World) On(t ChatType, fn func(ChatEvent)) *Subscription {
	return w.Subscribe(ChatHandler(func(e ChatEvent) {
		if e.Type == t {
			fn(e)
		}
	}))
}

// OnMessage registers fn for chat messages, including the message half of commands.
func (w *World) OnMessage(fn func(name, message string)) *Subscription {
	return w.On(ChatMessage, func(e ChatEvent) { fn(e.Name, e.Message) })
}

func (w *World) OnListChange(fn func(ListChange)) *Subscription {
	return w.Subscribe(ListHandler(fn))
}

func (w *World) subscriptions() []*Subscription {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	out := make([]*Subscription, len(w.subs))
	copy(out, w.subs)
	return out
}
