package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	ErrExtensionExists        = errors.New("extension already loaded")
	ErrExtensionNotRegistered = errors.New("extension not registered")
	ErrExtensionNotLoaded     = errors.New("extension not loaded")
)

// ExtensionFunc sets up an extension for one bot.
type ExtensionFunc func(ex *Extension, w *World) error

// Registry holds the extensions bots may load. It is created once in main
// and passed to every Bot; nothing reaches it implicitly.
type Registry struct {
	mu    sync.RWMutex
	inits map[string]ExtensionFunc

	// OnRegistered and OnDeregistered, when set, are called after a change.
	OnRegistered   func(id string)
	OnDeregistered func(id string)
}

func NewRegistry() *Registry {
	return &Registry{inits: make(map[string]ExtensionFunc)}
}

// Register adds or replaces the initializer for id. Bots that already loaded
// id keep the instance they created.
func (r *Registry) Register(id string, init ExtensionFunc) {
	id = strings.ToLower(id)
	r.mu.Lock()
	r.inits[id] = init
	r.mu.Unlock()
	if r.OnRegistered != nil {
		r.OnRegistered(id)
	}
}

func (r *Registry) Deregister(id string) {
	id = strings.ToLower(id)
	r.mu.Lock()
	_, ok := r.inits[id]
	delete(r.inits, id)
	r.mu.Unlock()
	if ok && r.OnDeregistered != nil {
		r.OnDeregistered(id)
	}
}

// IDs returns the registered extension ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.inits))
}

func (r *Registry) get(id string) (ExtensionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.inits[id]
	return fn, ok
}

// Bot ties one World to its storage and the extensions loaded for it.
type Bot struct {
	World    *World
	Storage  Storage
	registry *Registry

	mu         sync.Mutex
	extensions map[string]*Extension
}

func NewBot(world *World, storage Storage, registry *Registry) *Bot {
	return &Bot{
		World:      world,
		Storage:    storage,
		registry:   registry,
		extensions: make(map[string]*Extension),
	}
}

// Start watches the world until ctx is done or the world stops.
func (b *Bot) Start(ctx context.Context) error {
	return b.World.Watch(ctx)
}

// Send is World.Send; see expandMessage for the placeholders.
func (b *Bot) Send(ctx context.Context, message string, params map[string]string) {
	b.World.Send(ctx, message, params)
}

// Extensions returns the ids of the loaded extensions, sorted.
func (b *Bot) Extensions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.extensions))
}

// Exports returns what extension id exported, or nil if it is not loaded.
func (b *Bot) Exports(id string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ex, ok := b.extensions[strings.ToLower(id)]; ok {
		return ex.Exports
	}
	return nil
}

// AddExtension loads a registered extension into this bot.
func (b *Bot) AddExtension(id string) error {
	id = strings.ToLower(id)
	b.mu.Lock()
	if _, ok := b.extensions[id]; ok {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrExtensionExists)
	}
	init, ok := b.registry.get(id)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrExtensionNotRegistered)
	}
	ex := &Extension{
		ID:      id,
		Bot:     b,
		World:   b.World,
		Storage: b.Storage.Prefix(id),
		Exports: make(map[string]any),
	}
	b.extensions[id] = ex
	b.mu.Unlock()

	if err := init(ex, b.World); err != nil {
		ex.cancelSubscriptions()
		b.mu.Lock()
		delete(b.extensions, id)
		b.mu.Unlock()
		return fmt.Errorf("init %s: %w", id, err)
	}
	return nil
}

// RemoveExtension unloads an extension. With uninstall its OnUninstall hook
// runs instead of OnRemove. The extension is unloaded even if the hook panics.
func (b *Bot) RemoveExtension(id string, uninstall bool) error {
	id = strings.ToLower(id)
	b.mu.Lock()
	ex, ok := b.extensions[id]
	delete(b.extensions, id)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrExtensionNotLoaded)
	}

	defer ex.cancelSubscriptions()
	hook := ex.OnRemove
	if uninstall {
		hook = ex.OnUninstall
	}
	if hook != nil {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("extension %s: remove hook panicked: %v", id, r)
			}
		}()
		hook()
	}
	return nil
}

// Extension is one extension instance loaded into a Bot.
type Extension struct {
	ID      string
	Bot     *Bot
	World   *World
	Storage Storage
	Exports map[string]any

	// OnRemove runs when the extension is unloaded, OnUninstall when it is
	// removed for good. Subscriptions made through the extension are
	// cancelled either way.
	OnRemove    func()
	OnUninstall func()

	mu   sync.Mutex
	subs []*Subscription
}

func (ex *Extension) track(s *Subscription) *Subscription {
	ex.mu.Lock()
	ex.subs = append(ex.subs, s)
	ex.mu.Unlock()
	return s
}

func (ex *Extension) Subscribe(sub Subscriber) *Subscription {
	return ex.track(ex.World.Subscribe(sub))
}

func (ex *Extension) On(t ChatType, fn func(ChatEvent)) *Subscription {
	return ex.track(ex.World.On(t, fn))
}

func (ex *Extension) OnMessage(fn func(name, message string)) *Subscription {
	return ex.track(ex.World.OnMessage(fn))
}

func (ex *Extension) OnListChange(fn func(ListChange)) *Subscription {
	return ex.track(ex.World.OnListChange(fn))
}

func (ex *Extension) cancelSubscriptions() {
	ex.mu.Lock()
	subs := ex.subs
	ex.subs = nil
	ex.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}
