// Package bus implements the in-process publish/subscribe registry that
// decouples the repository from UI and sync consumers. Dispatch is
// synchronous: Emit fully drains the handler list before returning.
package bus

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"grana/internal/logger"
)

// Result controls propagation to lower-priority handlers.
type Result int

const (
	// Continue lets dispatch proceed to the next handler.
	Continue Result = iota
	// Stop halts propagation to lower-priority handlers.
	Stop
)

// Handler processes an emitted payload.
type Handler func(payload interface{}) Result

// DefaultHandlerCap is the soft limit of handlers per topic. Exceeding it
// logs a warning to surface potential subscription leaks; it is never an error.
const DefaultHandlerCap = 25

var subSeq atomic.Int64

type subscription struct {
	seq           int64
	id            string
	priority      int
	once          bool
	detachOnPanic bool
	fn            Handler
}

type options struct {
	id            string
	priority      int
	once          bool
	detachOnPanic bool
}

// Option configures a subscription.
type Option func(*options)

// WithPriority sets the dispatch priority. Higher runs first; equal
// priorities run in subscription order.
func WithPriority(p int) Option { return func(o *options) { o.priority = p } }

// WithID attaches a diagnostic identifier to the subscription.
func WithID(id string) Option { return func(o *options) { o.id = id } }

// WithOnce removes the subscription after its first invocation.
func WithOnce() Option { return func(o *options) { o.once = true } }

// WithDetachOnPanic removes the subscription if its handler panics.
func WithDetachOnPanic() Option { return func(o *options) { o.detachOnPanic = true } }

// Bus is a synchronous topic-based publish/subscribe registry.
type Bus struct {
	mu         sync.Mutex
	subs       map[Topic][]*subscription
	handlerCap int
	log        *zap.SugaredLogger
}

// New creates a Bus with the default per-topic handler cap.
func New() *Bus {
	return &Bus{
		subs:       make(map[Topic][]*subscription),
		handlerCap: DefaultHandlerCap,
		log:        logger.Named("bus"),
	}
}

// SetHandlerCap overrides the soft per-topic handler cap.
func (b *Bus) SetHandlerCap(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlerCap = n
}

// Subscribe registers a handler for the topic and returns a function that
// removes exactly that handler.
func (b *Bus) Subscribe(topic Topic, fn Handler, opts ...Option) func() {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sub := &subscription{
		seq:           subSeq.Add(1),
		id:            o.id,
		priority:      o.priority,
		once:          o.once,
		detachOnPanic: o.detachOnPanic,
		fn:            fn,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	if n := len(b.subs[topic]); n > b.handlerCap {
		b.log.Warnw("handler count exceeds soft cap, possible leak",
			"topic", topic, "handlers", n, "cap", b.handlerCap)
	}
	b.mu.Unlock()

	return func() { b.remove(topic, sub) }
}

// Once registers a handler that automatically unsubscribes after running once.
func (b *Bus) Once(topic Topic, fn Handler, opts ...Option) func() {
	return b.Subscribe(topic, fn, append(opts, WithOnce())...)
}

// Emit invokes the topic's handlers in descending priority order and reports
// whether at least one handler ran. A handler returning Stop halts
// propagation. A panicking handler is recovered and logged; the remaining
// handlers still run. Handlers registered during dispatch are not seen by
// the current emit: dispatch works against a snapshot of the list.
func (b *Bus) Emit(topic Topic, payload interface{}) bool {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs[topic]))
	copy(snapshot, b.subs[topic])
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return false
	}

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].priority != snapshot[j].priority {
			return snapshot[i].priority > snapshot[j].priority
		}
		return snapshot[i].seq < snapshot[j].seq
	})

	ran := false
	for _, sub := range snapshot {
		if sub.once {
			// Remove before invoking so a re-entrant emit cannot run it twice.
			if !b.remove(topic, sub) {
				continue
			}
		}

		res, panicked := b.invoke(topic, sub, payload)
		ran = true

		if panicked && sub.detachOnPanic {
			b.remove(topic, sub)
		}
		if res == Stop {
			break
		}
	}
	return ran
}

func (b *Bus) invoke(topic Topic, sub *subscription, payload interface{}) (res Result, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			res = Continue
			b.log.Errorw("handler panicked", "topic", topic, "handler_id", sub.id, "panic", r)
		}
	}()
	return sub.fn(payload), false
}

// remove deletes the subscription and reports whether it was still registered.
func (b *Bus) remove(topic Topic, target *subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			return true
		}
	}
	return false
}
