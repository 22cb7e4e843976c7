package core

import (
	"context"
	"sync"
)

// Operation names a hookable ListenableConnection call.
type Operation string

// Hookable operations.
const (
	OpSelect      Operation = "select"
	OpCount       Operation = "count"
	OpPaginate    Operation = "paginate"
	OpInsert      Operation = "insert"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpInsertBatch Operation = "insertBatch"
)

// Event is the payload handed to hooks. Before hooks may modify it in place
// or return a replacement through Continue.
type Event struct {
	Operation Operation
	// Root is the operation of the outermost call, e.g. OpPaginate for the
	// count and select a paginate issues.
	Root     Operation
	Table    string
	Data     Row
	Rows     []Row
	Criteria Criteria
	Options  *SelectOptions
	Page     int

	// Load asks for rows instead of counts: UpdateLoad, DeleteLoad and
	// InsertBatchLoad set it. LoadKey is the generated key of InsertKey
	// and InsertLoad.
	Load    bool
	LoadKey string
	// Simple marks SimplePaginate.
	Simple bool
	// WithTrashed includes soft deleted rows.
	WithTrashed bool
	// Force turns a soft delete into a real one.
	Force bool

	// Conn is the connection that dispatched the event.
	Conn *ListenableConnection
}

// Result is what an operation produced. The field matching the operation
// is set: Rows for select and loaded deletes or batches, Row for loaded
// inserts and updates, Count for count, Page for paginate and Exec for
// plain writes.
type Result struct {
	Rows  []Row
	Row   Row
	Count int64
	Page  *Page
	Exec  ExecResult
}

// Outcome is the verdict of a before hook.
type Outcome struct {
	event  *Event
	result Result
	err    error
	stop   bool
}

// Continue lets the operation proceed with ev.
func Continue(ev *Event) Outcome {
	return Outcome{event: ev}
}

// ShortCircuit skips the operation and the after hooks; res becomes the result.
func ShortCircuit(res Result) Outcome {
	return Outcome{result: res, stop: true}
}

// Abort skips the operation and makes it fail with err.
func Abort(err error) Outcome {
	return Outcome{err: err, stop: true}
}

// Stopped reports whether the outcome ends the operation.
func (o Outcome) Stopped() bool {
	return o.stop
}

// BeforeHook runs before an operation executes.
type BeforeHook func(ctx context.Context, ev *Event) Outcome

// AfterHook runs after an operation executed and may replace its result.
type AfterHook func(ctx context.Context, ev *Event, res Result) Result

// HookID identifies a registration for Off.
type HookID uint64

type registration struct {
	id     HookID
	once   bool
	before BeforeHook
	after  AfterHook
}

// Dispatcher holds before and after hooks per operation. Hooks run in
// registration order. It is safe for concurrent use.
type Dispatcher struct {
	mu     sync.RWMutex
	seq    HookID
	before map[Operation][]*registration
	after  map[Operation][]*registration
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		before: make(map[Operation][]*registration),
		after:  make(map[Operation][]*registration),
	}
}

// Before registers hook before op.
func (d *Dispatcher) Before(op Operation, hook BeforeHook) HookID {
	return d.add(d.before, op, &registration{before: hook})
}

// BeforeOnce registers hook before the next op only.
func (d *Dispatcher) BeforeOnce(op Operation, hook BeforeHook) HookID {
	return d.add(d.before, op, &registration{before: hook, once: true})
}

// After registers hook after op.
func (d *Dispatcher) After(op Operation, hook AfterHook) HookID {
	return d.add(d.after, op, &registration{after: hook})
}

// AfterOnce registers hook after the next op only.
func (d *Dispatcher) AfterOnce(op Operation, hook AfterHook) HookID {
	return d.add(d.after, op, &registration{after: hook, once: true})
}

func (d *Dispatcher) add(set map[Operation][]*registration, op Operation, reg *registration) HookID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	reg.id = d.seq
	set[op] = append(set[op], reg)
	return reg.id
}

// Off removes the registration with id. It reports whether one was found.
func (d *Dispatcher) Off(id HookID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.remove(d.before, id) || d.remove(d.after, id)
}

// remove must be called with the lock held.
func (d *Dispatcher) remove(set map[Operation][]*registration, id HookID) bool {
	for op, regs := range set {
		for i, reg := range regs {
			if reg.id == id {
				set[op] = append(regs[:i:i], regs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Has reports whether op has any hooks.
func (d *Dispatcher) Has(op Operation) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.before[op]) > 0 || len(d.after[op]) > 0
}

// take returns the hooks to run and drops the once registrations.
func (d *Dispatcher) take(set map[Operation][]*registration, op Operation) []*registration {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := set[op]
	if len(regs) == 0 {
		return nil
	}

	run := append([]*registration(nil), regs...)
	kept := regs[:0:0]
	for _, reg := range regs {
		if !reg.once {
			kept = append(kept, reg)
		}
	}
	set[op] = kept
	return run
}

// dispatchBefore runs the before hooks of ev.Operation. The first
// stopping outcome wins.
func (d *Dispatcher) dispatchBefore(ctx context.Context, ev *Event) Outcome {
	for _, reg := range d.take(d.before, ev.Operation) {
		out := reg.before(ctx, ev)
		if out.stop {
			return out
		}
		if out.event != nil {
			ev = out.event
		}
	}
	return Continue(ev)
}

// dispatchAfter threads res through the after hooks of ev.Operation.
func (d *Dispatcher) dispatchAfter(ctx context.Context, ev *Event, res Result) Result {
	for _, reg := range d.take(d.after, ev.Operation) {
		res = reg.after(ctx, ev, res)
	}
	return res
}
