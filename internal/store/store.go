package store

import (
	"maps"
	"slices"
	"sync"
	"time"

	intevents "github.com/atelier-labs/atelier/internal/events"
	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
	v1 "github.com/atelier-labs/atelier/pkg/atelier/v1"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/metrics"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/tracing"
)

// DefaultQueueCapacity is the intent queue buffer used when no explicit
// capacity is configured.
const DefaultQueueCapacity = 256

// ReferenceState caches named reference lists (GET /references/{name}).
type ReferenceState struct {
	Lists   map[string][]string
	Loading bool
	Err     string
}

// Store is the composed state tree: one slice per resource, folded by a
// single consumer goroutine so intents are applied strictly in dispatch
// order with no interleaving. The tree is created once at process start and
// lives for the session; consumers get read-only snapshots plus Dispatch.
type Store struct {
	log      atellog.Logger
	bus      events.Bus
	metrics  metrics.RegistryProvider
	tracer   tracing.TracerProvider
	queueCap int

	intents chan intent.Intent
	quit    chan struct{}
	done    chan struct{}
	started bool

	closeOnce sync.Once

	subMu sync.Mutex
	subs  []chan struct{}

	mu            sync.RWMutex
	orders        State[resource.Order]
	proposals     State[resource.Proposal]
	persons       State[resource.Person]
	products      State[resource.Product]
	manufacturers State[resource.Manufacturer]
	roles         State[resource.Role]
	permissions   State[resource.Permission]
	users         State[resource.User]
	materials     State[resource.Material]
	pieces        Keyed[resource.Piece]
	pieceImages   Keyed[resource.PieceImage]
	pieceMats     Keyed[resource.PieceMaterial]
	references    ReferenceState
}

// Compile-time check that Store satisfies the public interface.
var _ v1.StoreV1 = (*Store)(nil)

// NewStore creates the composed store, applies the given options, and starts
// the fold loop. The fixed set of resource slices is wired here; there is no
// dynamic registration or deregistration.
func NewStore(log atellog.Logger, opts ...v1.StoreOption) (*Store, error) {
	if log == nil {
		return nil, atelerrors.NewConfigError("store requires a non-nil logger", nil)
	}
	s := &Store{
		log:      log.With("component", "Store"),
		queueCap: DefaultQueueCapacity,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.bus == nil {
		s.bus = intevents.NewNoOpEventBus()
	}
	s.intents = make(chan intent.Intent, s.queueCap)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.started = true
	go s.run()
	return s, nil
}

// Dispatch enqueues an intent for folding. It blocks only if the queue is
// full; it never performs I/O. Intents dispatched after Close are dropped
// with a warning.
func (s *Store) Dispatch(in intent.Intent) {
	s.emit(events.IntentDispatched, in)
	select {
	case <-s.quit:
		s.log.Warnf("Store closed, dropping intent %s/%s", in.Resource(), in.Operation())
	case s.intents <- in:
	}
}

// Subscribe returns a channel receiving a coalesced signal after each fold.
// The channel has a buffer of one; a slow consumer sees at least one signal
// for any number of missed folds.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// Close stops the fold loop after draining already-queued intents.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case in := <-s.intents:
			s.fold(in)
		case <-s.quit:
			// Drain anything already enqueued before stopping.
			for {
				select {
				case in := <-s.intents:
					s.fold(in)
				default:
					return
				}
			}
		}
	}
}

// fold routes one intent to every slice. Each fold function is total and
// ignores intents addressed to other resources, so blanket routing is safe.
func (s *Store) fold(in intent.Intent) {
	s.mu.Lock()
	s.orders = foldState(s.orders, in)
	s.proposals = foldState(s.proposals, in)
	s.persons = foldState(s.persons, in)
	s.products = foldState(s.products, in)
	s.manufacturers = foldState(s.manufacturers, in)
	s.roles = foldState(s.roles, in)
	s.permissions = foldState(s.permissions, in)
	s.users = foldState(s.users, in)
	s.materials = foldState(s.materials, in)
	s.pieces = foldKeyed(s.pieces, in)
	s.pieceImages = foldKeyed(s.pieceImages, in)
	s.pieceMats = foldKeyed(s.pieceMats, in)
	s.references = foldReferences(s.references, in)
	s.mu.Unlock()

	s.emit(events.IntentFolded, in)
	s.notify()
}

// foldReferences applies reference-list intents. Lists are replaced
// wholesale per name.
func foldReferences(s ReferenceState, in intent.Intent) ReferenceState {
	switch v := in.(type) {
	case intent.ReferenceFetchRequested:
		s.Loading = true
		s.Err = ""
		return s
	case intent.ReferenceFetchSucceeded:
		lists := maps.Clone(s.Lists)
		if lists == nil {
			lists = make(map[string][]string, 1)
		}
		lists[v.Name] = slices.Clone(v.Values)
		s.Lists = lists
		s.Loading = false
		return s
	case intent.ReferenceFetchFailed:
		s.Loading = false
		s.Err = v.Message
		return s
	default:
		return s
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// Subscriber already has a pending signal.
		}
	}
}

func (s *Store) emit(eventType events.EventType, in intent.Intent) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(events.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Resource:  in.Resource(),
		Operation: in.Operation(),
	})
}

// --- Snapshot accessors (defensive copies) ---

func (s *Store) Orders() State[resource.Order] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders.clone()
}

func (s *Store) Proposals() State[resource.Proposal] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proposals.clone()
}

func (s *Store) Persons() State[resource.Person] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persons.clone()
}

func (s *Store) Products() State[resource.Product] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products.clone()
}

func (s *Store) Manufacturers() State[resource.Manufacturer] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manufacturers.clone()
}

func (s *Store) Roles() State[resource.Role] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.clone()
}

func (s *Store) Permissions() State[resource.Permission] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.clone()
}

func (s *Store) Users() State[resource.User] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.clone()
}

func (s *Store) Materials() State[resource.Material] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materials.clone()
}

func (s *Store) Pieces() Keyed[resource.Piece] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pieces.clone()
}

func (s *Store) PieceImages() Keyed[resource.PieceImage] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pieceImages.clone()
}

func (s *Store) PieceMaterials() Keyed[resource.PieceMaterial] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pieceMats.clone()
}

func (s *Store) References() ReferenceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref := s.references
	if ref.Lists != nil {
		lists := make(map[string][]string, len(ref.Lists))
		for name, values := range ref.Lists {
			lists[name] = slices.Clone(values)
		}
		ref.Lists = lists
	}
	return ref
}

// --- Component accessors and pre-start setters ---

// MetricsRegistryProvider returns the configured metrics provider, nil if none.
func (s *Store) MetricsRegistryProvider() metrics.RegistryProvider { return s.metrics }

// TracerProvider returns the configured tracing provider, nil if none.
func (s *Store) TracerProvider() tracing.TracerProvider { return s.tracer }

// EventBus returns the configured event bus.
func (s *Store) EventBus() events.Bus { return s.bus }

func (s *Store) SetEventBus(bus events.Bus) error {
	if s.started {
		return atelerrors.NewConfigError("cannot set event bus after the store has started", nil)
	}
	s.bus = bus
	return nil
}

func (s *Store) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	if s.started {
		return atelerrors.NewConfigError("cannot set metrics provider after the store has started", nil)
	}
	s.metrics = provider
	return nil
}

func (s *Store) SetTracerProvider(provider tracing.TracerProvider) error {
	if s.started {
		return atelerrors.NewConfigError("cannot set tracer provider after the store has started", nil)
	}
	s.tracer = provider
	return nil
}

func (s *Store) SetQueueCapacity(size int) error {
	if s.started {
		return atelerrors.NewConfigError("cannot set queue capacity after the store has started", nil)
	}
	if size <= 0 {
		size = DefaultQueueCapacity
	}
	s.queueCap = size
	return nil
}
