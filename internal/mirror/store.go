package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/vaddzy/community-api/pkg/errors"
)

// Loader loads the complete contents of one collection from the backing
// store. Loaders decode through the typed repositories, so every record
// crossing the subscription boundary has passed schema validation.
type Loader func(ctx context.Context) (interface{}, error)

// Observer receives store instrumentation callbacks.
type Observer interface {
	SnapshotLoaded(collection string)
	SnapshotDelivered(collection string)
}

// Subscription is one consumer's handle on a mirror. C yields the initial
// snapshot followed by a full replacement snapshot after every committed
// change, in commit order. Cancel must be called on teardown; an abandoned
// subscription keeps its mirror alive.
type Subscription struct {
	C <-chan Snapshot

	ch     chan Snapshot
	once   sync.Once
	cancel func()
}

// Cancel detaches the subscription from its mirror. Safe to call twice.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type mirrorState struct {
	collection Collection

	mu       sync.Mutex
	snapshot Snapshot
	loaded   bool
	subs     map[*Subscription]struct{}

	reload chan struct{}
	done   chan struct{}
}

// Store maintains in-memory mirrors of the remote collections and fans
// complete snapshots out to subscribers. Mutation handlers never touch the
// mirrors; the reload path triggered by change notifications is the sole
// writer, so local state can only ever trail the backing store, never
// diverge from it.
type Store struct {
	logger   *zap.Logger
	observer Observer

	mu          sync.Mutex
	loaders     map[Collection]Loader
	mediaLoader func(ownerID string) Loader
	mirrors     map[Collection]*mirrorState

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStore builds an empty store. Register loaders before subscribing.
func NewStore(logger *zap.Logger, observer Observer) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		logger:   logger,
		observer: observer,
		loaders:  make(map[Collection]Loader),
		mirrors:  make(map[Collection]*mirrorState),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterLoader binds a loader to a global collection.
func (s *Store) RegisterLoader(collection Collection, loader Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[collection] = loader
}

// RegisterMediaLoader binds the factory producing per-owner media loaders.
func (s *Store) RegisterMediaLoader(factory func(ownerID string) Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaLoader = factory
}

// Subscribe attaches to a collection mirror. The initial snapshot is loaded
// synchronously and delivered as the first value on the subscription channel;
// later snapshots arrive as change notifications come in.
func (s *Store) Subscribe(ctx context.Context, collection Collection, buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = 4
	}

	for {
		m, err := s.acquireMirror(ctx, collection)
		if err != nil {
			return nil, err
		}

		ch := make(chan Snapshot, buffer)
		sub := &Subscription{C: ch, ch: ch}
		sub.cancel = func() { s.detach(collection, m, sub) }

		m.mu.Lock()
		select {
		case <-m.done:
			// Mirror was torn down between acquire and attach; start over.
			m.mu.Unlock()
			continue
		default:
		}
		m.subs[sub] = struct{}{}
		// Send the initial snapshot before releasing the lock: a reload that
		// commits between attach and first send would otherwise deliver its
		// newer snapshot ahead of this one, breaking per-collection ordering.
		// The channel is freshly made and buffered, so this cannot block.
		ch <- m.snapshot
		m.mu.Unlock()

		return sub, nil
	}
}

// Notify schedules a reload for the collection. Pending reloads coalesce; the
// next load always observes the latest committed state, so collapsing
// back-to-back notifications loses nothing.
func (s *Store) Notify(collection Collection) {
	s.mu.Lock()
	m, ok := s.mirrors[collection]
	s.mu.Unlock()
	if !ok {
		// No active mirror for this scope; nothing to refresh.
		return
	}
	select {
	case m.reload <- struct{}{}:
	default:
	}
}

// Run consumes change notifications until the context is cancelled.
func (s *Store) Run(ctx context.Context, notifications <-chan Collection) {
	for {
		select {
		case <-ctx.Done():
			return
		case collection, ok := <-notifications:
			if !ok {
				return
			}
			s.Notify(collection)
		}
	}
}

// Close tears down all mirrors.
func (s *Store) Close() {
	s.cancel()
}

func (s *Store) acquireMirror(ctx context.Context, collection Collection) (*mirrorState, error) {
	s.mu.Lock()
	if m, ok := s.mirrors[collection]; ok {
		s.mu.Unlock()
		return m, nil
	}

	loader, ok := s.loaders[collection]
	if !ok {
		if ownerID, isMedia := MediaOwner(collection); isMedia && s.mediaLoader != nil {
			loader = s.mediaLoader(ownerID)
		} else {
			s.mu.Unlock()
			return nil, appErrors.Clone(appErrors.ErrSubscriptionFailure, "no loader for collection "+string(collection))
		}
	}

	m := &mirrorState{
		collection: collection,
		subs:       make(map[*Subscription]struct{}),
		reload:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.mirrors[collection] = m
	s.mu.Unlock()

	// Initial load happens before the mirror goroutine starts so the first
	// subscriber always gets a real snapshot, not an empty placeholder.
	data, err := loader(ctx)
	if err != nil {
		s.mu.Lock()
		delete(s.mirrors, collection)
		s.mu.Unlock()
		close(m.done)
		return nil, appErrors.Wrap(err, appErrors.ErrSubscriptionFailure.Code, appErrors.ErrSubscriptionFailure.Status, "initial load failed for "+string(collection))
	}

	m.mu.Lock()
	m.snapshot = Snapshot{Collection: collection, Version: 1, TakenAt: time.Now().UTC(), Data: data}
	m.loaded = true
	m.mu.Unlock()

	if s.observer != nil {
		s.observer.SnapshotLoaded(string(collection))
	}

	go s.runMirror(m, loader)
	return m, nil
}

// runMirror serializes all reloads for one collection, which is what gives
// each subscriber its per-collection ordering guarantee. There is no ordering
// across collections.
func (s *Store) runMirror(m *mirrorState, loader Loader) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-m.done:
			return
		case <-m.reload:
		}

		data, err := loader(s.ctx)
		if err != nil {
			// Stale-but-available: keep the last snapshot rather than
			// blanking the mirror on a transient failure.
			s.logger.Warn("mirror reload failed",
				zap.String("collection", string(m.collection)),
				zap.Error(err))
			continue
		}

		m.mu.Lock()
		m.snapshot = Snapshot{
			Collection: m.collection,
			Version:    m.snapshot.Version + 1,
			TakenAt:    time.Now().UTC(),
			Data:       data,
		}
		snapshot := m.snapshot
		subs := make([]*Subscription, 0, len(m.subs))
		for sub := range m.subs {
			subs = append(subs, sub)
		}
		m.mu.Unlock()

		if s.observer != nil {
			s.observer.SnapshotLoaded(string(m.collection))
		}

		for _, sub := range subs {
			s.deliver(sub, snapshot)
		}
	}
}

// deliver pushes a snapshot without blocking the mirror loop. When a
// subscriber's buffer is full the oldest pending snapshot is dropped: each
// value is a complete replacement, so the latest one is always sufficient.
func (s *Store) deliver(sub *Subscription, snapshot Snapshot) {
	for {
		select {
		case sub.ch <- snapshot:
			if s.observer != nil {
				s.observer.SnapshotDelivered(string(snapshot.Collection))
			}
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

func (s *Store) detach(collection Collection, m *mirrorState, sub *Subscription) {
	m.mu.Lock()
	delete(m.subs, sub)
	m.mu.Unlock()

	// Scoped media mirrors are torn down with their last subscriber so a
	// sign-out or role change stops the refresh work immediately. Global
	// mirrors stay warm for the next subscriber.
	if _, isMedia := MediaOwner(collection); !isMedia {
		return
	}

	s.mu.Lock()
	m.mu.Lock()
	if len(m.subs) == 0 {
		if current, ok := s.mirrors[collection]; ok && current == m {
			delete(s.mirrors, collection)
			close(m.done)
		}
	}
	m.mu.Unlock()
	s.mu.Unlock()
}
