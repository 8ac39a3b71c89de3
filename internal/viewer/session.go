package viewer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/source"
)

// Session owns at most one live engine instance bound to one container.
// Start, Reconfigure and Dispose may be called from any goroutine.
//
// Every Start is tagged with a load id. After each suspension point the
// session checks that the id is still current and that it has not been
// disposed; an instance produced by a stale Start is unloaded and never
// stored or exposed.
type Session struct {
	id           string
	engine       Engine
	container    Container
	log          *zap.Logger
	timings      Timings
	baseLocation string
	blobs        BlobResolver
	hooks        []Hook
	onLoad       func(Instance)
	onEvent      func(Event)

	// applyMu serializes engine mutations (mode application and unload).
	applyMu sync.Mutex

	mu         sync.Mutex
	loadSeq    uint64
	current    uint64 // Load id of the newest Start.
	loadedID   uint64 // Load id that produced instance.
	cancelLoad context.CancelFunc
	disposed   bool
	instance   Instance
	ready      bool
	draining   bool
	latest     mode.Mode
	applied    mode.Mode
	hasApplied bool
	detach     []func()
	queue      modeQueue
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger (default: the package Logger).
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithLoadObserver registers fn to receive each successfully started instance.
func WithLoadObserver(fn func(Instance)) Option {
	return func(s *Session) { s.onLoad = fn }
}

// WithEventCallback registers fn to receive lifecycle events. fn runs
// synchronously on the goroutine that produced the event and must not call
// back into the session.
func WithEventCallback(fn func(Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// WithHooks attaches side-effect hooks to every started instance.
func WithHooks(hooks ...Hook) Option {
	return func(s *Session) { s.hooks = append(s.hooks, hooks...) }
}

// WithBlobResolver sets the resolver used to materialize blob handles.
func WithBlobResolver(r BlobResolver) Option {
	return func(s *Session) { s.blobs = r }
}

// WithTimings overrides wait and polling intervals. Zero fields keep
// their defaults.
func WithTimings(t Timings) Option {
	return func(s *Session) { s.timings = t.withDefaults() }
}

// WithBaseLocation sets the base location passed to every engine load.
func WithBaseLocation(base string) Option {
	return func(s *Session) { s.baseLocation = base }
}

// WithInitialMode records the mode to apply once the first document is ready.
func WithInitialMode(m mode.Mode) Option {
	return func(s *Session) { s.latest = m }
}

// NewSession creates a Session that renders into container using engine.
func NewSession(engine Engine, container Container, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		engine:    engine,
		container: container,
		timings:   DefaultTimings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = Logger()
	}
	s.log = s.log.With(zap.String("session", s.id))
	return s
}

// ID returns the session's identifier, used in logs and events.
func (s *Session) ID() string { return s.id }

// Start loads src into the session's container, replacing any previous
// instance. A superseded or disposed Start returns nil without exposing
// its instance. Engine load failures are logged and returned as
// *LoadError; the session is then left without an instance.
func (s *Session) Start(ctx context.Context, src source.Source) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.loadSeq++
	id := s.loadSeq
	s.current = id
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	prev := s.instance
	detach := s.detach
	s.instance = nil
	s.loadedID = 0
	s.detach = nil
	s.ready = false
	s.draining = false
	s.hasApplied = false
	s.queue.reset()
	s.mu.Unlock()

	log := s.log.With(zap.Uint64("load_id", id), zap.String("source", src.String()))
	runDetach(detach)
	s.emit(Event{Kind: EventLoadStarted, LoadID: id, Source: src})

	s.applyMu.Lock()
	err := s.engine.Unload(s.container)
	s.applyMu.Unlock()
	if err != nil {
		if prev != nil {
			log.Warn("unloading previous instance failed", zap.Error(err))
		} else {
			log.Debug("nothing to unload before load", zap.Error(err))
		}
	}

	src = s.materialize(loadCtx, src, log)
	if !s.isCurrent(id) {
		log.Debug("start superseded during source conversion")
		return nil
	}

	if !awaitReady(loadCtx, s.container, s.timings.GateTimeout, s.timings.FrameInterval, log) {
		log.Debug("start cancelled while waiting for container")
		return nil
	}
	if !sleepCtx(loadCtx, s.timings.SettleDelay) || !s.isCurrent(id) {
		log.Debug("start superseded while settling")
		return nil
	}

	log.Info("loading document")
	inst, err := s.engine.Load(loadCtx, LoadRequest{
		Container:    s.container,
		Source:       src,
		BaseLocation: s.baseLocation,
	})
	if err != nil {
		if !s.isCurrent(id) {
			log.Debug("stale load failed", zap.Error(err))
			return nil
		}
		s.mu.Lock()
		if s.current == id && s.cancelLoad != nil {
			s.cancelLoad()
			s.cancelLoad = nil
		}
		s.mu.Unlock()
		log.Error("engine load failed", zap.Error(err))
		s.emit(Event{Kind: EventLoadFailed, LoadID: id, Source: src, Err: err})
		return &LoadError{LoadID: id, Source: src.String(), Err: err}
	}

	s.mu.Lock()
	if s.disposed || s.current != id {
		s.mu.Unlock()
		s.discard(inst, log)
		s.emit(Event{Kind: EventDiscarded, LoadID: id, Source: src})
		return nil
	}
	s.instance = inst
	s.loadedID = id
	s.ready = false
	s.queue.reset()
	s.mu.Unlock()

	log.Info("document loaded")
	if s.onLoad != nil {
		s.onLoad(inst)
	}
	s.attachHooks(loadCtx, id, inst)
	s.emit(Event{Kind: EventLoaded, LoadID: id, Source: src})

	go s.watchReadiness(loadCtx, id, inst, log)
	return nil
}

// Reconfigure requests mode m. Before an instance exists the request is
// recorded and applied once the document is ready; before readiness it is
// queued; afterwards it is applied immediately.
func (s *Session) Reconfigure(m mode.Mode) {
	s.mu.Lock()
	s.latest = m
	if s.disposed || s.instance == nil {
		s.mu.Unlock()
		s.log.Debug("mode recorded until a document is loaded", zap.Stringer("mode", m))
		return
	}
	id := s.loadedID
	if !s.ready || s.draining {
		added := s.queue.enqueue(m)
		s.mu.Unlock()
		if added {
			s.emit(Event{Kind: EventModeQueued, LoadID: id, Mode: m})
		}
		return
	}
	inst := s.instance
	s.mu.Unlock()

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	// Apply the newest request, not m: a concurrent Reconfigure may have
	// acquired applyMu first.
	s.mu.Lock()
	if !s.isLiveLocked(id) {
		s.mu.Unlock()
		return
	}
	target := s.latest.OrDefault()
	if s.hasApplied && s.applied == target {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.apply(id, inst, target)
}

// Dispose unloads the instance and stops all in-flight work. It is
// idempotent; unload failures are logged, never returned.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	cancel := s.cancelLoad
	s.cancelLoad = nil
	inst := s.instance
	s.instance = nil
	s.loadedID = 0
	s.ready = false
	s.draining = false
	detach := s.detach
	s.detach = nil
	s.queue.reset()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	runDetach(detach)

	s.applyMu.Lock()
	err := s.engine.Unload(s.container)
	s.applyMu.Unlock()
	if err != nil {
		if inst != nil {
			s.log.Warn("unloading instance on dispose failed", zap.Error(err))
		} else {
			s.log.Debug("nothing to unload on dispose", zap.Error(err))
		}
	}
	s.log.Info("session disposed")
	s.emit(Event{Kind: EventDisposed})
}

// Instance returns the live instance, if any.
func (s *Session) Instance() (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance, s.instance != nil
}

// Ready reports whether the current document has been confirmed interactive.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Disposed reports whether Dispose has been called.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// LatestMode returns the most recently requested mode.
func (s *Session) LatestMode() mode.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// AppliedMode returns the mode last applied to the current instance.
func (s *Session) AppliedMode() (mode.Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied, s.hasApplied
}

// materialize converts a blob handle into bytes, falling back to the
// original reference when conversion fails.
func (s *Session) materialize(ctx context.Context, src source.Source, log *zap.Logger) source.Source {
	if !src.IsBlob() {
		return src
	}
	if s.blobs == nil {
		log.Warn("no blob resolver; passing blob reference through")
		return src
	}
	data, err := s.blobs.Fetch(ctx, src.Ref)
	if err != nil {
		log.Warn("converting blob source failed; passing reference through", zap.Error(err))
		return src
	}
	if data == nil {
		data = []byte{}
	}
	return source.Source{Ref: src.Ref, Name: src.Name, Data: data}
}

// discard unloads an instance produced by a stale Start. Instances that
// implement io.Closer are closed individually so a newer instance in the
// same container is left alone.
func (s *Session) discard(inst Instance, log *zap.Logger) {
	var err error
	if c, ok := inst.(io.Closer); ok {
		err = c.Close()
	} else {
		s.applyMu.Lock()
		err = s.engine.Unload(s.container)
		s.applyMu.Unlock()
	}
	if err != nil {
		log.Debug("unloading stale instance failed", zap.Error(err))
		return
	}
	log.Debug("stale instance unloaded")
}

func (s *Session) attachHooks(ctx context.Context, id uint64, inst Instance) {
	if len(s.hooks) == 0 {
		return
	}
	var detach []func()
	for _, h := range s.hooks {
		if d := h.Attach(ctx, inst); d != nil {
			detach = append(detach, d)
		}
	}
	s.mu.Lock()
	if s.isLiveLocked(id) {
		s.detach = append(s.detach, detach...)
		detach = nil
	}
	s.mu.Unlock()
	runDetach(detach)
}

// watchReadiness waits for the instance's document to become interactive,
// then drains queued mode requests.
func (s *Session) watchReadiness(ctx context.Context, id uint64, inst Instance, log *zap.Logger) {
	var ok bool
	switch r := inst.(type) {
	case ReadinessPoller:
		ok = s.pollReady(ctx, r, log)
	case ReadinessNotifier:
		ok = s.waitNotified(ctx, r, log)
	default:
		ok = sleepCtx(ctx, s.timings.ReadyFallback)
	}
	if !ok {
		return
	}
	s.markReady(id, inst, log)
}

func (s *Session) pollReady(ctx context.Context, r ReadinessPoller, log *zap.Logger) bool {
	if r.IsDocumentReady() {
		return true
	}
	deadline := time.NewTimer(s.timings.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(s.timings.ReadyPollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			log.Warn("document readiness not confirmed before timeout; proceeding",
				zap.Duration("timeout", s.timings.ReadyTimeout))
			return true
		case <-tick.C:
			if r.IsDocumentReady() {
				return true
			}
		}
	}
}

func (s *Session) waitNotified(ctx context.Context, r ReadinessNotifier, log *zap.Logger) bool {
	done := make(chan struct{})
	var once sync.Once
	cancel := r.OnDocumentReady(func() { once.Do(func() { close(done) }) })
	if cancel != nil {
		defer cancel()
	}
	deadline := time.NewTimer(s.timings.ReadyTimeout)
	defer deadline.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-done:
		return true
	case <-deadline.C:
		log.Warn("document ready event not received before timeout; proceeding",
			zap.Duration("timeout", s.timings.ReadyTimeout))
		return true
	}
}

func (s *Session) markReady(id uint64, inst Instance, log *zap.Logger) {
	s.mu.Lock()
	if !s.isLiveLocked(id) || s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	s.draining = true
	s.mu.Unlock()

	log.Info("document ready")
	s.emit(Event{Kind: EventReady, LoadID: id})
	s.drain(id, inst)
}

// drain applies queued requests in arrival order, then re-applies the
// latest requested mode unless it was the last one applied. Requests that
// arrive while draining are picked up before draining ends.
func (s *Session) drain(id uint64, inst Instance) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	for {
		s.queue.drainInto(func(m mode.Mode) {
			if s.isLive(id) {
				s.apply(id, inst, m.OrDefault())
			}
		})

		s.mu.Lock()
		if !s.isLiveLocked(id) {
			s.mu.Unlock()
			return
		}
		if s.queue.len() > 0 {
			s.mu.Unlock()
			continue
		}
		latest := s.latest.OrDefault()
		if s.hasApplied && s.applied == latest {
			s.draining = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.apply(id, inst, latest)
	}
}

// apply pushes m's configuration into inst. Engine errors and panics are
// logged; the mode is recorded as applied regardless so reconciliation
// converges. Callers hold applyMu.
func (s *Session) apply(id uint64, inst Instance, m mode.Mode) {
	cfg := mode.ConfigurationFor(m)
	items := mode.Resolve(cfg.Items, s.engine.Catalog())
	log := s.log.With(zap.Uint64("load_id", id), zap.Stringer("mode", m))

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("engine panicked while applying mode", zap.Any("panic", r))
			}
		}()
		if err := inst.SetViewState(func(v mode.ViewState) mode.ViewState {
			return v.Apply(cfg.View)
		}); err != nil {
			log.Warn("setting view state failed", zap.Error(err))
		}
		if err := inst.SetToolbarItems(items); err != nil {
			log.Warn("setting toolbar items failed", zap.Error(err))
		}
	}()

	s.mu.Lock()
	if s.loadedID == id {
		s.applied = m
		s.hasApplied = true
	}
	s.mu.Unlock()

	log.Debug("mode applied", zap.Int("toolbar_items", len(items)))
	s.emit(Event{Kind: EventModeApplied, LoadID: id, Mode: m})
}

func (s *Session) isCurrent(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disposed && s.current == id
}

func (s *Session) isLive(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLiveLocked(id)
}

func (s *Session) isLiveLocked(id uint64) bool {
	return !s.disposed && s.current == id && s.loadedID == id && s.instance != nil
}

func (s *Session) emit(ev Event) {
	if s.onEvent == nil {
		return
	}
	ev.Session = s.id
	s.onEvent(ev)
}

func runDetach(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
