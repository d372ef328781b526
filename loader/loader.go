// Package loader fetches the school collection once per view mount and
// tracks its loading state.
package loader

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zalepa/escolas/school"
)

// ErrAlreadyActivated is returned by a second call to Activate.
var ErrAlreadyActivated = errors.New("loader already activated")

// Fetcher retrieves the school collection. *api.Client implements it.
type Fetcher interface {
	Schools(ctx context.Context) ([]school.School, error)
}

// State is a snapshot of a loader.
//
//	Loading=true,  Data=[]     created, fetch in flight
//	Loading=false, Data=[...]  fetch succeeded
//	Loading=false, Data=[]     fetch failed (Failed=true, logged)
//
// Data must not be read meaningfully while Loading is true.
type State struct {
	Loading bool            `json:"loading"`
	Data    []school.School `json:"data"`
	Failed  bool            `json:"failed"`
}

// Loader runs one fetch for one view mount. A new mount needs a new Loader.
type Loader struct {
	fetch Fetcher
	log   *zap.Logger
	id    string
	done  chan struct{}

	mu        sync.Mutex
	state     State
	activated bool
	discarded bool
	cancel    context.CancelFunc
}

// New returns an inactive loader for f. A nil log discards diagnostics.
func New(f Fetcher, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Loader{
		fetch: f,
		log:   log.With(zap.String("activation", id)),
		id:    id,
		done:  make(chan struct{}),
		state: State{Loading: true, Data: []school.School{}},
	}
}

// ID identifies this loader in logs.
func (l *Loader) ID() string { return l.id }

// Activate starts the single fetch in the background. The fetch is bound to
// ctx and to Teardown, whichever ends first.
func (l *Loader) Activate(ctx context.Context) error {
	l.mu.Lock()
	if l.activated {
		l.mu.Unlock()
		return ErrAlreadyActivated
	}
	l.activated = true
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	l.log.Debug("activating loader")
	go l.run(ctx)
	return nil
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)
	schools, err := l.fetch.Schools(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel()

	if l.discarded {
		l.log.Debug("discarding result of torn down loader", zap.Bool("failed", err != nil))
		return
	}
	if err != nil {
		l.log.Error("loading schools", zap.Error(err))
		l.state = State{Loading: false, Data: []school.School{}, Failed: true}
		return
	}
	l.log.Info("loaded schools", zap.Int("count", len(schools)))
	l.state = State{Loading: false, Data: schools}
}

// Teardown is called when the view goes away. An in-flight fetch is
// cancelled and whatever it resolves to is dropped; State is left as is.
func (l *Loader) Teardown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.activated || l.discarded {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	l.discarded = true
	l.cancel()
}

// State returns a snapshot of the loader's state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done is closed once the activation has resolved.
func (l *Loader) Done() <-chan struct{} { return l.done }

// Wait blocks until the activation resolves or ctx ends.
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
