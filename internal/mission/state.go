package mission

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lunarmonkeys/internal/logging"
)

// slowRefresh is the refresh duration above which a warning is logged.
const slowRefresh = 2 * time.Second

// State is the single owner of session and entity lists. Views hold it by
// reference and change it only through its methods.
type State struct {
	Session     *Session
	Primates    *PrimateStore
	Discoveries *DiscoveryStore

	remote Remote

	mu           sync.RWMutex
	initializing bool
	probe        ProbeResult
}

// NewState wires the stores to remote. The state starts initializing.
func NewState(remote Remote) *State {
	return &State{
		Session:      NewSession(remote),
		Primates:     NewPrimateStore(remote),
		Discoveries:  NewDiscoveryStore(remote),
		remote:       remote,
		initializing: true,
	}
}

// Start probes the backend, restores a stored session when the probe
// succeeded, and ends the initializing phase.
func (s *State) Start(ctx context.Context) ProbeResult {
	result := Probe(ctx, s.remote)

	s.mu.Lock()
	s.probe = result
	s.mu.Unlock()

	if result.Success {
		if err := s.Session.Bootstrap(ctx); err != nil {
			logging.BootWarn("Session bootstrap interrupted: %v", err)
		}
	} else {
		logging.BootWarn("Skipping session bootstrap, backend unreachable")
	}

	s.mu.Lock()
	s.initializing = false
	s.mu.Unlock()
	return result
}

// Connected reports the last probe outcome.
func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probe.Success
}

// Initializing reports whether Start has not finished yet.
func (s *State) Initializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

// Login delegates to the session.
func (s *State) Login(ctx context.Context, email, password string) error {
	return s.Session.Login(ctx, email, password)
}

// Logout ends the session and empties both stores, whatever the remote says.
func (s *State) Logout(ctx context.Context) error {
	err := s.Session.Logout(ctx)
	s.Primates.Clear()
	s.Discoveries.Clear()
	return err
}

// Refresh loads both lists concurrently. Failures are logged by the stores
// and leave their previous contents; the first error is returned.
func (s *State) Refresh(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryStore, "Dashboard refresh")
	defer timer.StopWithThreshold(slowRefresh)

	var g errgroup.Group
	g.Go(func() error { return s.Primates.LoadAll(ctx) })
	g.Go(func() error { return s.Discoveries.LoadAll(ctx) })
	return g.Wait()
}

// CreatePrimate creates a primate handled by the current user.
func (s *State) CreatePrimate(ctx context.Context, draft PrimateDraft) (*Primate, error) {
	u := s.Session.User()
	if u == nil {
		return nil, ErrNoSession
	}
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Species == "" {
		draft.Species = SpeciesOptions[0]
	}
	if draft.Status == "" {
		draft.Status = StatusOptions[0]
	}
	return s.Primates.Create(ctx, draft, u.ID)
}

// CreateDiscovery logs a discovery by the current user. A draft without a
// primate is rejected before any request is made.
func (s *State) CreateDiscovery(ctx context.Context, draft DiscoveryDraft) (*Discovery, error) {
	if draft.PrimateID == "" {
		logging.StoreError("Discovery %q rejected: no primate selected", draft.Title)
		logging.Audit().RecordRejected(s.Discoveries.name, "no primate selected")
		return nil, ErrPrimateRequired
	}
	u := s.Session.User()
	if u == nil {
		return nil, ErrNoSession
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Importance == "" {
		draft.Importance = ImportanceOptions[0]
	}
	return s.Discoveries.Create(ctx, draft, u.ID)
}

// SearchPrimates backs the relationship picker.
func (s *State) SearchPrimates(ctx context.Context, query string) ([]Primate, error) {
	return s.Primates.Search(ctx, query)
}

// Snapshot is an immutable view of the state for rendering.
type Snapshot struct {
	Initializing       bool
	Connected          bool
	User               *User
	Primates           []Primate
	Discoveries        []Discovery
	LoadingPrimates    bool
	LoadingDiscoveries bool
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	initializing := s.initializing
	connected := s.probe.Success
	s.mu.RUnlock()

	return Snapshot{
		Initializing:       initializing,
		Connected:          connected,
		User:               s.Session.User(),
		Primates:           s.Primates.Items(),
		Discoveries:        s.Discoveries.Items(),
		LoadingPrimates:    s.Primates.Loading(),
		LoadingDiscoveries: s.Discoveries.Loading(),
	}
}
