package mission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

// verifyNoLeaks ignores keep-alive connections left by the httptest-backed
// tests in this package.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// fakeRemote is an in-memory Remote with injectable failures.
type fakeRemote struct {
	mu sync.Mutex

	healthErr error
	loginErr  error
	logoutErr error
	meErr     error
	listErr   error
	createErr error
	readErr   error
	searchErr error

	session bool
	user    *User

	primates    []Primate
	discoveries []Discovery

	meCalls              int
	createPrimateCalls   int
	createDiscoveryCalls int
	nextID               int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		user: &User{ID: "u-1", Name: "Mission Scientist", Email: "scientist@manifest.build", Role: RoleScientist},
	}
}

func (f *fakeRemote) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

func (f *fakeRemote) Login(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.session = true
	return nil
}

func (f *fakeRemote) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = false
	return f.logoutErr
}

func (f *fakeRemote) Me(ctx context.Context) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	if !f.session {
		return nil, fmt.Errorf("401 Unauthorized")
	}
	u := *f.user
	return &u, nil
}

func (f *fakeRemote) HasSession() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeRemote) ListPrimates(ctx context.Context) ([]Primate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Primate(nil), f.primates...), nil
}

func (f *fakeRemote) SearchPrimates(ctx context.Context, query string) ([]Primate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []Primate
	for _, p := range f.primates {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreatePrimate(ctx context.Context, draft PrimateDraft, handlerID string) (*Primate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createPrimateCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p := Primate{
		ID:        fmt.Sprintf("p-%d", f.nextID),
		Name:      draft.Name,
		Species:   draft.Species,
		Status:    draft.Status,
		HandlerID: handlerID,
	}
	f.primates = append([]Primate{p}, f.primates...)
	return &p, nil
}

func (f *fakeRemote) ListDiscoveries(ctx context.Context) ([]Discovery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Discovery(nil), f.discoveries...), nil
}

func (f *fakeRemote) CreateDiscovery(ctx context.Context, draft DiscoveryDraft, scientistID string) (*Discovery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDiscoveryCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	d := Discovery{
		ID:          fmt.Sprintf("d-%d", f.nextID),
		Title:       draft.Title,
		Description: draft.Description,
		Importance:  draft.Importance,
		PrimateID:   draft.PrimateID,
		ScientistID: scientistID,
	}
	f.discoveries = append([]Discovery{d}, f.discoveries...)
	return &d, nil
}

func (f *fakeRemote) ReadDiscovery(ctx context.Context, id string) (*Discovery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, d := range f.discoveries {
		if d.ID != id {
			continue
		}
		for _, p := range f.primates {
			if p.ID == d.PrimateID {
				p := p
				d.Primate = &p
			}
		}
		if f.user != nil && f.user.ID == d.ScientistID {
			u := *f.user
			d.Scientist = &u
		}
		return &d, nil
	}
	return nil, fmt.Errorf("404 Not Found")
}
