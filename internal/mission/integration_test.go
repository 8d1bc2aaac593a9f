package mission

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/manifest/manifesttest"
)

func newBackedState(t *testing.T) (*State, *manifesttest.Server) {
	t.Helper()
	srv := manifesttest.NewServer()
	t.Cleanup(srv.Close)

	client, err := manifest.New(srv.URL)
	require.NoError(t, err)
	return NewState(NewManifestRemote(client, DefaultCollections)), srv
}

func TestIntegration_ScientistLoginAndRefetch(t *testing.T) {
	state, _ := newBackedState(t)
	ctx := context.Background()

	res := state.Start(ctx)
	require.True(t, res.Success)
	assert.Nil(t, state.Session.User())

	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	require.NoError(t, state.Session.Bootstrap(ctx))

	u := state.Session.User()
	require.NotNil(t, u)
	assert.Equal(t, RoleScientist, u.Role)
}

func TestIntegration_ObserverIsNotScientist(t *testing.T) {
	state, _ := newBackedState(t)
	require.NoError(t, state.Login(context.Background(), manifesttest.ObserverEmail, manifesttest.Password))
	assert.False(t, state.Session.IsScientist())
}

func TestIntegration_BadCredentials(t *testing.T) {
	state, _ := newBackedState(t)
	err := state.Login(context.Background(), manifesttest.ScientistEmail, "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.True(t, manifest.IsUnauthorized(err))
	assert.Nil(t, state.Session.User())
}

func TestIntegration_CreateAldrinWithoutAvatar(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	require.NoError(t, state.Refresh(ctx))

	_, err := state.CreatePrimate(ctx, PrimateDraft{Name: "Aldrin", Species: SpeciesChimpanzee, Status: StatusInTraining})
	require.NoError(t, err)

	head := state.Primates.Items()[0]
	assert.Equal(t, "Aldrin", head.Name)
	assert.Equal(t, SpeciesChimpanzee, head.Species)
	assert.Equal(t, StatusInTraining, head.Status)
	assert.Nil(t, head.Avatar)

	reqs := srv.Requests()
	assert.Equal(t, "application/json", reqs[len(reqs)-1].ContentType)

	require.NoError(t, state.Refresh(ctx))
	reloaded := state.Primates.Items()
	require.Len(t, reloaded, 1)
	assert.Equal(t, "Mission Scientist", reloaded[0].HandlerName())
}

func TestIntegration_CreatePrimateWithAvatar(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))

	avatar := &manifest.File{Name: "ham.png", ContentType: "image/png", Data: []byte("png")}
	p, err := state.CreatePrimate(ctx, PrimateDraft{Name: "Ham", Avatar: avatar})
	require.NoError(t, err)
	require.NotNil(t, p.Avatar)
	assert.True(t, strings.HasPrefix(p.Avatar.URL, srv.URL+"/storage/"))

	reqs := srv.Requests()
	assert.True(t, strings.HasPrefix(reqs[len(reqs)-1].ContentType, "multipart/form-data"))
}

func TestIntegration_CreateDiscoveryExpandsRelations(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	primateID := srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham", "species": "Chimpanzee", "status": "Retired"})
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))

	proof := &manifest.File{Name: "proof.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
	d, err := state.CreateDiscovery(ctx, DiscoveryDraft{
		Title:         "Water ice at the south pole",
		Description:   "Found in a shadowed crater.",
		PrimateID:     primateID,
		ProofDocument: proof,
	})
	require.NoError(t, err)

	assert.Equal(t, ImportanceMinor, d.Importance)
	assert.Equal(t, "Ham", d.PrimateName())
	assert.Equal(t, "Mission Scientist", d.ScientistName())
	require.NotNil(t, d.ProofDocument)
	assert.True(t, strings.HasPrefix(d.ProofDocument.URL, srv.URL+"/storage/"))

	head := state.Discoveries.Items()[0]
	assert.Equal(t, d.ID, head.ID)
}

func TestIntegration_DiscoveryWithoutPrimateNeverReachesBackend(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))

	_, err := state.CreateDiscovery(ctx, DiscoveryDraft{Title: "Orphan"})
	assert.ErrorIs(t, err, ErrPrimateRequired)

	for _, r := range srv.Requests() {
		assert.False(t, r.Method == http.MethodPost && r.Path == "/api/collections/discoveries")
	}
}

func TestIntegration_FailedCreateKeepsList(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham"})
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	require.NoError(t, state.Refresh(ctx))

	srv.Fail(http.MethodPost, "/api/collections/astro-primates", http.StatusInternalServerError)
	_, err := state.CreatePrimate(ctx, PrimateDraft{Name: "Enos"})
	require.Error(t, err)
	assert.Equal(t, 1, state.Primates.Len())
}

func TestIntegration_LogoutClearsEverything(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham"})
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	require.NoError(t, state.Refresh(ctx))

	require.NoError(t, state.Logout(ctx))
	snap := state.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Primates)
	assert.Empty(t, snap.Discoveries)

	require.NoError(t, state.Session.Bootstrap(ctx))
	assert.Nil(t, state.Session.User())
}

func TestIntegration_EmptyFilePropertiesAreAbsent(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	primateID := srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham", "avatar": ""})
	srv.Seed(manifesttest.Discoveries, map[string]any{"title": "Dust", "primateId": primateID, "proofDocument": ""})
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	require.NoError(t, state.Refresh(ctx))

	primates := state.Primates.Items()
	require.Len(t, primates, 1)
	assert.Nil(t, primates[0].Avatar)

	discoveries := state.Discoveries.Items()
	require.Len(t, discoveries, 1)
	assert.Nil(t, discoveries[0].ProofDocument)
	require.NotNil(t, discoveries[0].Primate)
	assert.Nil(t, discoveries[0].Primate.Avatar)
}

func delayPath(method, path string, d time.Duration) func(*http.Request) time.Duration {
	return func(r *http.Request) time.Duration {
		if r.Method == method && r.URL.Path == path {
			return d
		}
		return 0
	}
}

func TestIntegration_LogoutDropsInFlightRefresh(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham"})
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	srv.SetDelay(delayPath(http.MethodGet, "/api/collections/astro-primates", 200*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- state.Refresh(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, state.Logout(ctx))
	<-done

	snap := state.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Primates)
	assert.Empty(t, snap.Discoveries)
}

func TestIntegration_LogoutDropsInFlightCreate(t *testing.T) {
	state, srv := newBackedState(t)
	ctx := context.Background()
	require.NoError(t, state.Login(ctx, manifesttest.ScientistEmail, manifesttest.Password))
	srv.SetDelay(delayPath(http.MethodPost, "/api/collections/astro-primates", 200*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := state.CreatePrimate(ctx, PrimateDraft{Name: "Enos"})
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, state.Logout(ctx))
	require.NoError(t, <-done)

	assert.Empty(t, state.Primates.Items())
	assert.Equal(t, 1, srv.CreateCount(manifesttest.Primates))
}

func TestIntegration_LoadAllWalksPages(t *testing.T) {
	state, srv := newBackedState(t)
	for i := 0; i < listPageSize+5; i++ {
		srv.Seed(manifesttest.Primates, map[string]any{"name": "Monkey"})
	}

	require.NoError(t, state.Primates.LoadAll(context.Background()))
	assert.Equal(t, listPageSize+5, state.Primates.Len())
}

func TestIntegration_SearchPrimates(t *testing.T) {
	state, srv := newBackedState(t)
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Albert II"})
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Alan"})
	srv.Seed(manifesttest.Primates, map[string]any{"name": "Ham"})

	found, err := state.SearchPrimates(context.Background(), "Al")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Zero(t, state.Primates.Len())
}

func TestIntegration_UnreachableBackend(t *testing.T) {
	srv := manifesttest.NewServer()
	url := srv.URL
	srv.Close()

	client, err := manifest.New(url)
	require.NoError(t, err)
	state := NewState(NewManifestRemote(client, DefaultCollections))

	res := state.Start(context.Background())
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
	assert.False(t, state.Initializing())
	assert.Nil(t, state.Session.User())
}
