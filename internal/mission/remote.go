package mission

import (
	"context"
	"fmt"

	"lunarmonkeys/internal/manifest"
)

// Remote is the backend as seen by the stores.
type Remote interface {
	Health(ctx context.Context) error

	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	HasSession() bool

	ListPrimates(ctx context.Context) ([]Primate, error)
	SearchPrimates(ctx context.Context, query string) ([]Primate, error)
	CreatePrimate(ctx context.Context, draft PrimateDraft, handlerID string) (*Primate, error)

	ListDiscoveries(ctx context.Context) ([]Discovery, error)
	CreateDiscovery(ctx context.Context, draft DiscoveryDraft, scientistID string) (*Discovery, error)
	ReadDiscovery(ctx context.Context, id string) (*Discovery, error)
}

// Collections names the backend entities used by the client.
type Collections struct {
	AuthEntity  string
	Primates    string
	Discoveries string
}

// DefaultCollections matches the LunarMonkeys backend schema.
var DefaultCollections = Collections{
	AuthEntity:  "users",
	Primates:    "astro-primates",
	Discoveries: "discoveries",
}

const listPageSize = 100

var (
	primateRelations   = []string{"handler"}
	discoveryRelations = []string{"primate", "scientist"}
)

// ManifestRemote implements Remote on a Manifest client.
type ManifestRemote struct {
	client      *manifest.Client
	entity      string
	primates    *manifest.Collection[Primate]
	discoveries *manifest.Collection[Discovery]
}

// NewManifestRemote binds the client to the given collections.
func NewManifestRemote(c *manifest.Client, cols Collections) *ManifestRemote {
	return &ManifestRemote{
		client:      c,
		entity:      cols.AuthEntity,
		primates:    manifest.From[Primate](c, cols.Primates),
		discoveries: manifest.From[Discovery](c, cols.Discoveries),
	}
}

func (r *ManifestRemote) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}

func (r *ManifestRemote) Login(ctx context.Context, email, password string) error {
	return r.client.Login(ctx, r.entity, email, password)
}

func (r *ManifestRemote) Logout(ctx context.Context) error {
	return r.client.Logout(ctx)
}

func (r *ManifestRemote) Me(ctx context.Context) (*User, error) {
	var u User
	if err := r.client.Me(ctx, r.entity, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *ManifestRemote) HasSession() bool {
	return r.client.HasSession()
}

// ListPrimates walks every page so the dashboard shows the full collection.
func (r *ManifestRemote) ListPrimates(ctx context.Context) ([]Primate, error) {
	out, err := findAll(ctx, r.primates, manifest.FindOptions{Include: primateRelations, PerPage: listPageSize})
	if err != nil {
		return nil, err
	}
	for i := range out {
		r.resolvePrimate(&out[i])
	}
	return out, nil
}

// SearchPrimates returns the first page of primates whose name contains query.
func (r *ManifestRemote) SearchPrimates(ctx context.Context, query string) ([]Primate, error) {
	page, err := r.primates.Find(ctx, manifest.FindOptions{
		Filters: []manifest.Filter{manifest.Contains("name", query)},
	})
	if err != nil {
		return nil, err
	}
	for i := range page.Data {
		r.resolvePrimate(&page.Data[i])
	}
	return page.Data, nil
}

func (r *ManifestRemote) CreatePrimate(ctx context.Context, draft PrimateDraft, handlerID string) (*Primate, error) {
	p, err := r.primates.Create(ctx, manifest.Payload{
		Fields: map[string]any{
			"name":      draft.Name,
			"species":   draft.Species,
			"status":    draft.Status,
			"handlerId": handlerID,
		},
		Files: map[string]*manifest.File{"avatar": draft.Avatar},
	})
	if err != nil {
		return nil, err
	}
	r.resolvePrimate(p)
	return p, nil
}

func (r *ManifestRemote) ListDiscoveries(ctx context.Context) ([]Discovery, error) {
	out, err := findAll(ctx, r.discoveries, manifest.FindOptions{Include: discoveryRelations, PerPage: listPageSize})
	if err != nil {
		return nil, err
	}
	for i := range out {
		r.resolveDiscovery(&out[i])
	}
	return out, nil
}

func (r *ManifestRemote) CreateDiscovery(ctx context.Context, draft DiscoveryDraft, scientistID string) (*Discovery, error) {
	d, err := r.discoveries.Create(ctx, manifest.Payload{
		Fields: map[string]any{
			"title":       draft.Title,
			"description": draft.Description,
			"importance":  draft.Importance,
			"primateId":   draft.PrimateID,
			"scientistId": scientistID,
		},
		Files: map[string]*manifest.File{"proofDocument": draft.ProofDocument},
	})
	if err != nil {
		return nil, err
	}
	r.resolveDiscovery(d)
	return d, nil
}

func (r *ManifestRemote) ReadDiscovery(ctx context.Context, id string) (*Discovery, error) {
	d, err := r.discoveries.Read(ctx, id, discoveryRelations...)
	if err != nil {
		return nil, err
	}
	r.resolveDiscovery(d)
	return d, nil
}

// resolveFile makes f absolute. An empty reference becomes nil.
func (r *ManifestRemote) resolveFile(f *manifest.FileRef) *manifest.FileRef {
	if f == nil || f.URL == "" {
		return nil
	}
	r.client.Resolve(f)
	return f
}

func (r *ManifestRemote) resolvePrimate(p *Primate) {
	p.Avatar = r.resolveFile(p.Avatar)
}

func (r *ManifestRemote) resolveDiscovery(d *Discovery) {
	d.ProofDocument = r.resolveFile(d.ProofDocument)
	if d.Primate != nil {
		r.resolvePrimate(d.Primate)
	}
}

func findAll[T any](ctx context.Context, col *manifest.Collection[T], opts manifest.FindOptions) ([]T, error) {
	out := []T{}
	for page := 1; ; page++ {
		opts.Page = page
		p, err := col.Find(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		out = append(out, p.Data...)
		if p.CurrentPage >= p.LastPage || len(p.Data) == 0 {
			return out, nil
		}
	}
}
