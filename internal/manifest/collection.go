package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Collection is a typed handle on one Manifest collection.
type Collection[T any] struct {
	c    *Client
	slug string
}

// From returns a handle on the collection with the given slug,
// decoding records into T.
func From[T any](c *Client, slug string) *Collection[T] {
	return &Collection[T]{c: c, slug: slug}
}

// Slug returns the collection slug.
func (col *Collection[T]) Slug() string {
	return col.slug
}

// Paginator is one page of a find result.
type Paginator[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
	From        int `json:"from"`
	To          int `json:"to"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
}

// Filter is one where-clause on a find. It encodes as {field}_{op}=value.
type Filter struct {
	Field string
	Op    string
	Value string
}

// Contains matches records whose field contains value.
func Contains(field, value string) Filter {
	return Filter{Field: field, Op: "like", Value: "%" + value + "%"}
}

// Equals matches records whose field equals value.
func Equals(field, value string) Filter {
	return Filter{Field: field, Op: "eq", Value: value}
}

// FindOptions narrows a find. Zero values leave the backend defaults.
type FindOptions struct {
	Include []string
	Filters []Filter
	Page    int
	PerPage int
}

func (o FindOptions) query() url.Values {
	q := url.Values{}
	if len(o.Include) > 0 {
		q.Set("relations", strings.Join(o.Include, ","))
	}
	for _, f := range o.Filters {
		q.Add(f.Field+"_"+f.Op, f.Value)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(o.PerPage))
	}
	return q
}

// Payload is the body of a create. Files with a nil entry are omitted.
type Payload struct {
	Fields map[string]any
	Files  map[string]*File
}

func (p Payload) hasFiles() bool {
	for _, f := range p.Files {
		if f != nil {
			return true
		}
	}
	return false
}

// Find lists records matching opts.
func (col *Collection[T]) Find(ctx context.Context, opts FindOptions) (*Paginator[T], error) {
	var page Paginator[T]
	path := "/api/collections/" + col.slug
	if err := col.c.do(ctx, "find", http.MethodGet, path, opts.query(), nil, "", &page); err != nil {
		return nil, fmt.Errorf("find %s: %w", col.slug, err)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// Create stores a new record. The body is JSON unless the payload carries a
// file, in which case it is sent as multipart/form-data.
func (col *Collection[T]) Create(ctx context.Context, p Payload) (*T, error) {
	path := "/api/collections/" + col.slug
	var out T

	if !p.hasFiles() {
		fields := p.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		if err := col.c.doJSON(ctx, "create", http.MethodPost, path, nil, fields, &out); err != nil {
			return nil, fmt.Errorf("create %s: %w", col.slug, err)
		}
		return &out, nil
	}

	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", col.slug, err)
	}
	if err := col.c.do(ctx, "create", http.MethodPost, path, nil, body, contentType, &out); err != nil {
		return nil, fmt.Errorf("create %s: %w", col.slug, err)
	}
	return &out, nil
}

// Read fetches one record by id with the given relations expanded.
func (col *Collection[T]) Read(ctx context.Context, id string, include ...string) (*T, error) {
	var out T
	path := "/api/collections/" + col.slug + "/" + id
	q := FindOptions{Include: include}.query()
	if err := col.c.do(ctx, "read", http.MethodGet, path, q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("read %s %s: %w", col.slug, id, err)
	}
	return &out, nil
}

func encodeMultipart(p Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, key := range sortedKeys(p.Fields) {
		v := p.Fields[key]
		if v == nil {
			continue
		}
		s, err := formValue(v)
		if err != nil {
			return nil, "", fmt.Errorf("field %s: %w", key, err)
		}
		if err := w.WriteField(key, s); err != nil {
			return nil, "", err
		}
	}

	for _, key := range sortedKeys(p.Files) {
		f := p.Files[key]
		if f == nil {
			continue
		}
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(f.Name)))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// formValue renders a field for a multipart body. Scalars are sent as text,
// anything else as JSON.
func formValue(v any) (string, error) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
