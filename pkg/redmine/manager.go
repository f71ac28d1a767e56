// Package redmine is the typed facade over the Redmine REST API. Operations
// are generic functions parameterised by a resource descriptor:
//
//	issues, err := redmine.ListConcurrent(ctx, m, redmine.Issues, redmine.Options{
//		Query: url.Values{"project_id": {"demo"}},
//	})
package redmine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/redmine-client/pkg/client"
	"github.com/Sternrassler/redmine-client/pkg/format"
	"github.com/Sternrassler/redmine-client/pkg/pagination"
	"github.com/Sternrassler/redmine-client/pkg/resource"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager binds a transport to the pagination settings used by list calls.
type Manager struct {
	client *client.Client
	paging pagination.Config
	logger zerolog.Logger
}

// NewManager creates a new manager.
func NewManager(c *client.Client, paging pagination.Config) *Manager {
	return &Manager{
		client: c,
		paging: paging,
		logger: log.With().Str("component", "redmine").Logger(),
	}
}

// Client returns the underlying transport.
func (m *Manager) Client() *client.Client {
	return m.client
}

// Options are per-call request settings.
type Options struct {
	// PathParams bind {name} placeholders of the descriptor's templates
	PathParams map[string]string

	// Query holds filters such as project_id or status_id. offset and
	// limit are managed by the fetch engine and overwritten.
	Query url.Values

	// Window is an explicit offset and limit for List and ListConcurrent
	Window pagination.Window
}

func (m *Manager) format() format.Format {
	return m.client.Format()
}

// Get fetches a single entity by id.
func Get[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], id string, opts Options) (*T, error) {
	path, err := d.ItemURL(id, opts.PathParams, m.format().Extension())
	if err != nil {
		return nil, err
	}
	return getEntity(ctx, m, d, path, opts.Query)
}

// Current fetches the user the API key belongs to, or the impersonated
// user when switching users.
func Current(ctx context.Context, m *Manager) (*User, error) {
	path, err := resource.Expand(currentUserPath, nil, m.format().Extension())
	if err != nil {
		return nil, err
	}
	return getEntity(ctx, m, Users, path, nil)
}

func getEntity[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], path string, query url.Values) (*T, error) {
	resp, err := m.client.Do(ctx, client.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", d.Name, err)
	}

	entity := d.New()
	if err := m.format().DecodeEntity(resp.Body, d.Name, entity); err != nil {
		return nil, fmt.Errorf("get %s: %w", d.Name, client.DecodeError(err))
	}
	return entity, nil
}

// ListPage fetches one page of a collection. An unpaged request fetches the
// endpoint without offset and limit.
func ListPage[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], opts Options, req pagination.PageRequest) (pagination.PageResult[T], error) {
	path, err := d.CollectionURL(opts.PathParams, m.format().Extension())
	if err != nil {
		return pagination.PageResult[T]{}, err
	}

	query := url.Values{}
	for k, v := range opts.Query {
		query[k] = append([]string(nil), v...)
	}
	if !req.Unpaged() {
		query.Set("offset", fmt.Sprint(req.Offset))
		query.Set("limit", fmt.Sprint(req.Limit))
	}

	resp, err := m.client.Do(ctx, client.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return pagination.PageResult[T]{}, fmt.Errorf("list %s: %w", d.Collection, err)
	}

	items, envelope, err := format.DecodePage[T](m.format(), resp.Body, d.Collection)
	if err != nil {
		return pagination.PageResult[T]{}, fmt.Errorf("list %s: %w", d.Collection, client.DecodeError(err))
	}

	return pagination.PageResult[T]{
		Items:      items,
		TotalItems: envelope.TotalCount,
		Offset:     envelope.Offset,
		Limit:      envelope.Limit,
	}, nil
}

// pageFetcher binds ListPage to a descriptor and options.
func pageFetcher[T any](m *Manager, d resource.Descriptor[T], opts Options) pagination.PageFetcher[T] {
	return pagination.PageFetcherFunc[T](func(ctx context.Context, req pagination.PageRequest) (pagination.PageResult[T], error) {
		return ListPage(ctx, m, d, opts, req)
	})
}

// List fetches the whole collection (or opts.Window of it) one page at a
// time, in ascending offset order.
func List[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], opts Options) ([]T, error) {
	m.logger.Debug().Str("resource", d.Collection).Bool("paginated", d.Paginated).Msg("Listing sequentially")
	items, err := pagination.NewSequential(pageFetcher(m, d, opts), d.Paginated, m.paging).FetchAll(ctx, opts.Window)
	return items, classifyPaging(err)
}

// ListConcurrent fetches the whole collection with the pages after the first
// one fetched in parallel. The result has the same order as List.
func ListConcurrent[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], opts Options) ([]T, error) {
	m.logger.Debug().Str("resource", d.Collection).Bool("paginated", d.Paginated).Msg("Listing concurrently")
	items, err := pagination.NewBatchFetcher(pageFetcher(m, d, opts), d.Paginated, m.paging).FetchAll(ctx, opts.Window)
	return items, classifyPaging(err)
}

// classifyPaging keeps a refused total_count inside the *client.APIError
// taxonomy.
func classifyPaging(err error) error {
	var apiErr *client.APIError
	if err == nil || errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, pagination.ErrTooManyPages) {
		return &client.APIError{Kind: client.KindGeneric, Message: "implausible total_count", Err: err}
	}
	return err
}

// Count returns the number of entities matching opts.Query.
func Count[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], opts Options) (int, error) {
	return pagination.Count(ctx, pageFetcher(m, d, opts), d.Paginated, m.paging)
}

// Create posts entity to the collection and returns the created entity.
func Create[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], entity *T, opts Options) (*T, error) {
	path, err := d.CollectionURL(opts.PathParams, m.format().Extension())
	if err != nil {
		return nil, err
	}

	body, err := m.format().EncodeEntity(d.Name, entity)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.Name, err)
	}

	resp, err := m.client.Do(ctx, client.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", d.Name, err)
	}

	created := d.New()
	if err := m.format().DecodeEntity(resp.Body, d.Name, created); err != nil {
		return nil, fmt.Errorf("create %s: %w", d.Name, client.DecodeError(err))
	}

	m.logger.Debug().Str("resource", d.Name).Msg("Created entity")
	return created, nil
}

// Update replaces the fields set on entity. Redmine answers with no body.
func Update[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], id string, entity *T) error {
	path, err := d.ItemURL(id, nil, m.format().Extension())
	if err != nil {
		return err
	}

	body, err := m.format().EncodeEntity(d.Name, entity)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Name, err)
	}

	if _, err := m.client.Do(ctx, client.Request{Method: http.MethodPut, Path: path, Body: body}); err != nil {
		return fmt.Errorf("update %s %s: %w", d.Name, id, err)
	}
	return nil
}

// Delete removes the entity with the given id.
func Delete[T any](ctx context.Context, m *Manager, d resource.Descriptor[T], id string) error {
	path, err := d.ItemURL(id, nil, m.format().Extension())
	if err != nil {
		return err
	}

	if _, err := m.client.Do(ctx, client.Request{Method: http.MethodDelete, Path: path}); err != nil {
		return fmt.Errorf("delete %s %s: %w", d.Name, id, err)
	}
	return nil
}
