// Package resource describes Redmine REST resources: where they live, how
// their payloads are wrapped on the wire, and whether their collection
// endpoint can be paged by offset.
package resource

import (
	"fmt"
	"net/url"
	"strings"
)

// Descriptor carries the static metadata the fetch engine needs for entity
// type T. Descriptors are declared once per entity type and never mutated.
type Descriptor[T any] struct {
	// Name is the singular wire element, e.g. "issue".
	// JSON payloads are wrapped as {"issue": {...}}, XML roots as <issue>.
	Name string

	// Collection is the plural wire element, e.g. "issues".
	Collection string

	// CollectionPath is the URL template for the collection endpoint
	// without format extension, e.g. "projects/{project_id}/versions".
	CollectionPath string

	// ItemPath is the URL template for a single entity. The {id}
	// placeholder is always available. Defaults to CollectionPath + "/{id}".
	ItemPath string

	// Paginated reports whether the collection endpoint returns a usable
	// total_count and honours offset/limit. Endpoints without it return
	// the whole collection in one response.
	Paginated bool
}

// New returns a zero-valued T. It is the descriptor's constructor hook.
func (d Descriptor[T]) New() *T {
	return new(T)
}

// CollectionURL expands the collection template and appends the format
// extension.
func (d Descriptor[T]) CollectionURL(params map[string]string, extension string) (string, error) {
	return Expand(d.CollectionPath, params, extension)
}

// ItemURL expands the item template for the given id.
func (d Descriptor[T]) ItemURL(id string, params map[string]string, extension string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%s: id is required", d.Name)
	}

	template := d.ItemPath
	if template == "" {
		template = strings.TrimRight(d.CollectionPath, "/") + "/{id}"
	}

	merged := make(map[string]string, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["id"] = id

	return Expand(template, merged, extension)
}

// Expand substitutes {name} placeholders in template with path-escaped
// values from params and appends ".extension". Every placeholder must be
// bound.
//
// Example:
//
//	Expand("projects/{project_id}/versions", {"project_id": "demo"}, "json")
//	// "/projects/demo/versions.json"
func Expand(template string, params map[string]string, extension string) (string, error) {
	var builder strings.Builder
	builder.WriteByte('/')

	rest := strings.Trim(template, "/")
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			builder.WriteString(rest)
			break
		}

		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", template)
		}
		closing += open

		name := rest[open+1 : closing]
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("missing path parameter %q for %q", name, template)
		}

		builder.WriteString(rest[:open])
		builder.WriteString(url.PathEscape(value))
		rest = rest[closing+1:]
	}

	if extension != "" {
		builder.WriteByte('.')
		builder.WriteString(extension)
	}

	return builder.String(), nil
}
