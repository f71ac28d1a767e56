// Package format implements the two Redmine wire formats (JSON and XML).
//
// Both formats wrap payloads the same way: a single entity sits under its
// singular element name, a collection under its plural name together with
// the total_count, offset and limit the server used. Validation failures come
// back as an error envelope holding a list of messages.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingElement is returned when the expected root element is absent.
var ErrMissingElement = errors.New("missing element")

// Envelope holds the pagination fields of a collection response.
type Envelope struct {
	TotalCount int
	Offset     int
	Limit      int
}

// ItemDecoder decodes one collection element into v.
type ItemDecoder func(v any) error

// Format is a Redmine wire format.
type Format interface {
	// Name is the format identifier ("json" or "xml").
	Name() string

	// Extension is appended to resource paths, e.g. "/issues.json".
	Extension() string

	// ContentType is sent as Content-Type and Accept.
	ContentType() string

	// EncodeEntity wraps v under the element name.
	EncodeEntity(name string, v any) ([]byte, error)

	// DecodeEntity unwraps the element name and decodes its content into v.
	DecodeEntity(data []byte, name string, v any) error

	// DecodeCollection reads the collection envelope and calls each once per
	// element, in document order. When the server omits total_count the
	// element count is reported instead.
	DecodeCollection(data []byte, collection string, each func(ItemDecoder) error) (Envelope, error)

	// DecodeErrors reads an error envelope and returns its messages.
	DecodeErrors(data []byte) ([]string, error)
}

// Formats supported by Redmine.
var (
	JSON Format = jsonFormat{}
	XML  Format = xmlFormat{}
)

// ByName returns the format registered under name. Matching is case-insensitive.
func ByName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return JSON, nil
	case "xml":
		return XML, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", name)
	}
}

// DecodePage decodes a collection response into a slice of T. The returned
// slice is never nil.
func DecodePage[T any](f Format, data []byte, collection string) ([]T, Envelope, error) {
	items := make([]T, 0)
	envelope, err := f.DecodeCollection(data, collection, func(decode ItemDecoder) error {
		var item T
		if err := decode(&item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, Envelope{}, err
	}
	return items, envelope, nil
}
