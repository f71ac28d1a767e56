package format

import (
	"encoding/json"
	"fmt"
)

type jsonFormat struct{}

func (jsonFormat) Name() string        { return "json" }
func (jsonFormat) Extension() string   { return "json" }
func (jsonFormat) ContentType() string { return "application/json" }

func (jsonFormat) EncodeEntity(name string, v any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{name: v})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return data, nil
}

func (jsonFormat) DecodeEntity(data []byte, name string, v any) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	raw, ok := wrapper[name]
	if !ok {
		return fmt.Errorf("decode %s: %w", name, ErrMissingElement)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (jsonFormat) DecodeCollection(data []byte, collection string, each func(ItemDecoder) error) (Envelope, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", collection, err)
	}

	raw, ok := wrapper[collection]
	if !ok {
		return Envelope{}, fmt.Errorf("decode %s: %w", collection, ErrMissingElement)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", collection, err)
	}

	for _, element := range elements {
		if err := each(func(v any) error { return json.Unmarshal(element, v) }); err != nil {
			return Envelope{}, fmt.Errorf("decode %s item: %w", collection, err)
		}
	}

	envelope := Envelope{TotalCount: len(elements)}
	fields := []struct {
		key  string
		dest *int
	}{
		{"total_count", &envelope.TotalCount},
		{"offset", &envelope.Offset},
		{"limit", &envelope.Limit},
	}
	for _, field := range fields {
		value, ok := wrapper[field.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, field.dest); err != nil {
			return Envelope{}, fmt.Errorf("decode %s %s: %w", collection, field.key, err)
		}
	}

	return envelope, nil
}

func (jsonFormat) DecodeErrors(data []byte) ([]string, error) {
	var envelope struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return envelope.Errors, nil
}
