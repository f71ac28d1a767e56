package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type xmlFormat struct{}

func (xmlFormat) Name() string        { return "xml" }
func (xmlFormat) Extension() string   { return "xml" }
func (xmlFormat) ContentType() string { return "application/xml" }

func (xmlFormat) EncodeEntity(name string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	if err := encoder.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	if err := encoder.Flush(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (xmlFormat) DecodeEntity(data []byte, name string, v any) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	root, err := rootElement(decoder)
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	if root.Name.Local != name {
		return fmt.Errorf("decode %s: %w (got <%s>)", name, ErrMissingElement, root.Name.Local)
	}

	if err := decoder.DecodeElement(v, &root); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (xmlFormat) DecodeCollection(data []byte, collection string, each func(ItemDecoder) error) (Envelope, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	root, err := rootElement(decoder)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", collection, err)
	}
	if root.Name.Local != collection {
		return Envelope{}, fmt.Errorf("decode %s: %w (got <%s>)", collection, ErrMissingElement, root.Name.Local)
	}

	var envelope Envelope
	hasTotal := false
	for _, attr := range root.Attr {
		var dest *int
		switch attr.Name.Local {
		case "total_count":
			dest = &envelope.TotalCount
			hasTotal = true
		case "offset":
			dest = &envelope.Offset
		case "limit":
			dest = &envelope.Limit
		default:
			continue
		}
		value, err := strconv.Atoi(attr.Value)
		if err != nil {
			return Envelope{}, fmt.Errorf("decode %s %s: %w", collection, attr.Name.Local, err)
		}
		*dest = value
	}

	count := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			return Envelope{}, fmt.Errorf("decode %s: %w", collection, err)
		}

		switch element := token.(type) {
		case xml.StartElement:
			start := element
			if err := each(func(v any) error { return decoder.DecodeElement(v, &start) }); err != nil {
				return Envelope{}, fmt.Errorf("decode %s item: %w", collection, err)
			}
			count++
		case xml.EndElement:
			if !hasTotal {
				envelope.TotalCount = count
			}
			return envelope, nil
		}
	}
}

func (xmlFormat) DecodeErrors(data []byte) ([]string, error) {
	var envelope struct {
		XMLName xml.Name `xml:"errors"`
		Errors  []string `xml:"error"`
	}
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return envelope.Errors, nil
}

// rootElement advances the decoder past the prolog to the document element.
func rootElement(decoder *xml.Decoder) (xml.StartElement, error) {
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, ErrMissingElement
			}
			return xml.StartElement{}, err
		}
		if start, ok := token.(xml.StartElement); ok {
			return start, nil
		}
	}
}
