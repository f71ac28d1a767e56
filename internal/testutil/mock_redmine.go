// Package testutil provides a mock Redmine server for tests.
package testutil

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultLimit and MaxLimit mirror Redmine's pagination defaults.
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Record is one entity served by the mock. Fields are rendered next to the
// numeric id, as JSON values or XML text elements.
type Record struct {
	ID     int
	Fields map[string]any
}

type collection struct {
	element   string
	records   []Record
	paginated bool
	nextID    int
}

// MockRedmine is a configurable mock Redmine server.
type MockRedmine struct {
	server      *httptest.Server
	mu          sync.Mutex
	handlers    map[string]http.HandlerFunc
	collections map[string]*collection

	delay            time.Duration
	failOffsets      map[int]int
	validationErrors []string

	requestCount      int
	inFlight          int
	peakInFlight      int
	requests          []string
	lastRequestHeader http.Header
}

// NewMockRedmine starts a new mock server.
func NewMockRedmine() *MockRedmine {
	mock := &MockRedmine{
		handlers:    make(map[string]http.HandlerFunc),
		collections: make(map[string]*collection),
		failOffsets: make(map[int]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server URL.
func (m *MockRedmine) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRedmine) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockRedmine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.peakInFlight = 0
	m.requests = nil
	m.lastRequestHeader = nil
}

// SetHandler overrides the handler for a path without extension,
// e.g. "/issues/1".
func (m *MockRedmine) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// AddCollection registers a collection under path (e.g. "issues" or
// "projects/demo/versions"). element is the singular wire name.
// Unpaginated collections ignore offset and limit and omit total_count.
func (m *MockRedmine) AddCollection(path, element string, records []Record, paginated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nextID := 1
	for _, r := range records {
		nextID = max(nextID, r.ID+1)
	}
	m.collections[strings.Trim(path, "/")] = &collection{
		element:   element,
		records:   append([]Record(nil), records...),
		paginated: paginated,
		nextID:    nextID,
	}
}

// Records returns a sequence of n records with a "subject" field.
func Records(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{ID: i + 1, Fields: map[string]any{"subject": fmt.Sprintf("Item %d", i+1)}}
	}
	return records
}

// SetDelay delays every response.
func (m *MockRedmine) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// FailAt answers collection requests at offset with status.
func (m *MockRedmine) FailAt(offset, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOffsets[offset] = status
}

// RejectWrites answers POST and PUT with a 422 error envelope.
func (m *MockRedmine) RejectWrites(messages ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrors = messages
}

// RequestCount returns the number of requests served.
func (m *MockRedmine) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// PeakInFlight returns the highest number of concurrently served requests.
func (m *MockRedmine) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakInFlight
}

// Requests returns "METHOD /path?query" for every request, sorted.
func (m *MockRedmine) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := append([]string(nil), m.requests...)
	sort.Strings(requests)
	return requests
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockRedmine) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestHeader
}

func (m *MockRedmine) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.inFlight++
	m.peakInFlight = max(m.peakInFlight, m.inFlight)
	m.lastRequestHeader = r.Header.Clone()
	request := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		request += "?" + r.URL.RawQuery
	}
	m.requests = append(m.requests, request)
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	path, ext := splitExtension(r.URL.Path)

	m.mu.Lock()
	handler, exists := m.handlers[path]
	m.mu.Unlock()
	if exists {
		handler(w, r)
		return
	}

	if ext != "json" && ext != "xml" {
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}

	trimmed := strings.Trim(path, "/")
	m.mu.Lock()
	coll, isCollection := m.collections[trimmed]
	m.mu.Unlock()

	if isCollection {
		switch r.Method {
		case http.MethodGet:
			m.serveCollection(w, r, coll, ext)
		case http.MethodPost:
			m.serveCreate(w, r, coll, ext)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	m.mu.Lock()
	coll, isCollection = m.collections[trimmed[:idx]]
	m.mu.Unlock()
	id, err := strconv.Atoi(trimmed[idx+1:])
	if !isCollection || err != nil {
		http.NotFound(w, r)
		return
	}

	m.serveItem(w, r, coll, id, ext)
}

func (m *MockRedmine) serveCollection(w http.ResponseWriter, r *http.Request, coll *collection, ext string) {
	m.mu.Lock()
	records := append([]Record(nil), coll.records...)
	m.mu.Unlock()

	offset, limit := 0, len(records)
	if coll.paginated {
		offset = queryInt(r, "offset", 0)
		limit = min(queryInt(r, "limit", DefaultLimit), MaxLimit)

		m.mu.Lock()
		status, fail := m.failOffsets[offset]
		m.mu.Unlock()
		if fail {
			w.WriteHeader(status)
			return
		}
	}

	page := []Record{}
	if offset < len(records) {
		page = records[offset:min(offset+limit, len(records))]
	}

	var body []byte
	if ext == "json" {
		items := make([]map[string]any, len(page))
		for i, rec := range page {
			items[i] = rec.jsonObject()
		}
		envelope := map[string]any{collectionName(r.URL.Path): items}
		if coll.paginated {
			envelope["total_count"] = len(records)
			envelope["offset"] = offset
			envelope["limit"] = limit
		}
		body, _ = json.Marshal(envelope)
	} else {
		var b strings.Builder
		b.WriteString(xml.Header)
		fmt.Fprintf(&b, `<%s type="array"`, collectionName(r.URL.Path))
		if coll.paginated {
			fmt.Fprintf(&b, ` total_count="%d" offset="%d" limit="%d"`, len(records), offset, limit)
		}
		b.WriteString(">")
		for _, rec := range page {
			b.WriteString(rec.xmlElement(coll.element))
		}
		fmt.Fprintf(&b, "</%s>", collectionName(r.URL.Path))
		body = []byte(b.String())
	}

	writeBody(w, ext, http.StatusOK, body)
}

func (m *MockRedmine) serveItem(w http.ResponseWriter, r *http.Request, coll *collection, id int, ext string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, rec := range coll.records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeBody(w, ext, http.StatusOK, coll.records[idx].encode(coll.element, ext))
	case http.MethodPut:
		if len(m.validationErrors) > 0 {
			writeBody(w, ext, http.StatusUnprocessableEntity, encodeErrors(m.validationErrors, ext))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		coll.records = append(coll.records[:idx], coll.records[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (m *MockRedmine) serveCreate(w http.ResponseWriter, r *http.Request, coll *collection, ext string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.validationErrors) > 0 {
		writeBody(w, ext, http.StatusUnprocessableEntity, encodeErrors(m.validationErrors, ext))
		return
	}

	rec := Record{ID: coll.nextID, Fields: map[string]any{}}
	coll.nextID++

	if ext == "json" {
		var payload map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeBody(w, ext, http.StatusUnprocessableEntity, encodeErrors([]string{"Invalid payload"}, ext))
			return
		}
		for k, v := range payload[coll.element] {
			rec.Fields[k] = v
		}
	} else {
		var payload struct {
			XMLName xml.Name
			Fields  []struct {
				XMLName xml.Name
				Value   string `xml:",chardata"`
			} `xml:",any"`
		}
		if err := xml.NewDecoder(r.Body).Decode(&payload); err != nil || payload.XMLName.Local != coll.element {
			writeBody(w, ext, http.StatusUnprocessableEntity, encodeErrors([]string{"Invalid payload"}, ext))
			return
		}
		for _, f := range payload.Fields {
			rec.Fields[f.XMLName.Local] = f.Value
		}
	}
	delete(rec.Fields, "id")

	coll.records = append(coll.records, rec)
	writeBody(w, ext, http.StatusCreated, rec.encode(coll.element, ext))
}

func (rec Record) jsonObject() map[string]any {
	obj := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		obj[k] = v
	}
	obj["id"] = rec.ID
	return obj
}

func (rec Record) xmlElement(element string) string {
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "<%s><id>%d</id>", element, rec.ID)
	for _, k := range keys {
		fmt.Fprintf(&b, "<%s>", k)
		xml.EscapeText(&b, []byte(fmt.Sprint(rec.Fields[k])))
		fmt.Fprintf(&b, "</%s>", k)
	}
	fmt.Fprintf(&b, "</%s>", element)
	return b.String()
}

func (rec Record) encode(element, ext string) []byte {
	if ext == "json" {
		body, _ := json.Marshal(map[string]any{element: rec.jsonObject()})
		return body
	}
	return []byte(xml.Header + rec.xmlElement(element))
}

func encodeErrors(messages []string, ext string) []byte {
	if ext == "json" {
		body, _ := json.Marshal(map[string][]string{"errors": messages})
		return body
	}
	var b strings.Builder
	b.WriteString(xml.Header + `<errors type="array">`)
	for _, msg := range messages {
		b.WriteString("<error>")
		xml.EscapeText(&b, []byte(msg))
		b.WriteString("</error>")
	}
	b.WriteString("</errors>")
	return []byte(b.String())
}

func writeBody(w http.ResponseWriter, ext string, status int, body []byte) {
	w.Header().Set("Content-Type", "application/"+ext+"; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func splitExtension(path string) (string, string) {
	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot <= slash {
		return path, ""
	}
	return path[:dot], path[dot+1:]
}

// collectionName is the last path segment without extension.
func collectionName(path string) string {
	path, _ = splitExtension(path)
	return path[strings.LastIndexByte(path, '/')+1:]
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return value
}
