package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
)

// maxBodyBytes caps request bodies for the add endpoints.
const maxBodyBytes = 64 << 10

// RequestBodyParser reads a request body once and serves values from it
// whether it was sent as JSON or form-encoded.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, else as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports whether the body was decoded as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TransactionInput collects the add-form fields.
func (p *RequestBodyParser) TransactionInput() core.TransactionInput {
	return core.TransactionInput{
		Title:    p.Get("title"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Type:     p.Get("type"),
	}
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// shortest exact form so "amount": 12.5 parses like "12.5".
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// listQuery holds the search parameters of list views.
type listQuery struct {
	Search string
	Type   core.TypeFilter
}

func parseListQuery(q url.Values) listQuery {
	return listQuery{
		Search: sanitizeInput(q.Get("q")),
		Type:   core.ParseTypeFilter(q.Get("type")),
	}
}
