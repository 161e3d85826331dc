package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes caps the request body read for keyword arguments.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// Kwargs are the untyped keyword arguments of one API method call.
type Kwargs map[string]any

// ParseKwargs merges query string and body arguments. Body values win over
// query values with the same name. JSON numbers are kept as json.Number.
func ParseKwargs(r *http.Request) (Kwargs, error) {
	kwargs := Kwargs{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			kwargs[key] = sanitizeInput(values[0])
		}
	}

	if r.Body == nil || r.Method == http.MethodGet {
		return kwargs, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return kwargs, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || body[0] == '{':
		fields, err := parseJSONObject(body)
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			kwargs[k] = v
		}
	case mediaType == "multipart/form-data":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		mergeValues(kwargs, r.MultipartForm.Value)
	default:
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		mergeValues(kwargs, form)
	}

	return kwargs, nil
}

func parseJSONObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse json body: %w", err)
	}
	if fields == nil {
		return nil, errors.New("parse json body: expected an object")
	}
	if dec.More() {
		return nil, errors.New("parse json body: trailing data")
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			fields[k] = sanitizeInput(s)
		}
	}
	return fields, nil
}

func mergeValues(kwargs Kwargs, values map[string][]string) {
	for key, vals := range values {
		if len(vals) > 0 {
			kwargs[key] = sanitizeInput(vals[0])
		}
	}
}

// String returns the trimmed string value for key, or "" if absent or not
// a string.
func (k Kwargs) String(key string) string {
	s, _ := k[key].(string)
	return strings.TrimSpace(s)
}
