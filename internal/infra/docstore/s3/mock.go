package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockTransport is an in-memory fake of the S3 REST API covering the calls
// made by Store (Get, Put, Delete, ListObjectsV2). It is exported so other
// packages can exercise the S3 driver without a network.
type MockTransport struct {
	mu      sync.Mutex
	objects map[string][]byte
	// Fail makes every request answer 403 AccessDenied.
	Fail bool
	// PageSize bounds ListObjectsV2 pages; zero means unbounded.
	PageSize int
}

// NewMockForTests returns a Store wired to a fresh MockTransport.
func NewMockForTests(prefix string) (*Store, *MockTransport) {
	rt := &MockTransport{objects: make(map[string][]byte)}
	store, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "mock-bucket",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: rt},
	})
	if err != nil {
		panic(err)
	}
	return store, rt
}

// Keys returns the stored object keys in ascending order.
func (m *MockTransport) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) { //nolint:cyclop
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return xmlResponse(http.StatusForbidden, `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`), nil
	}
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key, _ = url.PathUnescape(parts[1])
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query()), nil
	}
	switch req.Method {
	case http.MethodPut:
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
		}
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.objects[key] = body
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodGet:
		body, ok := m.objects[key]
		if !ok {
			return xmlResponse(http.StatusNotFound, `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body)), Header: http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(body))},
			"Content-Type":   {contentType},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			"ETag":           {"\"etag\""},
		}}, nil
	case http.MethodDelete:
		delete(m.objects, key)
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func (m *MockTransport) list(q url.Values) *http.Response {
	prefix := q.Get("prefix")
	var keys []string
	for k := range m.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if token := q.Get("continuation-token"); token != "" {
		for i, k := range keys {
			if k > token {
				start = i
				break
			}
			start = len(keys)
		}
	}
	end := len(keys)
	if m.PageSize > 0 && start+m.PageSize < end {
		end = start + m.PageSize
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	if end < len(keys) {
		b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>")
		b.WriteString(keys[end-1])
		b.WriteString("</NextContinuationToken>")
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		b.WriteString("<Contents><Key>")
		b.WriteString(k)
		b.WriteString("</Key><Size>")
		b.WriteString(fmt.Sprintf("%d", len(m.objects[k])))
		b.WriteString("</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>")
	}
	b.WriteString("</ListBucketResult>")
	return xmlResponse(http.StatusOK, b.String())
}

func xmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

// decodeChunked decodes a minimal single-chunk aws-chunked payload: <hex>[;ext]\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	s := string(b)
	idx := strings.Index(s, "\r\n")
	if idx <= 0 {
		return nil, false
	}
	header := s[:idx]
	if semi := strings.Index(header, ";"); semi >= 0 {
		header = header[:semi]
	}
	size, err := parseHex(header)
	if err != nil {
		return nil, false
	}
	rest := s[idx+2:]
	if int64(len(rest)) < size+2 || rest[size:size+2] != "\r\n" {
		return nil, false
	}
	if !strings.HasPrefix(rest[size+2:], "0") {
		return nil, false
	}
	return []byte(rest[:size]), true
}

func parseHex(h string) (int64, error) {
	if h == "" {
		return 0, fmt.Errorf("invalid hex")
	}
	var v int64
	for _, c := range h {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v += int64(c - '0')
		case c >= 'a' && c <= 'f':
			v += int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v += int64(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex")
		}
	}
	return v, nil
}
