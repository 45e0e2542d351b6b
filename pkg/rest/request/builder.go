package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/opinionlab/studyctl/pkg/rest"
)

// Descriptor is a fully resolved outbound request. Bodies are kept as bytes
// so a request can be rebuilt for every attempt.
type Descriptor struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Request builds an *http.Request whose GetBody is set, so the request can be replayed.
func (d Descriptor) Request(ctx context.Context) (*http.Request, error) {
	var req *http.Request
	var err error
	if d.Body != nil {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL, bytes.NewReader(d.Body))
	} else {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %s", err.Error())
	}

	for key, values := range d.Header {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}

	return req, nil
}

type Builder struct {
	baseURL   string
	url       string
	urlParams url.Values
	method    string
	header    http.Header
	body      []byte
	ctx       context.Context
	err       error
}

// NewBuilder starts a request against baseURL, e.g. "https://api.example.com".
// A bare host is treated as http.
func NewBuilder(baseURL string) *Builder {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	return &Builder{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		body:      nil,
		urlParams: make(url.Values),
		header:    make(http.Header),
		method:    http.MethodGet, // default method
		ctx:       context.TODO(),
	}
}

func (b *Builder) Descriptor() (Descriptor, error) {
	if b.err != nil {
		return Descriptor{}, fmt.Errorf("unable to build request: %w", b.err)
	}

	reqUrl := b.baseURL + b.url
	if len(b.urlParams) > 0 {
		reqUrl += "?" + b.urlParams.Encode()
	}

	return Descriptor{
		Method: b.method,
		URL:    reqUrl,
		Header: b.header.Clone(),
		Body:   b.body,
	}, nil
}

func (b *Builder) Build() (*http.Request, error) {
	desc, err := b.Descriptor()
	if err != nil {
		return nil, err
	}
	return desc.Request(b.ctx)
}

func (b *Builder) URL(url string) *Builder {
	b.url = url
	return b
}

func (b *Builder) WithURLParams(params any) *Builder {
	for key, values := range UnMarshallParams(params) {
		for _, val := range values {
			b.urlParams.Add(key, val)
		}
	}
	return b
}

func (b *Builder) QueryParameter(key, val string) *Builder {
	b.urlParams.Add(key, val)
	return b
}

func (b *Builder) GET() *Builder {
	b.method = http.MethodGet
	return b
}

func (b *Builder) POST() *Builder {
	b.method = http.MethodPost
	return b
}

func (b *Builder) PUT() *Builder {
	b.method = http.MethodPut
	return b
}

func (b *Builder) DELETE() *Builder {
	b.method = http.MethodDelete
	return b
}

func (b *Builder) PATCH() *Builder {
	b.method = http.MethodPatch
	return b
}

func (b *Builder) SetHeader(key, val string) *Builder {
	b.header.Set(key, val)
	return b
}

func (b *Builder) WithJSONContentType() *Builder {
	b.SetHeader("Content-Type", rest.ContentTypeJSON)
	return b
}

// Body serializes body as JSON.
func (b *Builder) Body(body any) *Builder {
	data, err := json.Marshal(body)
	if err != nil {
		b.err = fmt.Errorf("unable to marshal body: %w", err)
		return b
	}
	b.body = data
	b.WithJSONContentType()
	return b
}

// RawBody sends data as is with the given content type.
func (b *Builder) RawBody(contentType string, data []byte) *Builder {
	b.body = data
	b.SetHeader("Content-Type", contentType)
	return b
}

func (b *Builder) CTX(ctx context.Context) *Builder {
	b.ctx = ctx
	return b
}
