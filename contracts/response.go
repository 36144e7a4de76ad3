package contracts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Response is the buffered result of a transport round trip
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *Request
	Duration   time.Duration
}

// Clone returns a copy of r that shares no header or body storage with it
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body (status %d)", r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
