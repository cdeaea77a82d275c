package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FetchResult is the JSON document served by the value endpoint. Both fields are kept
// raw: the value is echoed as JSON and a null or absent errorMessage means success.
type FetchResult struct {
	InputValue   json.RawMessage `json:"inputValue"`
	ErrorMessage json.RawMessage `json:"errorMessage"`
}

// Failed reports whether the server sent a non-null errorMessage.
func (r FetchResult) Failed() bool {
	m := bytes.TrimSpace(r.ErrorMessage)
	return len(m) > 0 && !bytes.Equal(m, []byte("null"))
}

// Value returns inputValue as JSON text, "null" when absent.
func (r FetchResult) Value() string {
	if v := bytes.TrimSpace(r.InputValue); len(v) > 0 {
		return string(v)
	}
	return "null"
}

// Message returns errorMessage, unquoted when it is a JSON string.
func (r FetchResult) Message() string {
	var s string
	if err := json.Unmarshal(r.ErrorMessage, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(r.ErrorMessage))
}

// Fetch downloads url with upload mode off and decodes the response body.
func (c *Client) Fetch(url string) (FetchResult, error) {
	s, err := c.openSession()
	if err != nil {
		return FetchResult{}, err
	}
	defer s.Close()

	if err := s.SetUpload(false); err != nil {
		return FetchResult{}, err
	}
	if err := s.SetURL(url); err != nil {
		return FetchResult{}, err
	}
	if len(c.profile.Headers) > 0 {
		headers, err := c.lib.NewHeaderList(c.profile.Headers...)
		if err != nil {
			return FetchResult{}, err
		}
		if err := s.AttachHeaders(headers); err != nil {
			return FetchResult{}, err
		}
	}

	start := time.Now()
	if err := s.Execute(); err != nil {
		return FetchResult{}, err
	}
	body := s.TakeReceiveBuffer()
	c.log.DebugObj("fetch completed", "fetch_meta", map[string]any{
		"url":        url,
		"bytes":      len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	var res FetchResult
	if err := json.Unmarshal(body, &res); err != nil {
		return FetchResult{}, fmt.Errorf("parse response: %w", err)
	}
	return res, nil
}

// RunFetch performs Fetch and prints the outcome. Errors are reported, never returned.
func (c *Client) RunFetch(url string) {
	c.Guard(func() error {
		res, err := c.Fetch(url)
		if err != nil {
			return err
		}
		if res.Failed() {
			fmt.Fprintf(c.stdout, "Server reported an error: %s\n", res.Message())
			return nil
		}
		fmt.Fprintf(c.stdout, "Previous value was [%s]\n", res.Value())
		return nil
	})
}
