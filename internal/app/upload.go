package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/easyxfer/pkg/easy"
)

// UploadField is the form field and JSON key carrying the uploaded value.
const UploadField = "UploadValue"

// uploadHeaders are sent with every upload, ahead of any profile headers.
var uploadHeaders = []string{
	"Accept: application/json",
	"Content-Type: application/json",
	"charsets: utf-8",
}

// uploadValue keeps a JSON number literal as a number; anything else is sent as a
// string so the server can report it.
func uploadValue(number string) any {
	var n json.Number
	if err := json.Unmarshal([]byte(number), &n); err == nil {
		return n
	}
	return number
}

// BuildUploadBody returns UploadValue=<escaped {"UploadValue": number}>.
func BuildUploadBody(s *easy.Session, number string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{UploadField: uploadValue(number)})
	if err != nil {
		return nil, fmt.Errorf("encode upload value: %w", err)
	}
	escaped, err := s.Escape(string(payload))
	if err != nil {
		return nil, err
	}
	return []byte(UploadField + "=" + escaped), nil
}

// Upload posts number to dest and returns the server's reply.
func (c *Client) Upload(dest, number string) ([]byte, error) {
	s, err := c.openSession()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	headers, err := c.lib.NewHeaderList(append(append([]string{}, uploadHeaders...), c.profile.Headers...)...)
	if err != nil {
		return nil, err
	}
	body, err := BuildUploadBody(s, number)
	if err != nil {
		headers.Free()
		return nil, err
	}

	steps := []func() error{
		func() error { return s.SetURL(dest) },
		func() error { return s.SetTimeoutSeconds(c.cfg.UploadTimeoutSeconds) },
		func() error { return s.SetUpload(false) },
		func() error { return s.SetPost(true) },
		func() error { return s.SetPostBody(body) },
		func() error { return s.AttachHeaders(headers) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			if i < len(steps)-1 {
				headers.Free()
			}
			return nil, err
		}
	}

	start := time.Now()
	if err := s.Execute(); err != nil {
		return nil, err
	}
	reply := s.TakeReceiveBuffer()
	c.log.DebugObj("upload completed", "upload_meta", map[string]any{
		"url":        dest,
		"body_bytes": len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return reply, nil
}

// RunUpload performs Upload and prints the server's reply. Errors are reported, never
// returned.
func (c *Client) RunUpload(dest, number string) {
	c.Guard(func() error {
		reply, err := c.Upload(dest, number)
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(string(reply)); text != "" {
			fmt.Fprintln(c.stdout, text)
		}
		return nil
	})
}
