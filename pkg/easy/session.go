package easy

import (
	"bytes"
	"fmt"
)

// DefaultUserAgent is installed on every new session; some servers reject requests
// that carry no user agent.
const DefaultUserAgent = "easyxfer-agent/1.0"

// Session owns one native transfer handle for its whole lifetime, together with the
// error buffer, the receive buffer and copies of every string handed to the handle.
type Session struct {
	lib    *Library
	handle Handle
	errBuf ErrorBuffer
	recv   []byte

	url      string
	agent    string
	postBody []byte

	headers *HeaderList
	closed  bool
}

// NewSession allocates a handle and wires it to the session: signals off, error buffer,
// default user agent and the receive-buffer write callback. Any failure releases the
// handle before returning.
func (l *Library) NewSession() (*Session, error) {
	const op = "easy.NewSession"

	if err := l.acquire(); err != nil {
		return nil, err
	}
	h := l.drv.NewHandle()
	if h == nil {
		l.release()
		return nil, newError(KindInit, op+": handle allocation failed")
	}

	s := &Session{lib: l, handle: h}
	if err := s.install(op); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// install applies the options every session depends on.
func (s *Session) install(op string) error {
	setup := []struct {
		opt   Option
		value any
	}{
		{OptNoSignal, int64(1)},
		{OptErrorBuffer, &s.errBuf},
		{OptUserAgent, DefaultUserAgent},
		{OptWriteFunction, WriteFunc(s.receive)},
	}
	for _, st := range setup {
		if err := s.setOption(op, st.opt, st.value); err != nil {
			return err
		}
	}
	s.agent = DefaultUserAgent
	return nil
}

// receive appends one chunk delivered by the handle.
func (s *Session) receive(chunk []byte) int {
	s.recv = append(s.recv, chunk...)
	return len(chunk)
}

func (s *Session) setOption(op string, opt Option, value any) error {
	s.errBuf.Clear()
	if code := s.handle.SetOption(opt, value); code != OK {
		return newCodeError(KindConfig, fmt.Sprintf("%s: setopt(%s)", op, opt), opt, code, s.diagnostic(code))
	}
	return nil
}

// diagnostic prefers the handle's detailed message over the generic code text.
func (s *Session) diagnostic(code Code) string {
	if s.errBuf.Len() > 0 {
		return s.errBuf.String()
	}
	return code.String()
}

func (s *Session) checkOpen(op string) error {
	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return nil
}

func (s *Session) apply(op string, opt Option, value any) error {
	if err := s.checkOpen(op); err != nil {
		return err
	}
	return s.setOption(op, opt, value)
}

// SetURL sets the transfer URL. The session copy only changes once the handle has
// accepted the value.
func (s *Session) SetURL(url string) error {
	if err := s.apply("easy.Session.SetURL", OptURL, url); err != nil {
		return err
	}
	s.url = url
	return nil
}

// SetUserAgent replaces the User-Agent sent with every request.
func (s *Session) SetUserAgent(agent string) error {
	if err := s.apply("easy.Session.SetUserAgent", OptUserAgent, agent); err != nil {
		return err
	}
	s.agent = agent
	return nil
}

// SetTimeoutSeconds bounds the whole transfer. Zero disables the limit.
func (s *Session) SetTimeoutSeconds(n int64) error {
	return s.apply("easy.Session.SetTimeoutSeconds", OptTimeout, n)
}

// SetTimeoutMilliseconds is SetTimeoutSeconds with millisecond resolution.
func (s *Session) SetTimeoutMilliseconds(n int64) error {
	return s.apply("easy.Session.SetTimeoutMilliseconds", OptTimeoutMS, n)
}

func (s *Session) SetVerbose(verbose bool) error {
	return s.apply("easy.Session.SetVerbose", OptVerbose, boolLong(verbose))
}

// SetUpload switches the transfer to upload (PUT) mode.
func (s *Session) SetUpload(upload bool) error {
	return s.apply("easy.Session.SetUpload", OptUpload, boolLong(upload))
}

// SetPost switches the transfer to POST. It does not set a body; see SetPostBody.
func (s *Session) SetPost(post bool) error {
	return s.apply("easy.Session.SetPost", OptPost, boolLong(post))
}

// SetNoBody asks for headers only (HEAD).
func (s *Session) SetNoBody(noBody bool) error {
	return s.apply("easy.Session.SetNoBody", OptNoBody, boolLong(noBody))
}

// SetFailOnHTTPError makes Execute fail with HTTPReturnedError for status codes >= 400.
func (s *Session) SetFailOnHTTPError(fail bool) error {
	return s.apply("easy.Session.SetFailOnHTTPError", OptFailOnError, boolLong(fail))
}

// SetPostBody stores a private copy of data as the request payload and sets its size.
// POST mode is not implied.
func (s *Session) SetPostBody(data []byte) error {
	const op = "easy.Session.SetPostBody"

	body := bytes.Clone(data)
	if body == nil {
		body = []byte{}
	}
	prev := s.postBody
	if err := s.apply(op, OptPostFields, body); err != nil {
		return err
	}
	if err := s.setPostBodySize(op, int64(len(body))); err != nil {
		// The handle must not keep the new payload paired with the old size.
		_ = s.handle.SetOption(OptPostFields, prev)
		return err
	}
	s.postBody = body
	return nil
}

// SetPostBodySize declares the payload size. Sizes up to LargeSizeThreshold use the
// standard representation, larger ones the large (OffT) one.
func (s *Session) SetPostBodySize(n int64) error {
	const op = "easy.Session.SetPostBodySize"
	if err := s.checkOpen(op); err != nil {
		return err
	}
	return s.setPostBodySize(op, n)
}

func (s *Session) setPostBodySize(op string, n int64) error {
	if n <= LargeSizeThreshold {
		return s.setOption(op, OptPostFieldSize, n)
	}
	return s.setOption(op, OptPostFieldSizeLarge, OffT(n))
}

// AttachHeaders takes ownership of h, leaving it empty, and makes its entries the active
// header set. A previously attached list is released. If the handle rejects the list the
// session releases it and keeps the previous set.
func (s *Session) AttachHeaders(h *HeaderList) error {
	const op = "easy.Session.AttachHeaders"
	if err := s.checkOpen(op); err != nil {
		return err
	}
	if h == nil {
		return newError(KindConfig, op+": nil header list")
	}

	owned := h.Move()
	if err := s.setOption(op, OptHTTPHeader, owned.head); err != nil {
		owned.Free()
		return err
	}
	s.headers.Free()
	s.headers = owned
	return nil
}

// ResetHeaders clears the active header set and releases it.
func (s *Session) ResetHeaders() error {
	if err := s.apply("easy.Session.ResetHeaders", OptHTTPHeader, (*SList)(nil)); err != nil {
		return err
	}
	s.headers.Free()
	s.headers = nil
	return nil
}

// Headers returns a view of the attached header set; empty when none is attached.
func (s *Session) Headers() ListView {
	return s.headers.View()
}

// Escape percent-encodes input the way the handle does for URLs.
func (s *Session) Escape(input string) (string, error) {
	const op = "easy.Session.Escape"
	if err := s.checkOpen(op); err != nil {
		return "", err
	}
	escaped, ok := s.handle.Escape(input)
	if !ok {
		return "", newError(KindEscape, op)
	}
	return escaped, nil
}

// Execute performs one blocking transfer. Response bytes are appended to the receive
// buffer in arrival order; the buffer is never cleared here.
func (s *Session) Execute() error {
	const op = "easy.Session.Execute"
	if err := s.checkOpen(op); err != nil {
		return err
	}
	s.errBuf.Clear()
	if code := s.handle.Perform(); code != OK {
		return newCodeError(KindTransfer, op, 0, code, s.diagnostic(code))
	}
	return nil
}

// Reset returns the handle to its default options, releases the attached header list and
// drops the POST body copy, then re-installs the session wiring. The receive and error
// buffers are left alone.
func (s *Session) Reset() error {
	const op = "easy.Session.Reset"
	if err := s.checkOpen(op); err != nil {
		return err
	}
	s.handle.Reset()
	s.headers.Free()
	s.headers = nil
	s.postBody = nil
	s.url = ""
	return s.install(op)
}

// ReceiveBuffer returns the bytes accumulated since the last clear. The slice aliases
// session memory and must not be modified.
func (s *Session) ReceiveBuffer() []byte {
	return s.recv
}

// ClearReceiveBuffer empties the receive buffer and drops its storage.
func (s *Session) ClearReceiveBuffer() {
	s.recv = nil
}

// TakeReceiveBuffer hands the accumulated bytes to the caller and empties the buffer.
func (s *Session) TakeReceiveBuffer() []byte {
	out := s.recv
	s.recv = nil
	return out
}

func (s *Session) URL() string       { return s.url }
func (s *Session) UserAgent() string { return s.agent }
func (s *Session) PostBody() []byte  { return s.postBody }

// Close releases the native handle and then the header list it referenced. It is safe
// to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.handle.Cleanup()
	s.headers.Free()
	s.headers = nil
	s.lib.release()
	return nil
}
