package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/easyxfer/pkg/easy"
)

const (
	// chunkSize caps a single WriteFunc call.
	chunkSize = 16 * 1024

	formContentType = "application/x-www-form-urlencoded"
)

type handleOptions struct {
	url         string
	agent       string
	timeout     time.Duration
	noSignal    bool // accepted for parity; Go never raises signals for timeouts
	verbose     bool
	upload      bool
	post        bool
	noBody      bool
	failOnError bool
	postFields  []byte
	postSize    int64
	headers     *easy.SList
	errBuf      *easy.ErrorBuffer
	write       easy.WriteFunc
}

// handle implements easy.Handle on top of one resty.Client.
type handle struct {
	client *resty.Client
	opts   handleOptions
	closed bool
}

func (h *handle) fail(code easy.Code, format string, args ...any) easy.Code {
	h.opts.errBuf.Setf(format, args...)
	return code
}

func (h *handle) badValue(opt easy.Option, value any) easy.Code {
	return h.fail(easy.BadFunctionArgument, "%s: unexpected value %v (%T)", opt, value, value)
}

// SetOption implements easy.Handle.
func (h *handle) SetOption(opt easy.Option, value any) easy.Code {
	if h.closed {
		return easy.FailedInit
	}
	o := &h.opts

	switch opt {
	case easy.OptURL, easy.OptUserAgent:
		s, ok := value.(string)
		if !ok {
			return h.badValue(opt, value)
		}
		if opt == easy.OptURL {
			o.url = s
		} else {
			o.agent = s
		}

	case easy.OptTimeout, easy.OptTimeoutMS:
		n, ok := value.(int64)
		if !ok || n < 0 {
			return h.badValue(opt, value)
		}
		unit := time.Second
		if opt == easy.OptTimeoutMS {
			unit = time.Millisecond
		}
		o.timeout = time.Duration(n) * unit

	case easy.OptNoSignal, easy.OptVerbose, easy.OptUpload, easy.OptPost, easy.OptNoBody, easy.OptFailOnError:
		n, ok := value.(int64)
		if !ok {
			return h.badValue(opt, value)
		}
		*h.flag(opt) = n != 0

	case easy.OptPostFields:
		b, ok := value.([]byte)
		if !ok {
			return h.badValue(opt, value)
		}
		o.postFields = b

	case easy.OptPostFieldSize:
		n, ok := value.(int64)
		if !ok || n < -1 {
			return h.badValue(opt, value)
		}
		o.postSize = n

	case easy.OptPostFieldSizeLarge:
		n, ok := value.(easy.OffT)
		if !ok || n < -1 {
			return h.badValue(opt, value)
		}
		o.postSize = int64(n)

	case easy.OptHTTPHeader:
		l, ok := value.(*easy.SList)
		if !ok {
			return h.badValue(opt, value)
		}
		o.headers = l

	case easy.OptErrorBuffer:
		b, ok := value.(*easy.ErrorBuffer)
		if !ok {
			return h.badValue(opt, value)
		}
		o.errBuf = b

	case easy.OptWriteFunction:
		fn, ok := value.(easy.WriteFunc)
		if !ok {
			return h.badValue(opt, value)
		}
		o.write = fn

	default:
		return h.fail(easy.UnknownOption, "unknown option %s", opt)
	}
	return easy.OK
}

func (h *handle) flag(opt easy.Option) *bool {
	switch opt {
	case easy.OptNoSignal:
		return &h.opts.noSignal
	case easy.OptVerbose:
		return &h.opts.verbose
	case easy.OptUpload:
		return &h.opts.upload
	case easy.OptPost:
		return &h.opts.post
	case easy.OptNoBody:
		return &h.opts.noBody
	default:
		return &h.opts.failOnError
	}
}

// method picks the request verb the way the native library does.
func (o *handleOptions) method() string {
	switch {
	case o.upload:
		return http.MethodPut
	case o.noBody:
		return http.MethodHead
	case o.post:
		return http.MethodPost
	default:
		return http.MethodGet
	}
}

// Perform implements easy.Handle.
func (h *handle) Perform() easy.Code {
	if h.closed {
		return easy.FailedInit
	}
	o := &h.opts

	target, code := h.target()
	if code != easy.OK {
		return code
	}

	method := o.method()
	// R copies the client's debug flag, so it must be configured first.
	h.client.SetTimeout(o.timeout)
	h.client.SetDebug(o.verbose)
	req := h.client.R().SetDoNotParseResponse(true)

	if method == http.MethodPost || method == http.MethodPut {
		body, code := h.body()
		if code != easy.OK {
			return code
		}
		req.SetBody(body)
		if method == http.MethodPost {
			req.Header.Set("Content-Type", formContentType)
		}
	}
	if o.agent != "" {
		req.Header.Set("User-Agent", o.agent)
	}
	applyHeaderList(req.Header, o.headers)

	start := time.Now()
	resp, err := req.Execute(method, target)
	if err != nil {
		return h.transportError(err, start, 0)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if status := resp.StatusCode(); o.failOnError && status >= http.StatusBadRequest {
		return h.fail(easy.HTTPReturnedError, "The requested URL returned error: %d", status)
	}
	if method == http.MethodHead {
		return easy.OK
	}
	return h.deliver(raw, start)
}

// target validates the URL, defaulting a missing scheme to http.
func (h *handle) target() (string, easy.Code) {
	raw := strings.TrimSpace(h.opts.url)
	if raw == "" {
		return "", h.fail(easy.URLMalformat, "No URL set")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", h.fail(easy.URLMalformat, "URL rejected: %v", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", h.fail(easy.UnsupportedProtocol, "Protocol %q not supported", u.Scheme)
	}
	if u.Host == "" {
		return "", h.fail(easy.URLMalformat, "No host part in the URL")
	}
	return u.String(), easy.OK
}

// body returns the payload, cut to the declared size when one was set.
func (h *handle) body() ([]byte, easy.Code) {
	body := h.opts.postFields
	if body == nil {
		body = []byte{}
	}
	size := h.opts.postSize
	if size < 0 {
		return body, easy.OK
	}
	if size > int64(len(body)) {
		return nil, h.fail(easy.ReadError, "post size %d exceeds the %d bytes provided", size, len(body))
	}
	return body[:size], easy.OK
}

// applyHeaderList sets "Name: value" entries, replacing defaults, and removes headers
// named by "Name:". Repeated names are all sent. Entries without a colon are ignored.
func applyHeaderList(dst http.Header, list *easy.SList) {
	seen := make(map[string]bool)
	for entry := range list.All() {
		name, value, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		key := http.CanonicalHeaderKey(name)
		switch {
		case value == "":
			dst.Del(key)
		case seen[key]:
			dst.Add(key, value)
		default:
			dst.Set(key, value)
		}
		seen[key] = true
	}
}

// deliver streams the body through the write callback in arrival order.
func (h *handle) deliver(body io.Reader, start time.Time) easy.Code {
	buf := make([]byte, chunkSize)
	var received int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			received += int64(n)
			if h.opts.write != nil {
				if w := h.opts.write(buf[:n]); w != n {
					return h.fail(easy.WriteError, "Failure writing output to destination, passed %d returned %d", n, w)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return easy.OK
		}
		if err != nil {
			return h.transportError(err, start, received)
		}
	}
}

// transportError maps a Go network error onto the closest native code.
func (h *handle) transportError(err error, start time.Time, received int64) easy.Code {
	var (
		dnsErr  *net.DNSError
		opErr   *net.OpError
		netErr  net.Error
		certErr *tls.CertificateVerificationError
		recErr  tls.RecordHeaderError
	)

	switch {
	case errors.As(err, &dnsErr):
		return h.fail(easy.CouldntResolveHost, "Could not resolve host: %s", dnsErr.Name)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return h.fail(easy.OperationTimedOut, "Operation timed out after %d milliseconds with %d bytes received",
			time.Since(start).Milliseconds(), received)
	case errors.As(err, &certErr):
		return h.fail(easy.PeerFailedVerify, "SSL certificate problem: %v", certErr.Err)
	case errors.As(err, &recErr):
		return h.fail(easy.SSLConnectError, "SSL connect error: %v", err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return h.fail(easy.CouldntConnect, "Failed to connect to %s: %v", opErr.Addr, opErr.Err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if received == 0 {
			return h.fail(easy.GotNothing, "Empty reply from server")
		}
		return h.fail(easy.RecvError, "Connection closed after %d bytes: %v", received, err)
	case received == 0:
		return h.fail(easy.SendError, "Send failure: %v", err)
	default:
		return h.fail(easy.RecvError, "Recv failure: %v", err)
	}
}

// clearAgent runs after resty has filled in its default User-Agent. An empty agent
// option sends no User-Agent header at all.
func (h *handle) clearAgent(_ *resty.Client, r *http.Request) error {
	if h.opts.agent == "" {
		r.Header["User-Agent"] = []string{""}
	}
	return nil
}

// Reset implements easy.Handle.
func (h *handle) Reset() {
	h.opts = handleOptions{postSize: -1}
}

// Escape implements easy.Handle.
func (h *handle) Escape(s string) (string, bool) {
	if h.closed {
		return "", false
	}
	return Escape(s)
}

// Cleanup implements easy.Handle.
func (h *handle) Cleanup() {
	h.closed = true
	h.client = nil
	h.opts = handleOptions{}
}

// MaxEscapeInput bounds the length Escape accepts.
const MaxEscapeInput = 8000000

const upperHex = "0123456789ABCDEF"

// Escape percent-encodes every byte outside ALPHA / DIGIT / "-._~".
func Escape(s string) (string, bool) {
	if len(s) > MaxEscapeInput {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String(), true
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

var _ easy.Handle = (*handle)(nil)
var _ easy.Driver = (*Engine)(nil)
