package httpclient

import (
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/easyxfer/pkg/easy"
)

// Engine is an easy.Driver that performs transfers with resty over a transport shared by
// every handle it creates.
type Engine struct {
	log Logger

	mu        sync.Mutex
	transport *http.Transport
	inits     int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger routes verbose transfer output to log.
func WithLogger(log Logger) EngineOption {
	return func(e *Engine) { e.log = ensureLogger(log) }
}

// NewEngine creates an Engine. Open it with easy.Init before creating sessions.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{log: nopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GlobalInit builds the shared transport on the first call; later calls only count.
func (e *Engine) GlobalInit(easy.InitFlags) easy.Code {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inits == 0 {
		base, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return easy.FailedInit
		}
		e.transport = base.Clone()
	}
	e.inits++
	return easy.OK
}

// GlobalCleanup drops the shared transport once every GlobalInit has been matched.
func (e *Engine) GlobalCleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inits == 0 {
		return
	}
	e.inits--
	if e.inits == 0 {
		e.transport.CloseIdleConnections()
		e.transport = nil
	}
}

// NewHandle returns a handle bound to the shared transport, or nil before GlobalInit.
func (e *Engine) NewHandle() easy.Handle {
	e.mu.Lock()
	tr := e.transport
	e.mu.Unlock()

	if tr == nil {
		return nil
	}
	h := &handle{client: newRestyBaseClient(tr, e.log)}
	h.client.SetPreRequestHook(h.clearAgent)
	h.Reset()
	return h
}

// AppendList implements easy.Driver.
func (e *Engine) AppendList(list *easy.SList, entry string) *easy.SList {
	return easy.AppendSList(list, entry)
}

// FreeList unlinks every node so nothing keeps the entries reachable.
func (e *Engine) FreeList(list *easy.SList) {
	for node := list; node != nil; {
		next := node.Next
		node.Next = nil
		node.Data = ""
		node = next
	}
}

// newRestyBaseClient creates a resty.Client that neither follows redirects nor keeps
// cookies, matching a bare native handle.
func newRestyBaseClient(tr http.RoundTripper, log Logger) *resty.Client {
	c := resty.NewWithClient(&http.Client{Transport: tr})
	c.SetLogger(log)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return c
}
