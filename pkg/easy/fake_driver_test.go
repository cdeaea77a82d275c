package easy

import (
	"fmt"
	"strings"
)

// fakeDriver is an in-memory Driver that counts every allocation and release.
type fakeDriver struct {
	initCode   Code
	failHandle bool

	// failAppendAt makes the n-th AppendList call (1-based) fail.
	failAppendAt int
	appendCalls  int

	listsAllocated int
	listsFreed     int
	doubleFrees    int
	freedInUse     int
	freed          map[*SList]bool

	handlesOpened int
	handlesClosed int
	inits         int
	cleanups      int

	failOpts    map[Option]Code
	chunks      [][]byte
	performCode Code
	performMsg  string

	last *fakeHandle
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		freed:    make(map[*SList]bool),
		failOpts: make(map[Option]Code),
	}
}

func (d *fakeDriver) GlobalInit(InitFlags) Code {
	d.inits++
	return d.initCode
}

func (d *fakeDriver) GlobalCleanup() { d.cleanups++ }

func (d *fakeDriver) NewHandle() Handle {
	if d.failHandle {
		return nil
	}
	d.handlesOpened++
	d.last = &fakeHandle{drv: d, opts: make(map[Option]any)}
	return d.last
}

func (d *fakeDriver) AppendList(list *SList, entry string) *SList {
	d.appendCalls++
	if d.failAppendAt == d.appendCalls {
		return nil
	}
	if list == nil {
		d.listsAllocated++
	}
	return AppendSList(list, entry)
}

func (d *fakeDriver) FreeList(list *SList) {
	if d.freed[list] {
		d.doubleFrees++
		return
	}
	if h := d.last; h != nil && !h.cleaned && list != nil {
		if attached, _ := h.opts[OptHTTPHeader].(*SList); attached == list {
			d.freedInUse++
		}
	}
	d.freed[list] = true
	d.listsFreed++
}

type fakeHandle struct {
	drv     *fakeDriver
	opts    map[Option]any
	errBuf  *ErrorBuffer
	write   WriteFunc
	resets  int
	cleaned bool
}

func (h *fakeHandle) SetOption(opt Option, value any) Code {
	if code, ok := h.drv.failOpts[opt]; ok {
		h.errBuf.Setf("option %s rejected", opt)
		return code
	}
	switch opt {
	case OptErrorBuffer:
		h.errBuf = value.(*ErrorBuffer)
	case OptWriteFunction:
		h.write = value.(WriteFunc)
	}
	h.opts[opt] = value
	return OK
}

func (h *fakeHandle) Perform() Code {
	for _, chunk := range h.drv.chunks {
		if h.write(chunk) != len(chunk) {
			return WriteError
		}
	}
	if h.drv.performMsg != "" {
		h.errBuf.Set(h.drv.performMsg)
	}
	return h.drv.performCode
}

func (h *fakeHandle) Reset() {
	h.resets++
	h.opts = make(map[Option]any)
	h.errBuf = nil
	h.write = nil
}

func (h *fakeHandle) Escape(s string) (string, bool) {
	if strings.ContainsRune(s, 0) {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String(), true
}

func (h *fakeHandle) Cleanup() {
	h.cleaned = true
	h.drv.handlesClosed++
}
