package easy

import (
	"fmt"
	"iter"
)

// HeaderList owns a native list of literal header lines ("Name: value").
//
// A HeaderList has a single owner. Session.AttachHeaders and Move transfer the nodes and
// leave the source empty; Free releases them. Releasing twice is harmless.
type HeaderList struct {
	drv  Driver
	head *SList
}

// NewHeaderList builds a list holding entries in order. If any append fails, the nodes
// allocated so far are released and an ErrInit error is returned. No entries yields an
// empty list.
func (l *Library) NewHeaderList(entries ...string) (*HeaderList, error) {
	h := &HeaderList{drv: l.drv}
	for _, entry := range entries {
		if err := h.append("easy.NewHeaderList", entry); err != nil {
			h.Free()
			return nil, err
		}
	}
	return h, nil
}

// Append adds entry at the tail.
func (h *HeaderList) Append(entry string) error {
	if h == nil || h.drv == nil {
		return newError(KindInit, "easy.HeaderList.Append: nil list")
	}
	return h.append("easy.HeaderList.Append", entry)
}

func (h *HeaderList) append(op, entry string) error {
	head := h.drv.AppendList(h.head, entry)
	if head == nil {
		return newError(KindInit, fmt.Sprintf("%s: append %q", op, entry))
	}
	h.head = head
	return nil
}

// Len returns the number of entries.
func (h *HeaderList) Len() int {
	if h == nil {
		return 0
	}
	return h.head.Len()
}

// View exposes the entries without handing out ownership.
func (h *HeaderList) View() ListView {
	if h == nil {
		return ListView{}
	}
	return ListView{head: h.head}
}

// Move transfers the entries into a new HeaderList and leaves h empty. Moving a nil
// list yields nil.
func (h *HeaderList) Move() *HeaderList {
	if h == nil {
		return nil
	}
	moved := &HeaderList{drv: h.drv, head: h.head}
	h.head = nil
	return moved
}

// Free releases the native nodes.
func (h *HeaderList) Free() {
	if h == nil || h.head == nil {
		return
	}
	h.drv.FreeList(h.head)
	h.head = nil
}

// ListView is a read-only window onto a HeaderList.
type ListView struct {
	head *SList
}

func (v ListView) Len() int              { return v.head.Len() }
func (v ListView) All() iter.Seq[string] { return v.head.All() }
func (v ListView) Strings() []string     { return v.head.Strings() }
