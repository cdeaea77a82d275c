package easy

import (
	"fmt"
	"iter"
)

// Driver is the native transfer library a Library is opened over. It owns socket I/O,
// name resolution, TLS and HTTP framing; this package only manages handle lifecycles
// and option plumbing around it.
type Driver interface {
	// GlobalInit prepares process-wide state. It is not required to be safe for
	// concurrent use.
	GlobalInit(flags InitFlags) Code
	GlobalCleanup()

	// NewHandle returns a fresh handle, or nil when one cannot be allocated.
	NewHandle() Handle

	// AppendList adds entry at the tail of list and returns the head, or nil on failure.
	// A nil list starts a new one.
	AppendList(list *SList, entry string) *SList
	// FreeList releases every node of list.
	FreeList(list *SList)
}

// Handle is one native transfer handle.
type Handle interface {
	SetOption(opt Option, value any) Code
	// Perform runs one blocking transfer with the options currently set.
	Perform() Code
	// Reset restores every option to its default.
	Reset()
	// Escape percent-encodes s; ok is false when no result could be produced.
	Escape(s string) (escaped string, ok bool)
	Cleanup()
}

// SList is a singly linked list of strings as handed to the native layer.
type SList struct {
	Data string
	Next *SList
}

// AppendSList is the reference list append drivers can build on.
func AppendSList(list *SList, entry string) *SList {
	node := &SList{Data: entry}
	if list == nil {
		return node
	}
	last := list
	for last.Next != nil {
		last = last.Next
	}
	last.Next = node
	return list
}

// Len counts the nodes reachable from l.
func (l *SList) Len() int {
	n := 0
	for node := l; node != nil; node = node.Next {
		n++
	}
	return n
}

// All yields every entry in order.
func (l *SList) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for node := l; node != nil; node = node.Next {
			if !yield(node.Data) {
				return
			}
		}
	}
}

// Strings copies the entries into a slice.
func (l *SList) Strings() []string {
	out := make([]string, 0, l.Len())
	for s := range l.All() {
		out = append(out, s)
	}
	return out
}

// ErrorSize is the capacity of an ErrorBuffer, terminator included.
const ErrorSize = 256

// ErrorBuffer is the fixed-size scratch area a Handle writes its detailed diagnostic to.
// All methods are safe on a nil receiver.
type ErrorBuffer struct {
	buf [ErrorSize]byte
	n   int
}

// Clear empties the buffer.
func (b *ErrorBuffer) Clear() {
	if b == nil {
		return
	}
	b.n = 0
}

// Set replaces the contents with msg, truncated to ErrorSize-1 bytes.
func (b *ErrorBuffer) Set(msg string) {
	if b == nil {
		return
	}
	b.n = copy(b.buf[:ErrorSize-1], msg)
}

// Setf is Set with fmt formatting.
func (b *ErrorBuffer) Setf(format string, args ...any) {
	b.Set(fmt.Sprintf(format, args...))
}

// Len reports the number of bytes currently held.
func (b *ErrorBuffer) Len() int {
	if b == nil {
		return 0
	}
	return b.n
}

func (b *ErrorBuffer) String() string {
	if b == nil {
		return ""
	}
	return string(b.buf[:b.n])
}
