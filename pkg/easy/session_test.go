package easy

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSession(t *testing.T) (*fakeDriver, *Library, *Session) {
	t.Helper()
	drv := newFakeDriver()
	lib, err := Init(drv, GlobalAll)
	require.NoError(t, err)
	s, err := lib.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return drv, lib, s
}

func TestNewSessionInstallsWiring(t *testing.T) {
	drv, lib, s := openTestSession(t)

	h := drv.last
	assert.Equal(t, int64(1), h.opts[OptNoSignal])
	assert.Same(t, &s.errBuf, h.errBuf)
	assert.Equal(t, DefaultUserAgent, h.opts[OptUserAgent])
	assert.NotNil(t, h.write)
	assert.Equal(t, DefaultUserAgent, s.UserAgent())
	assert.Equal(t, 1, lib.OpenSessions())
}

func TestNewSessionHandleAllocationFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failHandle = true
	lib, err := Init(drv, GlobalDefault)
	require.NoError(t, err)

	_, err = lib.NewSession()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInit)
	assert.Equal(t, 0, lib.OpenSessions())
}

func TestNewSessionSetupFailureReleasesHandle(t *testing.T) {
	for _, opt := range []Option{OptNoSignal, OptErrorBuffer, OptUserAgent, OptWriteFunction} {
		t.Run(opt.String(), func(t *testing.T) {
			drv := newFakeDriver()
			drv.failOpts[opt] = UnknownOption
			lib, err := Init(drv, GlobalAll)
			require.NoError(t, err)

			_, err = lib.NewSession()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), opt.String())
			assert.Equal(t, 1, drv.handlesOpened)
			assert.Equal(t, 1, drv.handlesClosed)
			assert.Equal(t, 0, lib.OpenSessions())
		})
	}
}

func TestExecuteConcatenatesChunksInOrder(t *testing.T) {
	drv, _, s := openTestSession(t)
	drv.chunks = [][]byte{
		[]byte(`{"input`),
		{},
		[]byte(`Value": `),
		{0x00, 0xff, 0x7f},
		[]byte(`42}`),
	}

	require.NoError(t, s.Execute())
	want := []byte("{\"inputValue\": \x00\xff\x7f42}")
	assert.Equal(t, want, s.ReceiveBuffer())

	// A second transfer appends; nothing clears the buffer implicitly.
	drv.chunks = [][]byte{[]byte("!")}
	require.NoError(t, s.Execute())
	assert.Equal(t, append(want, '!'), s.ReceiveBuffer())
}

func TestClearReceiveBuffer(t *testing.T) {
	drv, _, s := openTestSession(t)
	drv.chunks = [][]byte{[]byte("payload")}
	require.NoError(t, s.Execute())

	s.ClearReceiveBuffer()
	assert.Empty(t, s.ReceiveBuffer())
	s.ClearReceiveBuffer()
	assert.Empty(t, s.ReceiveBuffer())
}

func TestTakeReceiveBufferReturnsContentsOnce(t *testing.T) {
	drv, _, s := openTestSession(t)
	drv.chunks = [][]byte{[]byte("abc"), []byte("def")}
	require.NoError(t, s.Execute())

	assert.Equal(t, []byte("abcdef"), s.TakeReceiveBuffer())
	assert.Empty(t, s.TakeReceiveBuffer())
	assert.Empty(t, s.ReceiveBuffer())
}

func TestExecuteFailurePrefersErrorBuffer(t *testing.T) {
	drv, _, s := openTestSession(t)
	drv.performCode = CouldntResolveHost
	drv.performMsg = "Could not resolve host: nowhere.invalid"

	err := s.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransfer)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, CouldntResolveHost, e.Code)
	assert.Equal(t, "easy.Session.Execute :: code=[6]Could not resolve host: nowhere.invalid", e.Error())
}

func TestExecuteFailureFallsBackToCodeText(t *testing.T) {
	drv, _, s := openTestSession(t)
	drv.performCode = OperationTimedOut

	err := s.Execute()
	require.Error(t, err)
	assert.True(t, strings.HasSuffix(err.Error(), "code=[28]"+OperationTimedOut.String()), err.Error())
}

func TestConfigErrorNamesOption(t *testing.T) {
	cases := []struct {
		opt Option
		run func(s *Session) error
	}{
		{OptURL, func(s *Session) error { return s.SetURL("http://example.com") }},
		{OptUserAgent, func(s *Session) error { return s.SetUserAgent("agent/2") }},
		{OptTimeout, func(s *Session) error { return s.SetTimeoutSeconds(30) }},
		{OptTimeoutMS, func(s *Session) error { return s.SetTimeoutMilliseconds(1500) }},
		{OptVerbose, func(s *Session) error { return s.SetVerbose(true) }},
		{OptUpload, func(s *Session) error { return s.SetUpload(false) }},
		{OptPost, func(s *Session) error { return s.SetPost(true) }},
		{OptNoBody, func(s *Session) error { return s.SetNoBody(true) }},
		{OptFailOnError, func(s *Session) error { return s.SetFailOnHTTPError(true) }},
		{OptPostFields, func(s *Session) error { return s.SetPostBody([]byte("a=b")) }},
		{OptPostFieldSize, func(s *Session) error { return s.SetPostBodySize(3) }},
		{OptPostFieldSizeLarge, func(s *Session) error { return s.SetPostBodySize(LargeSizeThreshold + 1) }},
		{OptHTTPHeader, func(s *Session) error { return s.ResetHeaders() }},
	}

	for _, tc := range cases {
		t.Run(tc.opt.String(), func(t *testing.T) {
			drv, _, s := openTestSession(t)
			drv.failOpts[tc.opt] = BadFunctionArgument

			err := tc.run(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), "setopt("+tc.opt.String()+")")
			assert.Contains(t, err.Error(), "option "+tc.opt.String()+" rejected")

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.opt, e.Option)
			assert.Equal(t, BadFunctionArgument, e.Code)
		})
	}
}

func TestFailedSetterKeepsSessionCopies(t *testing.T) {
	drv, _, s := openTestSession(t)
	require.NoError(t, s.SetURL("http://first.example"))
	require.NoError(t, s.SetPostBody([]byte("first")))

	drv.failOpts[OptURL] = URLMalformat
	drv.failOpts[OptUserAgent] = OutOfMemory
	drv.failOpts[OptPostFields] = OutOfMemory

	require.Error(t, s.SetURL("::bad::"))
	require.Error(t, s.SetUserAgent("other"))
	require.Error(t, s.SetPostBody([]byte("second")))

	assert.Equal(t, "http://first.example", s.URL())
	assert.Equal(t, DefaultUserAgent, s.UserAgent())
	assert.Equal(t, []byte("first"), s.PostBody())
}

func TestRejectedPostBodySizeRestoresPayload(t *testing.T) {
	drv, _, s := openTestSession(t)
	require.NoError(t, s.SetPostBody([]byte("eighteen-byte-body")))

	drv.failOpts[OptPostFieldSize] = OutOfMemory
	err := s.SetPostBody([]byte("ab"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setopt(POSTFIELDSIZE)")

	assert.Equal(t, []byte("eighteen-byte-body"), s.PostBody())
	assert.Equal(t, []byte("eighteen-byte-body"), drv.last.opts[OptPostFields])
	assert.Equal(t, int64(18), drv.last.opts[OptPostFieldSize])
}

func TestSetPostBodyKeepsPrivateCopy(t *testing.T) {
	drv, _, s := openTestSession(t)
	data := []byte("UploadValue=1")
	require.NoError(t, s.SetPostBody(data))
	data[0] = 'X'

	assert.Equal(t, []byte("UploadValue=1"), s.PostBody())
	assert.Equal(t, []byte("UploadValue=1"), drv.last.opts[OptPostFields])
	assert.Equal(t, int64(13), drv.last.opts[OptPostFieldSize])
	assert.NotContains(t, drv.last.opts, OptPost)
}

func TestPostBodySizeRepresentationAtThreshold(t *testing.T) {
	cases := []struct {
		size  int64
		large bool
	}{
		{LargeSizeThreshold - 1, false},
		{LargeSizeThreshold, false},
		{LargeSizeThreshold + 1, true},
		{0, false},
	}

	for _, tc := range cases {
		drv, _, s := openTestSession(t)
		require.NoError(t, s.SetPostBodySize(tc.size))

		if tc.large {
			assert.Equal(t, OffT(tc.size), drv.last.opts[OptPostFieldSizeLarge], "size %d", tc.size)
			assert.NotContains(t, drv.last.opts, OptPostFieldSize, "size %d", tc.size)
		} else {
			assert.Equal(t, tc.size, drv.last.opts[OptPostFieldSize], "size %d", tc.size)
			assert.NotContains(t, drv.last.opts, OptPostFieldSizeLarge, "size %d", tc.size)
		}
	}
}

func TestAttachHeadersTransfersOwnership(t *testing.T) {
	drv, lib, s := openTestSession(t)

	first, err := lib.NewHeaderList("Accept: application/json", "charsets: utf-8")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(first))

	assert.Equal(t, 0, first.Len())
	assert.Equal(t, []string{"Accept: application/json", "charsets: utf-8"}, s.Headers().Strings())
	assert.Equal(t, 2, drv.last.opts[OptHTTPHeader].(*SList).Len())

	second, err := lib.NewHeaderList("X-Trace: 1")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(second))
	assert.Equal(t, 1, drv.listsFreed, "replaced list must be released")
	assert.Equal(t, []string{"X-Trace: 1"}, s.Headers().Strings())

	// Freeing the moved-from lists must not touch what the session owns.
	first.Free()
	second.Free()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, drv.listsAllocated, drv.listsFreed)
	assert.Zero(t, drv.doubleFrees)
	assert.Equal(t, 1, drv.handlesClosed)
}

func TestAttachHeadersRejectedKeepsPreviousSet(t *testing.T) {
	drv, lib, s := openTestSession(t)

	kept, err := lib.NewHeaderList("Accept: text/plain")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(kept))

	drv.failOpts[OptHTTPHeader] = OutOfMemory
	rejected, err := lib.NewHeaderList("Accept: application/json")
	require.NoError(t, err)

	err = s.AttachHeaders(rejected)
	require.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, 0, rejected.Len())
	assert.Equal(t, []string{"Accept: text/plain"}, s.Headers().Strings())
	assert.Equal(t, 1, drv.listsFreed)

	require.NoError(t, s.Close())
	assert.Equal(t, drv.listsAllocated, drv.listsFreed)
	assert.Zero(t, drv.doubleFrees)
}

func TestResetHeadersReleasesList(t *testing.T) {
	drv, lib, s := openTestSession(t)
	h, err := lib.NewHeaderList("Accept: */*")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(h))

	require.NoError(t, s.ResetHeaders())
	assert.Equal(t, 0, s.Headers().Len())
	assert.Nil(t, drv.last.opts[OptHTTPHeader])
	assert.Equal(t, 1, drv.listsFreed)
}

func TestResetRestoresWiringAndKeepsBuffers(t *testing.T) {
	drv, lib, s := openTestSession(t)
	h, err := lib.NewHeaderList("Accept: */*")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(h))
	require.NoError(t, s.SetURL("http://example.com"))
	require.NoError(t, s.SetPostBody([]byte("x=1")))

	drv.chunks = [][]byte{[]byte("before")}
	require.NoError(t, s.Execute())

	require.NoError(t, s.Reset())
	assert.Equal(t, 1, drv.last.resets)
	assert.Nil(t, s.PostBody())
	assert.Equal(t, 0, s.Headers().Len())
	assert.Equal(t, 1, drv.listsFreed)
	assert.Equal(t, []byte("before"), s.ReceiveBuffer())

	drv.chunks = [][]byte{[]byte("after")}
	require.NoError(t, s.Execute())
	assert.Equal(t, []byte("beforeafter"), s.ReceiveBuffer())
	assert.Same(t, &s.errBuf, drv.last.errBuf)
}

func TestEscape(t *testing.T) {
	_, _, s := openTestSession(t)

	got, err := s.Escape("a b&c=d/e")
	require.NoError(t, err)
	assert.Equal(t, "a%20b%26c%3Dd%2Fe", got)

	got, err = s.Escape("abcXYZ0129")
	require.NoError(t, err)
	assert.Equal(t, "abcXYZ0129", got)

	_, err = s.Escape("bad\x00input")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscape)
	assert.Equal(t, "easy.Session.Escape", err.Error())
}

func TestCloseReleasesHandleBeforeHeaders(t *testing.T) {
	drv, lib, s := openTestSession(t)
	h, err := lib.NewHeaderList("X-Trace: 1")
	require.NoError(t, err)
	require.NoError(t, s.AttachHeaders(h))

	require.NoError(t, s.Close())
	assert.True(t, drv.last.cleaned)
	assert.Equal(t, 1, drv.listsFreed)
	assert.Zero(t, drv.freedInUse)
	assert.Zero(t, drv.doubleFrees)
}

func TestClosedSessionRejectsCalls(t *testing.T) {
	_, lib, s := openTestSession(t)
	require.NoError(t, s.Close())
	assert.Equal(t, 0, lib.OpenSessions())

	assert.ErrorIs(t, s.SetURL("http://example.com"), ErrClosed)
	assert.ErrorIs(t, s.Execute(), ErrClosed)
	assert.ErrorIs(t, s.Reset(), ErrClosed)
	_, err := s.Escape("x")
	assert.ErrorIs(t, err, ErrClosed)
}
