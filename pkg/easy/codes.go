package easy

import "fmt"

// Code is a status returned by the native transfer layer. Values follow libcurl's CURLcode
// numbering so diagnostics line up with what operators already know.
type Code int

// NoCode marks an Error raised without a native status.
const NoCode Code = -1

const (
	OK                  Code = 0
	UnsupportedProtocol Code = 1
	FailedInit          Code = 2
	URLMalformat        Code = 3
	CouldntResolveProxy Code = 5
	CouldntResolveHost  Code = 6
	CouldntConnect      Code = 7
	HTTPReturnedError   Code = 22
	WriteError          Code = 23
	ReadError           Code = 26
	OutOfMemory         Code = 27
	OperationTimedOut   Code = 28
	SSLConnectError     Code = 35
	AbortedByCallback   Code = 42
	BadFunctionArgument Code = 43
	TooManyRedirects    Code = 47
	UnknownOption       Code = 48
	GotNothing          Code = 52
	SendError           Code = 55
	RecvError           Code = 56
	PeerFailedVerify    Code = 60
)

var codeText = map[Code]string{
	OK:                  "No error",
	UnsupportedProtocol: "Unsupported protocol",
	FailedInit:          "Failed initialization",
	URLMalformat:        "URL using bad/illegal format or missing URL",
	CouldntResolveProxy: "Couldn't resolve proxy name",
	CouldntResolveHost:  "Couldn't resolve host name",
	CouldntConnect:      "Couldn't connect to server",
	HTTPReturnedError:   "HTTP response code said error",
	WriteError:          "Failed writing received data to disk/application",
	ReadError:           "Failed to open/read local data from file/application",
	OutOfMemory:         "Out of memory",
	OperationTimedOut:   "Timeout was reached",
	SSLConnectError:     "SSL connect error",
	AbortedByCallback:   "Operation was aborted by an application callback",
	BadFunctionArgument: "A libcurl function was given a bad argument",
	TooManyRedirects:    "Number of redirects hit maximum amount",
	UnknownOption:       "An unknown option was passed in to libcurl",
	GotNothing:          "Server returned nothing (no headers, no data)",
	SendError:           "Failed sending data to the peer",
	RecvError:           "Failure when receiving data from the peer",
	PeerFailedVerify:    "SSL peer certificate or SSH remote key was not OK",
}

// String returns the generic description of the code, the fallback used when the
// error buffer is empty.
func (c Code) String() string {
	if c == NoCode {
		return "no code"
	}
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("Unknown error (%d)", int(c))
}
