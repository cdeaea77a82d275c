package easy

import "fmt"

// Option identifies one setting applied to a Handle.
//
// Value types accepted by Handle.SetOption:
//
//	string     URL, USERAGENT
//	int64      NOSIGNAL, TIMEOUT, TIMEOUT_MS, VERBOSE, UPLOAD, POST, NOBODY,
//	           FAILONERROR, POSTFIELDSIZE
//	OffT       POSTFIELDSIZE_LARGE
//	[]byte     POSTFIELDS
//	*ErrorBuffer, WriteFunc, *SList (nil clears) for the remaining ones
type Option int

const (
	OptNoSignal Option = iota + 1
	OptErrorBuffer
	OptUserAgent
	OptWriteFunction
	OptURL
	OptTimeout
	OptTimeoutMS
	OptVerbose
	OptUpload
	OptPost
	OptNoBody
	OptFailOnError
	OptPostFields
	OptPostFieldSize
	OptPostFieldSizeLarge
	OptHTTPHeader
)

var optionNames = map[Option]string{
	OptNoSignal:           "NOSIGNAL",
	OptErrorBuffer:        "ERRORBUFFER",
	OptUserAgent:          "USERAGENT",
	OptWriteFunction:      "WRITEFUNCTION",
	OptURL:                "URL",
	OptTimeout:            "TIMEOUT",
	OptTimeoutMS:          "TIMEOUT_MS",
	OptVerbose:            "VERBOSE",
	OptUpload:             "UPLOAD",
	OptPost:               "POST",
	OptNoBody:             "NOBODY",
	OptFailOnError:        "FAILONERROR",
	OptPostFields:         "POSTFIELDS",
	OptPostFieldSize:      "POSTFIELDSIZE",
	OptPostFieldSizeLarge: "POSTFIELDSIZE_LARGE",
	OptHTTPHeader:         "HTTPHEADER",
}

func (o Option) String() string {
	if s, ok := optionNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OPTION(%d)", int(o))
}

// OffT is the large size representation used by POSTFIELDSIZE_LARGE.
type OffT int64

// LargeSizeThreshold is the largest payload size still declared with the standard
// representation. Anything that exceeds it uses POSTFIELDSIZE_LARGE.
const LargeSizeThreshold int64 = 2 * 1024 * 1024 * 1024

// WriteFunc receives one chunk of response data. Returning anything other than
// len(chunk) aborts the transfer with WriteError.
type WriteFunc func(chunk []byte) int

// InitFlags select which subsystems GlobalInit prepares.
type InitFlags uint

const (
	GlobalNothing InitFlags = 0
	GlobalSSL     InitFlags = 1 << 0
	GlobalWin32   InitFlags = 1 << 1
	GlobalAll               = GlobalSSL | GlobalWin32
	GlobalDefault           = GlobalAll
)

func boolLong(flag bool) int64 {
	if flag {
		return 1
	}
	return 0
}
