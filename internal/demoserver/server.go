// Package demoserver serves the two endpoints the fetch and upload demos talk to.
// GET /response reports the stored value, POST /upload validates and stores one.
package demoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/easyxfer/internal/logger"
	"github.com/samvad-hq/easyxfer/internal/storage"
	"github.com/samvad-hq/easyxfer/pkg/publishers"
)

// ValueID is the row every request reads and writes.
const ValueID uint64 = 1

const (
	maxUploadBytes = 1 << 20
	minValue       = 0
	maxValue       = 9999
	notifyTimeout  = 5 * time.Second
)

// Messages stored alongside rejected uploads.
const (
	msgNoValue      = "No test value stored."
	msgUsePost      = "Use POST to send values"
	msgKeyMissing   = "'UploadValue' key missing in POST values"
	msgJSONMissing  = "[UploadValue] is missing from JSON: "
	msgOutOfRange   = "The number must be in the range [0..9999]"
	msgNotNumeric   = "Input value must be numeric: "
	rejectedValue   = -1
	uploadFormField = "UploadValue"
)

// Response is the body of GET /response.
type Response struct {
	InputValue   int     `json:"inputValue"`
	ErrorMessage *string `json:"errorMessage"`
}

// Notifier receives an event for every stored upload. *publishers.Fanout implements it.
type Notifier interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Server holds the handler dependencies.
type Server struct {
	store  storage.Store
	log    logger.Logger
	notify Notifier
}

// Option customizes a Server.
type Option func(*Server)

// WithNotifier publishes an event after every stored upload.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notify = n }
}

// New builds a Server. A nil store keeps nothing; a nil log discards output.
func New(store storage.Store, log logger.Logger, opts ...Option) *Server {
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	s := &Server{store: store, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes the demo endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/response", s.handleResponse)
	mux.HandleFunc("/upload", s.handleUpload)
	return mux
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	resp := Response{InputValue: rejectedValue, ErrorMessage: strPtr(msgNoValue)}

	rec, found, err := s.store.Load(ValueID)
	if err != nil {
		s.log.ErrorObj("load stored value failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	if found {
		resp = Response{InputValue: rec.DataValue, ErrorMessage: rec.ErrorMessage}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WarnObj("write response failed", "error", err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	rec := storage.Record{DataValue: rejectedValue}
	if r.Method != http.MethodPost {
		rec.ErrorMessage = strPtr(msgUsePost)
	} else {
		rec = parseUpload(r)
	}

	if err := s.store.Save(ValueID, rec); err != nil {
		s.log.ErrorObj("store uploaded value failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	s.log.InfoObj("upload stored", "upload", map[string]any{
		"method":   r.Method,
		"value":    rec.DataValue,
		"accepted": rec.ErrorMessage == nil,
	})
	s.publish(r.Context(), rec)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if rec.ErrorMessage == nil {
		io.WriteString(w, "OK")
		return
	}
	io.WriteString(w, *rec.ErrorMessage)
}

// publish hands the stored row to the notifier. Delivery failures are logged only; the
// upload itself has already been stored.
func (s *Server) publish(ctx context.Context, rec storage.Record) {
	if s.notify == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	delivered, err := s.notify.Publish(ctx, publishers.NewEvent(ValueID, rec.DataValue, rec.ErrorMessage))
	if err != nil {
		s.log.WarnObj("upload notification failed", "notify_meta", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// parseUpload reads the UploadValue form field from the body. The field is decoded
// regardless of the declared Content-Type since clients label it application/json.
func parseUpload(r *http.Request) storage.Record {
	reject := func(msg string) storage.Record {
		return storage.Record{DataValue: rejectedValue, ErrorMessage: strPtr(msg)}
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return reject(msgKeyMissing)
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil || !form.Has(uploadFormField) {
		return reject(msgKeyMissing)
	}
	input := form.Get(uploadFormField)

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(input)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil || payload[uploadFormField] == nil {
		return reject(msgJSONMissing + input)
	}

	value := payload[uploadFormField]
	n, ok := numericValue(value)
	if !ok {
		return reject(msgNotNumeric + fmt.Sprint(value))
	}
	if n < minValue || n > maxValue {
		return reject(msgOutOfRange)
	}
	return storage.Record{DataValue: int(n)}
}

// numericValue accepts JSON numbers and numeric strings, truncating fractions.
func numericValue(v any) (int64, bool) {
	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return 0, false
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return int64(math.Copysign(math.MaxInt32, f)), true
	}
	return int64(f), true
}

func strPtr(s string) *string { return &s }
