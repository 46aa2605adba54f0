// Package httputil carries the response envelope every backoffice endpoint
// writes, plus the request decode helpers the handlers share.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Envelope is the uniform response body. Code mirrors the HTTP status so
// clients can branch without touching transport headers.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// PageEnvelope extends Envelope with paging totals for list responses.
type PageEnvelope struct {
	Envelope
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// maxBodyBytes caps JSON request bodies. File uploads carry their own limit.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// OK writes a 200 envelope around data.
func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: http.StatusOK, Msg: "OK", Data: data})
}

// OKPage writes a 200 envelope with paging totals alongside the data.
func OKPage(w http.ResponseWriter, data any, total int, page storage.PageArgs) {
	n := page.Normalized()
	writeJSON(w, http.StatusOK, PageEnvelope{
		Envelope: Envelope{Code: http.StatusOK, Msg: "OK", Data: data},
		Total:    total,
		Page:     n.Page,
		PageSize: n.PageSize,
	})
}

// Fail writes an error envelope. The envelope code always equals the HTTP
// status.
func Fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Code: status, Msg: msg})
}

// Error maps a service-layer error onto the envelope. Storage sentinels take
// precedence over the taxonomy so wrapped not-found errors still come out as
// 404.
func Error(w http.ResponseWriter, err error) {
	status := errdefs.HTTPStatus(err)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	var e *errdefs.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	Fail(w, status, msg)
}

// Bind decodes the JSON body into dst and checks its validation tags.
func Bind(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errdefs.Business("invalid request body: " + err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return errdefs.Businessf("field %s fails validation %q", f.Field(), f.Tag())
		}
		return errdefs.Business(err.Error())
	}
	return nil
}

// PageFromQuery reads page and page_size, tolerating absent or bad values.
func PageFromQuery(r *http.Request) storage.PageArgs {
	q := r.URL.Query()
	return storage.PageArgs{
		Page:     atoiDefault(q.Get("page"), 1),
		PageSize: atoiDefault(q.Get("page_size"), 10),
	}
}

// QueryInt64 reads a numeric query parameter, zero when absent or malformed.
func QueryInt64(r *http.Request, name string) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here can only be
	// logged by the caller's middleware.
	_ = json.NewEncoder(w).Encode(body)
}
