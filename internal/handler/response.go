package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/catalog-editor/internal/catalog"
)

// statusFor selects the HTTP status of a failed Result.
func statusFor(kind catalog.ErrorKind) int {
	switch kind {
	case catalog.KindValidation, catalog.KindInvalidID:
		return http.StatusBadRequest
	case catalog.KindNotFound:
		return http.StatusNotFound
	case catalog.KindUnsupported:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadGateway
	}
}

// writeResult renders res as an envelope. okStatus is used on success;
// failures take their status from the error kind. Kind itself is never
// serialized.
func writeResult[T any](w http.ResponseWriter, okStatus int, res catalog.Result[T], encode func(*jx.Encoder, T)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(res.Success)

	status := okStatus
	if res.Success {
		if res.Data != nil {
			e.FieldStart("data")
			encode(&e, *res.Data)
		}
	} else {
		status = statusFor(res.Kind)
		e.FieldStart("error")
		e.Str(res.Error)
	}
	e.ObjEnd()

	writeJSON(w, status, e.Bytes())
}

func writeFailure(w http.ResponseWriter, status int, msg string, extra func(*jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("error")
	e.Str(msg)
	if extra != nil {
		extra(&e)
	}
	e.ObjEnd()

	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
