package catalog

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/catalog-editor/internal/backend"
)

// Operation names a catalog call; it selects the wording of mapped failures.
type Operation string

const (
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (op Operation) notFoundMessage() string {
	if op == OpList {
		return "product listing not found"
	}
	return "product not found"
}

func (op Operation) unsupportedMessage() string {
	if op == OpList {
		return "listing is not supported by the product API"
	}
	return fmt.Sprintf("%s is not supported by the product API", op)
}

func (op Operation) statusMessage(status int) string {
	if op == OpList {
		return "failed to fetch products"
	}
	return fmt.Sprintf("product API request failed with status %d", status)
}

func (op Operation) transportMessage(err error) string {
	if op == OpList {
		return "failed to fetch products: " + err.Error()
	}
	return err.Error()
}

// mapResponse turns a backend outcome into a Result. decode is applied to
// non-empty 2xx bodies; a nil decode ignores the body.
func mapResponse[T any](op Operation, resp *backend.Response, err error, decode func([]byte) (T, error)) Result[T] {
	if err != nil {
		var tErr *backend.TransportError
		if errors.As(err, &tErr) {
			return fail[T](KindTransport, op.transportMessage(tErr))
		}
		return fail[T](KindTransport, op.transportMessage(err))
	}

	switch {
	case resp.Status >= 200 && resp.Status < 300:
		if decode == nil || len(resp.Body) == 0 {
			return ok[T](nil)
		}
		data, err := decode(resp.Body)
		if err != nil {
			return fail[T](KindBackend, "unexpected response from product API")
		}
		return ok(&data)
	case resp.Status == http.StatusNotFound:
		return fail[T](KindNotFound, op.notFoundMessage())
	case resp.Status == http.StatusMethodNotAllowed:
		return fail[T](KindUnsupported, op.unsupportedMessage())
	default:
		if msg := backendMessage(resp.Body); msg != "" {
			return fail[T](KindBackend, msg)
		}
		return fail[T](KindBackend, op.statusMessage(resp.Status))
	}
}

// backendMessage extracts "message" (or, failing that, "error") from a JSON
// error body. It returns "" when the body is not such an object.
func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var message, fallback string
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "message", "error":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			if string(key) == "message" {
				message = s
			} else {
				fallback = s
			}
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return ""
	}

	if message != "" {
		return message
	}
	return fallback
}
