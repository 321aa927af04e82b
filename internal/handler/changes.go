package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-editor/internal/catalog"
	"github.com/xenking/catalog-editor/internal/revalidate"
)

// StreamChanges handles GET /api/products/changes, a server-sent event
// stream. It opens with a "ready" event carrying the current generation and
// then emits one "invalidate" event per successful mutation. Comment lines
// are sent as heartbeats.
func (h *Handler) StreamChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)
	rc := http.NewResponseController(w)

	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		lg.Warn("Clear write deadline", zap.Error(err))
	}

	sub := h.changes.Subscribe(catalog.ListingScope)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(ev revalidate.Event, name string) error {
		if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", name, ev.Generation, encodeEvent(ev)); err != nil {
			return err
		}
		return rc.Flush()
	}

	initial := revalidate.Event{Scope: catalog.ListingScope, Generation: h.changes.Generation(catalog.ListingScope)}
	if err := send(initial, "ready"); err != nil {
		lg.Debug("Change stream closed", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send(ev, "invalidate"); err != nil {
				lg.Debug("Change stream closed", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func encodeEvent(ev revalidate.Event) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("scope")
	e.Str(ev.Scope)
	e.FieldStart("generation")
	e.UInt64(ev.Generation)
	e.ObjEnd()
	return e.Bytes()
}
