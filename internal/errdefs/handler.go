package errdefs

import (
	"sync"

	"github.com/rs/zerolog"
)

// HandlerFunc reacts to a normalized error, typically for side effects such
// as clearing a session or printing a notification.
type HandlerFunc func(*Error)

// Handler dispatches normalized errors to registered reactions. Resolution
// order: the per-call custom handler, then the handler registered for the
// error's kind, then the fallback, then a log line. Safe for concurrent use.
type Handler struct {
	mu       sync.RWMutex
	byKind   map[Kind]HandlerFunc
	fallback HandlerFunc
	log      zerolog.Logger
}

// NewHandler builds an empty registry logging unhandled errors to log.
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		byKind: make(map[Kind]HandlerFunc),
		log:    log,
	}
}

// Register installs fn for the given kind, replacing any previous handler.
func (h *Handler) Register(kind Kind, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn == nil {
		delete(h.byKind, kind)
		return
	}
	h.byKind[kind] = fn
}

// SetFallback installs the handler used when no kind-specific handler exists.
func (h *Handler) SetFallback(fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallback = fn
}

// Handle normalizes err and dispatches it. custom, when non-nil, wins over
// any registered handler. The normalized *Error is returned so call sites
// can propagate it.
func (h *Handler) Handle(err error, custom HandlerFunc) *Error {
	if err == nil {
		return nil
	}
	e := As(err)

	if custom != nil {
		custom(e)
		return e
	}

	h.mu.RLock()
	fn := h.byKind[e.Kind]
	fallback := h.fallback
	h.mu.RUnlock()

	switch {
	case fn != nil:
		fn(e)
	case fallback != nil:
		fallback(e)
	default:
		h.log.Error().
			Str("kind", string(e.Kind)).
			Int("code", e.Code).
			Str("message", e.Message).
			Msg("unhandled error")
	}
	return e
}
