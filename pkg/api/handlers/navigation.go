package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/internal/telemetry"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
)

// DefaultWindowSize is the number of neighbours listed on each side when the
// window endpoint is called without a size.
const DefaultWindowSize = 5

// MaxWindowSize bounds the window endpoint.
const MaxWindowSize = 1000

// Navigator is the navigation session driven by the API.
type Navigator interface {
	SessionID() string
	Strategy() fileseq.Strategy
	Current() string
	Window(size int) (prev, next []string)
	Display(ctx context.Context) (*imageload.Image, error)
	Next(ctx context.Context) (*imageload.Image, error)
	Previous(ctx context.Context) (*imageload.Image, error)
	Move(ctx context.Context, diff int) (int, error)
	SetCurrent(ctx context.Context, path string) error
	SwitchTo(ctx context.Context, strategy fileseq.Strategy) error
	Reload(ctx context.Context) error
}

// NavigationHandler handles the navigation endpoints.
type NavigationHandler struct {
	nav Navigator
}

// NewNavigationHandler creates a navigation handler over nav.
func NewNavigationHandler(nav Navigator) *NavigationHandler {
	return &NavigationHandler{nav: nav}
}

// CurrentResponse describes the navigation cursor.
type CurrentResponse struct {
	Path      string `json:"path"`
	Strategy  string `json:"strategy"`
	SessionID string `json:"session_id"`
}

// ImageResponse describes a decoded image.
type ImageResponse struct {
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// MoveRequest is the body of POST /api/v1/move.
type MoveRequest struct {
	Diff int `json:"diff"`
}

// MoveResponse reports how far the cursor moved.
type MoveResponse struct {
	Requested int    `json:"requested"`
	Moved     int    `json:"moved"`
	Current   string `json:"current"`
}

// SetCurrentRequest is the body of PUT /api/v1/current.
type SetCurrentRequest struct {
	Path string `json:"path"`
}

// StrategyRequest is the body of PUT /api/v1/strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy"`
}

// WindowResponse lists the files around the cursor in sequence order.
type WindowResponse struct {
	Previous []string `json:"previous"`
	Current  string   `json:"current"`
	Next     []string `json:"next"`
}

func (h *NavigationHandler) current() CurrentResponse {
	return CurrentResponse{
		Path:      h.nav.Current(),
		Strategy:  h.nav.Strategy().String(),
		SessionID: h.nav.SessionID(),
	}
}

func imageToResponse(img *imageload.Image) ImageResponse {
	return ImageResponse{
		Path:    img.Path,
		Format:  img.Format,
		Width:   img.Width,
		Height:  img.Height,
		Size:    img.Size,
		ModTime: img.ModTime,
	}
}

// Current handles GET /api/v1/current.
func (h *NavigationHandler) Current(w http.ResponseWriter, r *http.Request) {
	cur := h.current()
	if cur.Path == "" {
		ServiceUnavailable(w, "no navigation session open")
		return
	}
	writeOK(w, cur)
}

// SetCurrent handles PUT /api/v1/current.
func (h *NavigationHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		BadRequest(w, "path is required")
		return
	}

	ctx, span := telemetry.StartAPISpan(r.Context(), "set_current", telemetry.Path(req.Path))
	defer span.End()

	if err := h.nav.SetCurrent(ctx, req.Path); err != nil {
		telemetry.RecordError(ctx, err)
		writeNavigationError(w, err)
		return
	}
	writeOK(w, h.current())
}

// Display handles GET /api/v1/display: it decodes the current image and
// returns its description.
func (h *NavigationHandler) Display(w http.ResponseWriter, r *http.Request) {
	h.showImage(w, r, "display", h.nav.Display)
}

// Next handles POST /api/v1/next.
func (h *NavigationHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.showImage(w, r, "next", h.nav.Next)
}

// Previous handles POST /api/v1/previous.
func (h *NavigationHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.showImage(w, r, "previous", h.nav.Previous)
}

func (h *NavigationHandler) showImage(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) (*imageload.Image, error)) {
	ctx, span := telemetry.StartAPISpan(r.Context(), op)
	defer span.End()

	img, err := fn(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.DebugCtx(ctx, "Navigation request failed", "operation", op, logger.Err(err))
		writeNavigationError(w, err)
		return
	}
	writeOK(w, imageToResponse(img))
}

// Move handles POST /api/v1/move. A partial move is not an error: the
// response reports how far the cursor actually went.
func (h *NavigationHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	ctx, span := telemetry.StartAPISpan(r.Context(), "move")
	defer span.End()

	moved, err := h.nav.Move(ctx, req.Diff)
	if err != nil {
		telemetry.RecordError(ctx, err)
		writeNavigationError(w, err)
		return
	}
	telemetry.SetAttributes(ctx, telemetry.Moved(moved))
	writeOK(w, MoveResponse{Requested: req.Diff, Moved: moved, Current: h.nav.Current()})
}

// Reload handles POST /api/v1/reload.
func (h *NavigationHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartAPISpan(r.Context(), "reload")
	defer span.End()

	if err := h.nav.Reload(ctx); err != nil {
		telemetry.RecordError(ctx, err)
		writeNavigationError(w, err)
		return
	}
	writeOK(w, h.current())
}

// SwitchStrategy handles PUT /api/v1/strategy.
func (h *NavigationHandler) SwitchStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	strategy, err := fileseq.ParseStrategy(req.Strategy)
	if err != nil {
		UnprocessableEntity(w, err.Error())
		return
	}

	ctx, span := telemetry.StartAPISpan(r.Context(), "switch", telemetry.Strategy(strategy.String()))
	defer span.End()

	if err := h.nav.SwitchTo(ctx, strategy); err != nil {
		telemetry.RecordError(ctx, err)
		writeNavigationError(w, err)
		return
	}
	writeOK(w, h.current())
}

// Window handles GET /api/v1/window?size=N.
func (h *NavigationHandler) Window(w http.ResponseWriter, r *http.Request) {
	size := DefaultWindowSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > MaxWindowSize {
			BadRequest(w, "size must be an integer between 0 and "+strconv.Itoa(MaxWindowSize))
			return
		}
		size = n
	}

	cur := h.nav.Current()
	if cur == "" {
		ServiceUnavailable(w, "no navigation session open")
		return
	}
	prev, next := h.nav.Window(size)
	if prev == nil {
		prev = []string{}
	}
	if next == nil {
		next = []string{}
	}
	writeOK(w, WindowResponse{Previous: prev, Current: cur, Next: next})
}
