// Package explorer serves the explorer page and the Datastar endpoints that
// drive its linked panels. Each control posts its signals to one trigger
// route; the session's synchronizer answers with patches for exactly the
// panels that trigger invalidates.
package explorer

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/humastar"
	"github.com/joeblew999/plat-explorer/internal/panel"
	"github.com/joeblew999/plat-explorer/internal/service"
	"github.com/joeblew999/plat-explorer/internal/templates"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

// PageData feeds the explorer page template.
type PageData struct {
	Title      string
	Signals    map[string]any
	Datasets   []panel.Choice
	GridLayers []panel.Choice
	Weights    []panel.WeightRow
	MarkerMin  int
	MarkerMax  int
}

// Handler serves the explorer.
type Handler struct {
	sessions *service.SessionService
	data     viewstate.Source
	tmpl     *templates.Renderer
	bus      *service.EventBus
	log      *zap.Logger
}

// NewHandler creates an explorer handler. bus may be nil.
func NewHandler(sessions *service.SessionService, data viewstate.Source, tmpl *templates.Renderer, bus *service.EventBus) *Handler {
	return &Handler{
		sessions: sessions,
		data:     data,
		tmpl:     tmpl,
		bus:      bus,
		log:      zap.L().With(zap.String("component", "explorer")),
	}
}

// RegisterRoutes registers one POST route per trigger plus the render and
// event stream routes.
func (h *Handler) RegisterRoutes(api huma.API) {
	for _, b := range bindings {
		huma.Post(api, "/api/v1/explorer/"+string(b.trigger), h.handle(b.parse),
			huma.OperationTags("explorer"),
		)
	}
	huma.Post(api, "/api/v1/explorer/render", h.Render, huma.OperationTags("explorer"))
	huma.Get(api, "/api/v1/explorer/events", h.Events, huma.OperationTags("explorer"))
}

func (h *Handler) handle(parse func(humastar.Signals) viewstate.Action) func(context.Context, *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return func(ctx context.Context, in *humastar.SignalsInput) (*huma.StreamResponse, error) {
		signals, err := in.MustParse()
		if err != nil {
			return nil, err
		}
		return humastar.Stream(func(sse humastar.SSE) {
			h.dispatch(ctx, sse, signals, parse(signals))
		}), nil
	}
}

// dispatch applies a to the caller's session and streams the result. An
// unknown session (expired, or the process restarted) is replaced and fully
// redrawn instead.
func (h *Handler) dispatch(ctx context.Context, out Stream, signals humastar.Signals, a viewstate.Action) {
	sess, created := h.sessions.GetOrCreate(signals.String("session"))
	r := &sseRenderer{out: out, tmpl: h.tmpl}
	if created {
		h.log.Info("session replaced", zap.String("session", sess.ID), zap.String("trigger", string(a.Trigger())))
		h.redraw(ctx, out, sess, r)
		return
	}

	if _, err := sess.Dispatch(ctx, a, r); err != nil {
		h.log.Debug("action rejected", zap.String("trigger", string(a.Trigger())), zap.Error(err))
		h.send(out, controlSignals(sess.State()))
		if err := out.Error("Unknown selection for " + string(a.Trigger())); err != nil {
			h.log.Debug("error not sent", zap.Error(err))
		}
		return
	}
	st := sess.State()
	if a.Trigger() == viewstate.TriggerWeight {
		h.weights(out, st)
	}
	h.send(out, controlSignals(st))
}

// weights redraws the weight table so clamped values reach the inputs.
func (h *Handler) weights(out Stream, st viewstate.State) {
	rows, err := humastar.RenderList(h.tmpl, "weight-row", panel.Weights(st), "", "")
	if err != nil {
		h.log.Error("weight rows render failed", zap.Error(err))
		return
	}
	if err := out.Patch(rows, weightsTable); err != nil {
		h.log.Debug("weight rows not sent", zap.Error(err))
	}
}

// Render redraws every panel, as on page load.
func (h *Handler) Render(ctx context.Context, in *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := in.MustParse()
	if err != nil {
		return nil, err
	}
	return humastar.Stream(func(sse humastar.SSE) {
		sess, _ := h.sessions.GetOrCreate(signals.String("session"))
		h.redraw(ctx, sse, sess, &sseRenderer{out: sse, tmpl: h.tmpl})
	}), nil
}

func (h *Handler) redraw(ctx context.Context, out Stream, sess *service.Session, r panel.Renderer) {
	h.send(out, pageSignals(sess.ID, sess.State()))
	sess.RenderAll(ctx, r)
	h.send(out, controlSignals(sess.State()))
}

func (h *Handler) send(out Stream, signals map[string]any) {
	if err := out.Signals(signals); err != nil {
		h.log.Debug("signals not sent", zap.Error(err))
	}
}

// Events streams data load notifications to the page.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		if h.bus == nil {
			return
		}
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Kind == service.KindSession {
					continue
				}
				if err := sse.Event(EventLoaded, ev); err != nil {
					return
				}
			}
		}
	}), nil
}

// Page creates a session and serves the explorer page bound to it.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	st := sess.State()

	out, err := h.tmpl.Render("explorer", h.pageData(sess.ID, st))
	if err != nil {
		h.log.Error("page render failed", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(out))
}

func (h *Handler) pageData(id string, st viewstate.State) PageData {
	cat := h.data.Catalog()
	data := PageData{
		Title:     "Yemen Energy Access Explorer",
		Signals:   pageSignals(id, st),
		Weights:   panel.Weights(st),
		MarkerMin: viewstate.MinMarkerSize,
		MarkerMax: viewstate.MaxMarkerSize,
	}
	for _, ds := range cat.Datasets {
		data.Datasets = append(data.Datasets, panel.Choice{ID: ds.ID, Label: ds.Label, Selected: ds.ID == st.Dataset})
	}
	for _, l := range cat.Grid.Layers {
		if _, ok := h.data.GridLayer(l.ID); !ok {
			continue
		}
		data.GridLayers = append(data.GridLayers, panel.Choice{ID: l.ID, Label: l.Label, Selected: l.ID == st.GridLayer})
	}
	return data
}
