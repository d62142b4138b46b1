package api

import (
	"net/http"
)

// FunnelHandler handles funnel render requests.
type FunnelHandler struct {
	deps      Renderer
	maxUpload int64
}

// NewFunnelHandler creates a new funnel handler.
func NewFunnelHandler(deps Renderer, maxUpload int64) *FunnelHandler {
	return &FunnelHandler{deps: deps, maxUpload: maxUpload}
}

// HandlePostFunnel handles POST /funnel requests. The body is a multipart
// form with an events CSV, an optional compare CSV and the render options.
func (h *FunnelHandler) HandlePostFunnel(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_funnel"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req, err := parseRenderRequest(r)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	primary, err := readUpload(r, fieldEvents, true)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	baseline, err := readUpload(r, fieldCompare, false)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}

	funnel, err := h.deps.Render(r.Context(), primary, baseline, req.options(h.deps.Defaults()))
	if err != nil {
		fail(w, WrapKind(op, ErrRender, err))
		return
	}
	writeJSON(w, http.StatusOK, funnel)
}
