package api

import (
	"net/http"
	"strings"
)

// ActionsHandler lists the actions of an uploaded log.
type ActionsHandler struct {
	deps      ActionLister
	maxUpload int64
}

// NewActionsHandler creates a new actions handler.
func NewActionsHandler(deps ActionLister, maxUpload int64) *ActionsHandler {
	return &ActionsHandler{deps: deps, maxUpload: maxUpload}
}

// HandlePostActions handles POST /actions requests.
func (h *ActionsHandler) HandlePostActions(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_actions"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	records, err := readUpload(r, fieldEvents, true)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	engine := strings.ToLower(strings.TrimSpace(r.FormValue(fieldEngine)))
	listing, err := h.deps.Actions(r.Context(), records, engine)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
