package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/darkodi/link-shortener/internal/errors"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/model"
	"github.com/darkodi/link-shortener/internal/service"
	"github.com/darkodi/link-shortener/internal/validator"
)

// UserHeader carries the trusted caller identity returned by POST /api/users
const UserHeader = "X-User-ID"

// LinkHandler handles HTTP requests for link operations
type LinkHandler struct {
	service   *service.LinkService
	validator *validator.URLValidator
	log       *logger.Logger
}

// NewLinkHandler creates a new handler instance
func NewLinkHandler(svc *service.LinkService, v *validator.URLValidator, log *logger.Logger) *LinkHandler {
	if v == nil {
		v = validator.NewURLValidator()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LinkHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

// ============ HANDLERS ============

// HandleAuthenticate logs a user in by name, creating them on first use
// POST /api/users
func (h *LinkHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req model.AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}
	if appErr := h.validator.ValidateStruct(req); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	user, created, err := h.service.Authenticate(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, model.UserResponse{ID: user.ID, Name: user.Name, Created: created})
}

// HandleCreate creates a new short link
// POST /api/links
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req model.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}
	if appErr := h.validator.ValidateStruct(req); appErr != nil {
		appErr.WriteJSON(w)
		return
	}
	if appErr := h.validator.ValidateURL(req.URL); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	resp, err := h.service.CreateLink(r.Context(), owner.ID, req.URL, req.Duration, req.VisitLimit)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleList returns the caller's live links ordered by destination
// GET /api/links
func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	links, err := h.service.ListLinks(r.Context(), owner.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	out := make([]model.LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.service.ToResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns statistics for one of the caller's links
// GET /api/links/{token}
func (h *LinkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	tok := r.PathValue("token")
	if appErr := h.validator.ValidateToken(tok); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	link, err := h.service.GetLink(r.Context(), owner.ID, tok)
	if err != nil {
		h.writeServiceError(w, r, err, tok)
		return
	}
	writeJSON(w, http.StatusOK, h.service.ToResponse(link))
}

// HandleEdit changes destination, duration or visit limit of a link
// PATCH /api/links/{token}
func (h *LinkHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	tok := r.PathValue("token")
	if appErr := h.validator.ValidateToken(tok); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	var req model.EditLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}
	if req.IsEmpty() {
		errors.BadRequest("Nothing to change: supply url, duration or visit_limit").WriteJSON(w)
		return
	}
	if appErr := h.validator.ValidateStruct(req); appErr != nil {
		appErr.WriteJSON(w)
		return
	}
	if req.Destination != nil {
		if appErr := h.validator.ValidateURL(*req.Destination); appErr != nil {
			appErr.WriteJSON(w)
			return
		}
	}

	link, err := h.service.EditLink(r.Context(), owner.ID, tok, req)
	if err != nil {
		h.writeServiceError(w, r, err, tok)
		return
	}
	writeJSON(w, http.StatusOK, h.service.ToResponse(link))
}

// HandleDelete removes one of the caller's links
// DELETE /api/links/{token}
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	tok := r.PathValue("token")
	if !h.service.DeleteLink(r.Context(), owner.ID, tok) {
		errors.LinkNotFound(tok).WriteJSON(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRedirect redirects to the destination and spends one visit
// GET /{token}
func (h *LinkHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	tok := r.PathValue("token")
	if appErr := h.validator.ValidateToken(tok); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	destination, err := h.service.Resolve(r.Context(), tok)
	if err != nil {
		h.writeServiceError(w, r, err, tok)
		return
	}

	// 302 so browsers come back and every visit is counted
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, destination, http.StatusFound)
}

// HandleHealth returns service health status
// GET /health
func (h *LinkHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *LinkHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users", h.HandleAuthenticate)
	mux.HandleFunc("POST /api/links", h.HandleCreate)
	mux.HandleFunc("GET /api/links", h.HandleList)
	mux.HandleFunc("GET /api/links/{token}", h.HandleGet)
	mux.HandleFunc("PATCH /api/links/{token}", h.HandleEdit)
	mux.HandleFunc("DELETE /api/links/{token}", h.HandleDelete)
	mux.HandleFunc("GET /health", h.HandleHealth)

	mux.HandleFunc("GET /{token}", h.HandleRedirect)

	return mux
}

// ============ HELPERS ============

func (h *LinkHandler) owner(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		errors.Unauthenticated().WriteJSON(w)
		return model.User{}, false
	}

	user, err := h.service.User(r.Context(), id)
	if err != nil {
		errors.Unauthenticated().WriteJSON(w)
		return model.User{}, false
	}
	return user, true
}

// writeServiceError maps service errors to AppErrors
func (h *LinkHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, tok string) {
	switch {
	case stderrors.Is(err, service.ErrInvalidName):
		errors.InvalidName().WriteJSON(w)
	case stderrors.Is(err, service.ErrUnreachableURL):
		errors.UnreachableURL("").WriteJSON(w)
	case stderrors.Is(err, service.ErrInvalidDuration):
		errors.InvalidDuration(err.Error()).WriteJSON(w)
	case stderrors.Is(err, service.ErrAlreadyExpired):
		errors.AlreadyExpired().WriteJSON(w)
	case stderrors.Is(err, service.ErrNotFound):
		errors.LinkNotFound(tok).WriteJSON(w)
	case stderrors.Is(err, service.ErrNotOwned):
		errors.NotOwned(tok).WriteJSON(w)
	case stderrors.Is(err, service.ErrUserNotFound):
		errors.Unauthenticated().WriteJSON(w)
	default:
		logger.FromContext(r.Context(), h.log).Error("request failed", "error", err.Error())
		errors.Internal("").WriteJSON(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
