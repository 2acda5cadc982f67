package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rcpklmc/sn0int/internal/registry/service"
	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

type handlers struct {
	svc *service.Service
	log *logger.Logger
}

// envelope is the {"success": T} | {"error": string} wrapper spec.md §6
// requires every registry response to use.
type envelope struct {
	Success interface{} `json:"success,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: data})
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	var typed *sferrors.Error
	status := http.StatusInternalServerError
	message := "internal error"
	if errors.As(err, &typed) {
		status = typed.HTTPStatus()
		message = typed.Error()
		if typed.Kind == sferrors.Internal {
			h.log.WithField("error", err).Error("internal registry error")
			message = "internal error"
		}
	} else {
		h.log.WithField("error", err).Error("unclassified registry error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: message})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, results)
}

func (h *handlers) info(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "author")
	name := chi.URLParam(r, "name")
	info, err := h.svc.Info(r.Context(), author, name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, info)
}

func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "author")
	name := chi.URLParam(r, "name")
	version := chi.URLParam(r, "version")
	result, err := h.svc.Download(r.Context(), author, name, version)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

type publishRequest struct {
	Code string `json:"code"`
}

func (h *handlers) publish(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	session := r.Header.Get("Authorization")
	if session == "" {
		h.writeError(w, sferrors.New(sferrors.AuthRequired, "missing Authorization header"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.writeError(w, sferrors.Wrap(sferrors.Internal, "reading publish body", err))
		return
	}
	var req publishRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, sferrors.Wrap(sferrors.FilterSyntax, "invalid publish request body", err))
		return
	}

	result, err := h.svc.Publish(r.Context(), session, name, req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *handlers) whoami(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get("Authorization")
	if session == "" {
		h.writeError(w, sferrors.New(sferrors.AuthRequired, "missing Authorization header"))
		return
	}
	result, err := h.svc.Whoami(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	authURL, err := h.svc.Login(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		h.writeError(w, sferrors.New(sferrors.AuthRequired, "oauth error: "+errMsg+": "+q.Get("error_description")))
		return
	}
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		h.writeError(w, sferrors.New(sferrors.FilterSyntax, "authorize requires code and state"))
		return
	}
	if err := h.svc.Authorize(r.Context(), code, state); err != nil {
		h.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, struct{}{})
}
