// Package httpapi exposes the application services as a REST API. Every
// data-plane route resolves the caller's permission set first and threads an
// explicit Authorizer into the service layer; administrative routes are
// gated under the Settings module the same way. Schema reads stay open to
// any authenticated caller, since clients need field definitions to render
// the entry forms they do hold grants for. Capability failures surface as
// 403, validation as 400, contention as 409.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/ticware/opscore/internal/app"
	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/services/permissions"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/internal/middleware"
	"github.com/ticware/opscore/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	log   *logger.Logger
	audit *auditLog
}

// Option tunes handler construction.
type Option func(*handler)

// WithAuditFile persists the audit trail as JSONL at path in addition to the
// in-memory ring. Open failures are logged and the file sink is skipped.
func WithAuditFile(path string) Option {
	return func(h *handler) {
		sink, err := newFileAuditSink(path)
		if err != nil {
			h.log.WithError(err).WithField("path", path).Warn("Audit file unavailable")
			return
		}
		if sink != nil {
			h.audit = newAuditLog(h.audit.max, sink)
		}
	}
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application, log *logger.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log, audit: newAuditLog(200, nil)}
	for _, opt := range opts {
		opt(h)
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	r.HandleFunc("/submodules", h.listSubmodules).Methods(http.MethodGet)
	r.HandleFunc("/submodules", h.createSubmodule).Methods(http.MethodPost)
	r.HandleFunc("/submodules/{id}", h.getSubmodule).Methods(http.MethodGet)
	r.HandleFunc("/submodules/{id}", h.deleteSubmodule).Methods(http.MethodDelete)
	r.HandleFunc("/submodules/{id}/fields", h.listFields).Methods(http.MethodGet)
	r.HandleFunc("/submodules/{id}/fields", h.addField).Methods(http.MethodPost)
	r.HandleFunc("/fields/{id}", h.updateField).Methods(http.MethodPatch)
	r.HandleFunc("/fields/{id}", h.deleteField).Methods(http.MethodDelete)

	r.HandleFunc("/submodules/{id}/entries", h.listEntries).Methods(http.MethodGet)
	r.HandleFunc("/submodules/{id}/entries", h.saveEntry).Methods(http.MethodPost)
	r.HandleFunc("/submodules/{id}/entries/{entryID}", h.getEntry).Methods(http.MethodGet)
	r.HandleFunc("/submodules/{id}/entries/{entryID}", h.saveEntry).Methods(http.MethodPut)
	r.HandleFunc("/submodules/{id}/entries/{entryID}", h.deleteEntry).Methods(http.MethodDelete)
	r.HandleFunc("/submodules/{id}/entries/{entryID}/submit", h.submitEntry).Methods(http.MethodPost)
	r.HandleFunc("/submodules/{id}/entries/{entryID}/duplicate", h.duplicateEntry).Methods(http.MethodPost)

	r.HandleFunc("/roles", h.listRoles).Methods(http.MethodGet)
	r.HandleFunc("/roles", h.createRole).Methods(http.MethodPost)
	r.HandleFunc("/roles/{id}", h.updateRole).Methods(http.MethodPut)
	r.HandleFunc("/roles/{id}", h.deleteRole).Methods(http.MethodDelete)

	r.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/roles", h.setUserRoles).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/status", h.setUserStatus).Methods(http.MethodPut)
	r.HandleFunc("/users/me/permissions", h.myPermissions).Methods(http.MethodGet)

	r.HandleFunc("/licenses", h.listLicenses).Methods(http.MethodGet)
	r.HandleFunc("/licenses", h.createLicense).Methods(http.MethodPost)
	r.HandleFunc("/licenses/{key}", h.getLicense).Methods(http.MethodGet)
	r.HandleFunc("/licenses/{key}/activate", h.activateLicense).Methods(http.MethodPost)
	r.HandleFunc("/licenses/{key}/deactivate", h.deactivateLicense).Methods(http.MethodPost)

	r.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)

	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorize resolves the caller's effective permission set. Requests that
// never passed the auth middleware get a 401.
func (h *handler) authorize(w http.ResponseWriter, r *http.Request) (permissions.Authorizer, bool) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return permissions.Authorizer{}, false
	}
	auth, err := h.app.Permissions.Authorize(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return permissions.Authorizer{}, false
	}
	return auth, true
}

// Administrative surfaces are gated through the same slug-bridged permission
// keys as transaction data, grouped under the Settings module.
const (
	settingsModule   = "Settings"
	formSettingPanel = "Form Setting"
	rolesPanel       = "Roles"
	usersPanel       = "Users"
	licensesPanel    = "Licenses"
	auditPanel       = "Audit"
)

// requireSetting is authorize plus a capability check on the named Settings
// panel. Denial surfaces as 403.
func (h *handler) requireSetting(w http.ResponseWriter, r *http.Request, panel string, action permissions.Action) (permissions.Authorizer, bool) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return permissions.Authorizer{}, false
	}
	if !permissions.Can(auth.Permissions, settingsModule, panel, action) {
		writeError(w, apperrors.Forbidden("no "+string(action)+" access to "+panel))
		return permissions.Authorizer{}, false
	}
	return auth, true
}

// submodule resolves the {id} path variable to its submodule record.
func (h *handler) submodule(w http.ResponseWriter, r *http.Request) (form.Submodule, bool) {
	sub, err := h.app.Forms.GetSubmodule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return form.Submodule{}, false
	}
	return sub, true
}

func (h *handler) recordAudit(r *http.Request, status int, submodule string) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	h.audit.add(auditEntry{
		Time:       time.Now().UTC(),
		User:       principal.Email,
		Submodule:  submodule,
		Path:       r.URL.Path,
		Method:     r.Method,
		Status:     status,
		RemoteAddr: r.RemoteAddr,
	})
}

// --- schema registry ---

func (h *handler) listSubmodules(w http.ResponseWriter, r *http.Request) {
	subs, err := h.app.Forms.ListSubmodules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *handler) createSubmodule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, formSettingPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Name       string `json:"name"`
		MainModule string `json:"mainModule"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	sub, err := h.app.Forms.CreateSubmodule(r.Context(), payload.Name, payload.MainModule)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, sub.Name)
	writeJSON(w, http.StatusCreated, sub)
}

func (h *handler) getSubmodule(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *handler) deleteSubmodule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, formSettingPanel, permissions.ActionDelete); !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	if err := h.app.Forms.DeleteSubmodule(r.Context(), sub.ID); err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusNoContent, sub.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listFields(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	section := form.Section(r.URL.Query().Get("section"))
	if section == "" {
		section = form.SectionHeader
	}
	fields, err := h.app.Forms.ListFields(r.Context(), sub.ID, section)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (h *handler) addField(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, formSettingPanel, permissions.ActionWrite); !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	var payload struct {
		Section     form.Section   `json:"section"`
		Key         string         `json:"key"`
		Label       string         `json:"label"`
		Type        form.FieldType `json:"type"`
		Required    bool           `json:"required"`
		Placeholder string         `json:"placeholder"`
		Options     []string       `json:"options"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	field, err := h.app.Forms.AddField(r.Context(), sub.ID, payload.Section, form.Field{
		Key:         payload.Key,
		Label:       payload.Label,
		Type:        payload.Type,
		Required:    payload.Required,
		Placeholder: payload.Placeholder,
		Options:     payload.Options,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, sub.Name)
	writeJSON(w, http.StatusCreated, field)
}

func (h *handler) updateField(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, formSettingPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Key         *string         `json:"key"`
		Label       *string         `json:"label"`
		Type        *form.FieldType `json:"type"`
		Position    *int            `json:"position"`
		Required    *bool           `json:"required"`
		Placeholder *string         `json:"placeholder"`
		Options     *[]string       `json:"options"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	field, err := h.app.Forms.UpdateField(r.Context(), mux.Vars(r)["id"], form.FieldPatch{
		Key:         payload.Key,
		Label:       payload.Label,
		Type:        payload.Type,
		Position:    payload.Position,
		Required:    payload.Required,
		Placeholder: payload.Placeholder,
		Options:     payload.Options,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, field)
}

func (h *handler) deleteField(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, formSettingPanel, permissions.ActionDelete); !ok {
		return
	}
	if err := h.app.Forms.DeleteField(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusNoContent, "")
	w.WriteHeader(http.StatusNoContent)
}

// --- transaction entries ---

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	list, err := h.app.Entries.List(r.Context(), auth, sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	e, err := h.app.Entries.Get(r.Context(), auth, sub, mux.Vars(r)["entryID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// saveEntry handles both POST (new draft) and PUT (update existing draft).
func (h *handler) saveEntry(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	var e entry.Entry
	if err := decodeJSON(r.Body, &e); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	if id := mux.Vars(r)["entryID"]; id != "" {
		e.ID = id
	}
	saved, err := h.app.Entries.SaveDraft(r.Context(), auth, sub, e)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	h.recordAudit(r, status, sub.Name)
	writeJSON(w, status, saved)
}

func (h *handler) submitEntry(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	e, err := h.app.Entries.Submit(r.Context(), auth, sub, mux.Vars(r)["entryID"])
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, sub.Name)
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) duplicateEntry(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	e, err := h.app.Entries.Duplicate(r.Context(), auth, sub, mux.Vars(r)["entryID"])
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, sub.Name)
	writeJSON(w, http.StatusCreated, e)
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sub, ok := h.submodule(w, r)
	if !ok {
		return
	}
	if err := h.app.Entries.Delete(r.Context(), auth, sub, mux.Vars(r)["entryID"]); err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusNoContent, sub.Name)
	w.WriteHeader(http.StatusNoContent)
}

// --- roles ---

func (h *handler) listRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, rolesPanel, permissions.ActionRead); !ok {
		return
	}
	roles, err := h.app.Permissions.ListRoles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *handler) createRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, rolesPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Permissions role.PermissionSet `json:"permissions"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	created, err := h.app.Permissions.CreateRole(r.Context(), payload.Name, payload.Description, payload.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, "")
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, rolesPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Description string             `json:"description"`
		Permissions role.PermissionSet `json:"permissions"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	updated, err := h.app.Permissions.UpdateRole(r.Context(), mux.Vars(r)["id"], payload.Description, payload.Permissions)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, rolesPanel, permissions.ActionDelete); !ok {
		return
	}
	if err := h.app.Permissions.DeleteRole(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusNoContent, "")
	w.WriteHeader(http.StatusNoContent)
}

// --- users ---

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, usersPanel, permissions.ActionRead); !ok {
		return
	}
	list, err := h.app.Users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, usersPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Roles    []string `json:"roles"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	created, err := h.app.Users.Create(r.Context(), payload.Username, payload.Email, payload.Roles)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, "")
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, usersPanel, permissions.ActionRead); !ok {
		return
	}
	u, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) setUserRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, usersPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	u, err := h.app.Users.SetRoles(r.Context(), mux.Vars(r)["id"], payload.Roles)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, usersPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		Status user.Status `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	u, err := h.app.Users.SetStatus(r.Context(), mux.Vars(r)["id"], payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, u)
}

// myPermissions returns the caller's resolved permission set so clients can
// gate UI affordances without round-tripping each check.
func (h *handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authorize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, auth.Permissions)
}

// --- licenses ---

func (h *handler) listLicenses(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, licensesPanel, permissions.ActionRead); !ok {
		return
	}
	list, err := h.app.Licenses.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) createLicense(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, licensesPanel, permissions.ActionWrite); !ok {
		return
	}
	var payload struct {
		UserEmail string    `json:"userEmail"`
		Expiry    time.Time `json:"expiry"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body: %v", err))
		return
	}
	created, err := h.app.Licenses.Create(r.Context(), payload.UserEmail, payload.Expiry)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusCreated, "")
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getLicense(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, licensesPanel, permissions.ActionRead); !ok {
		return
	}
	lic, err := h.app.Licenses.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lic)
}

func (h *handler) activateLicense(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, licensesPanel, permissions.ActionWrite); !ok {
		return
	}
	lic, err := h.app.Licenses.Activate(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, lic)
}

func (h *handler) deactivateLicense(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, licensesPanel, permissions.ActionWrite); !ok {
		return
	}
	lic, err := h.app.Licenses.Deactivate(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, http.StatusOK, "")
	writeJSON(w, http.StatusOK, lic)
}

// --- audit ---

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSetting(w, r, auditPanel, permissions.ActionRead); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// --- helpers ---

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	serviceErr := apperrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = apperrors.Internal("unexpected error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serviceErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    serviceErr.Code,
			"message": serviceErr.Message,
			"details": serviceErr.Details,
		},
	})
}
