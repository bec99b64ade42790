package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/core/service"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/port"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	auth      *service.AuthService
	inventory *service.InventoryDirectory
	store     port.RecordStore
	logger    logging.Logger
}

type credentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type signInResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type userResponse struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

func NewHTTPHandler(auth *service.AuthService, inventory *service.InventoryDirectory, store port.RecordStore, logger logging.Logger) *HTTPHandler {
	return &HTTPHandler{auth: auth, inventory: inventory, store: store, logger: logger}
}

func (h *HTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, statusResponse{Error: "Username and password are required"})
		return
	}

	err := h.auth.SignUp(r.Context(), username, password)
	if errors.Is(err, domain.ErrDuplicateUser) {
		writeJSON(w, http.StatusBadRequest, statusResponse{Error: "User already exists"})
		return
	}
	if err != nil {
		h.internalError(w, r, "signup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, statusResponse{Error: "Username and password are required"})
		return
	}

	user, err := h.auth.SignIn(r.Context(), username, password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, statusResponse{Error: "Invalid credentials"})
		return
	}
	if err != nil {
		h.internalError(w, r, "signin failed", err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		Success: true,
		User:    userResponse{Username: user.Username, Role: user.Role},
	})
}

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		h.internalError(w, r, "list inventory failed", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeRecord(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, statusResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.inventory.AddItem(r.Context(), fields); err != nil {
		h.internalError(w, r, "create item failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, statusResponse{Success: true})
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeRecord(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, statusResponse{Error: "invalid request body"})
		return
	}

	if err := h.inventory.UpdateItem(r.Context(), mux.Vars(r)["id"], fields); err != nil {
		h.internalError(w, r, "update item failed", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.internalError(w, r, "delete item failed", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(r.Context(), msg, "error", err, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusInternalServerError, statusResponse{Error: "internal error"})
}

func decodeCredentials(r *http.Request) (username, password string, ok bool) {
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return "", "", false
	}
	if req.Username == nil || req.Password == nil {
		return "", "", false
	}
	return *req.Username, *req.Password, true
}

// decodeRecord reads a JSON object body, keeping numbers as json.Number.
func decodeRecord(r *http.Request) (domain.Record, bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	var fields domain.Record
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
