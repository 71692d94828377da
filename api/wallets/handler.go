// Package wallets exposes the wallet factory over HTTP.
//
// The caller identity of mutating requests is read from the X-Caller header.
// Authenticating that header is left to the fronting proxy.
package wallets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
)

// CallerHeader carries the hex address of the requesting identity.
const CallerHeader = "X-Caller"

// Factory is the subset of wallet.Factory served over HTTP.
type Factory interface {
	CreateWallet(ctx context.Context, caller model.Address, user model.UserID, owner model.Address, salt model.Salt) (model.Address, error)
	DeployImplementation(ctx context.Context, caller model.Address) (model.Implementation, error)
	PredictWalletAddress(user model.UserID, salt model.Salt) model.Address
	Entry(ctx context.Context, user model.UserID) (registry.Entry, error)
	GetWalletOwner(ctx context.Context, wallet model.Address) (model.UserID, error)
	WalletExists(ctx context.Context, user model.UserID) bool
	InstanceOwner(ctx context.Context, wallet model.Address) (model.Address, error)
	Call(ctx context.Context, caller, wallet model.Address, method string, args []byte) ([]byte, error)
	Implementation() model.Implementation
}

// CreateRequest is the body of POST /api/wallets.
type CreateRequest struct {
	User  model.UserID  `json:"user"`
	Owner model.Address `json:"owner"`
	Salt  model.Salt    `json:"salt"`
}

// CallRequest is the body of POST /api/wallets/{wallet}/call.
type CallRequest struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type walletResponse struct {
	Wallet model.Address `json:"wallet"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// NewHandler returns the wallet API:
//
//	POST /api/wallets                    create a wallet
//	GET  /api/wallets/predict            ?user=&salt=
//	GET  /api/wallets/{wallet}/user      registered user of a wallet
//	GET  /api/wallets/{wallet}/owner     current owner read through the logic
//	POST /api/wallets/{wallet}/call      invoke a logic method
//	GET  /api/users/{user}/wallet        registry entry of a user
//	GET  /api/users/{user}/exists
//	GET  /api/implementations/current
//	POST /api/implementations            deploy the next version
func NewHandler(f Factory) http.Handler {
	h := &handler{f: f}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/wallets", h.create)
	mux.HandleFunc("GET /api/wallets/predict", h.predict)
	mux.HandleFunc("GET /api/wallets/{wallet}/user", h.walletUser)
	mux.HandleFunc("GET /api/wallets/{wallet}/owner", h.walletOwner)
	mux.HandleFunc("POST /api/wallets/{wallet}/call", h.call)
	mux.HandleFunc("GET /api/users/{user}/wallet", h.userWallet)
	mux.HandleFunc("GET /api/users/{user}/exists", h.userExists)
	mux.HandleFunc("GET /api/implementations/current", h.currentImplementation)
	mux.HandleFunc("POST /api/implementations", h.deployImplementation)
	return mux
}

type handler struct {
	f Factory
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	req, err := decodeCreate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := h.f.CreateWallet(r.Context(), caller, req.User, req.Owner, req.Salt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, walletResponse{Wallet: addr})
}

// createBody tells an absent field apart from an all-zero one.
type createBody struct {
	User  *model.UserID  `json:"user"`
	Owner *model.Address `json:"owner"`
	Salt  *model.Salt    `json:"salt"`
}

func decodeCreate(r *http.Request) (CreateRequest, error) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return CreateRequest{}, errors.Join(model.ErrInvalidInput, err)
	}
	switch {
	case body.User == nil:
		return CreateRequest{}, fmt.Errorf("%w: missing user", model.ErrInvalidInput)
	case body.Owner == nil:
		return CreateRequest{}, fmt.Errorf("%w: missing owner", model.ErrInvalidInput)
	case body.Salt == nil:
		return CreateRequest{}, fmt.Errorf("%w: missing salt", model.ErrInvalidInput)
	}
	return CreateRequest{User: *body.User, Owner: *body.Owner, Salt: *body.Salt}, nil
}

func (h *handler) predict(w http.ResponseWriter, r *http.Request) {
	user, err := model.ParseUserID(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, err)
		return
	}
	salt, err := model.ParseSalt(r.URL.Query().Get("salt"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Wallet: h.f.PredictWalletAddress(user, salt)})
}

func (h *handler) walletUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := model.ParseAddress(r.PathValue("wallet"))
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.f.GetWalletOwner(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.UserID{"user": user})
}

func (h *handler) walletOwner(w http.ResponseWriter, r *http.Request) {
	wallet, err := model.ParseAddress(r.PathValue("wallet"))
	if err != nil {
		writeError(w, err)
		return
	}
	owner, err := h.f.InstanceOwner(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Address{"owner": owner})
}

func (h *handler) call(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	wallet, err := model.ParseAddress(r.PathValue("wallet"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(model.ErrInvalidInput, err))
		return
	}
	out, err := h.f.Call(r.Context(), caller, wallet, req.Method, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"result": out})
}

func (h *handler) userWallet(w http.ResponseWriter, r *http.Request) {
	user, err := model.ParseUserID(r.PathValue("user"))
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.f.Entry(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handler) userExists(w http.ResponseWriter, r *http.Request) {
	user, err := model.ParseUserID(r.PathValue("user"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": h.f.WalletExists(r.Context(), user)})
}

func (h *handler) currentImplementation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.f.Implementation())
}

func (h *handler) deployImplementation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	impl, err := h.f.DeployImplementation(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, impl)
}

// callerOf parses the X-Caller header. A missing header yields the zero
// address, which no gate admits.
func callerOf(w http.ResponseWriter, r *http.Request) (model.Address, bool) {
	v := r.Header.Get(CallerHeader)
	if v == "" {
		return model.Address{}, true
	}
	caller, err := model.ParseAddress(v)
	if err != nil {
		writeError(w, err)
		return caller, false
	}
	return caller, true
}

// StatusCode maps the factory error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDeploymentFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusCode(err), errorResponse{Error: err.Error(), Reason: events.Reason(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
