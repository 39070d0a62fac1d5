package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fintrack/fintrack/internal/handler/dto"
	"github.com/fintrack/fintrack/internal/service"
)

// AccountHandler handles HTTP requests for bank account operations.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// List handles GET /accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	accounts, err := h.svc.ListAccounts(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAccountListResponse(accounts))
}

// Get handles GET /accounts/{id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.svc.GetAccount(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAccountResponse(account))
}

// Transactions handles GET /accounts/{id}/transactions.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	page, err := h.svc.GetTransactions(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsResponse{ResponseAPI: page})
}

// Create handles POST /accounts. Success carries no body.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.svc.CreateAccount(r.Context(), identity.UserID, service.CreateAccountInput{
		Institution: req.Institution,
		Username:    req.Username,
		Password:    req.Password,
	}); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Edit handles PATCH /accounts/{id}.
func (h *AccountHandler) Edit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.EditAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.svc.EditAccount(r.Context(), identity.UserID, chi.URLParam(r, "id"), service.EditAccountInput{
		Institution: req.Institution,
		Link:        req.Link,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAccountResponse(account))
}

// Delete handles DELETE /accounts/{id}.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), identity.UserID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
