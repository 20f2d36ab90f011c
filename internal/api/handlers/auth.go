package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/identity"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
	"github.com/relohub/platform/pkg/config"
)

// AuthHandler handles registration and login. Credentials live in the
// external identity provider; the handler links provider principals to
// local agent/client records and issues session tokens.
type AuthHandler struct {
	store    store.Store
	auth     *auth.Service
	identity identity.Provider
	admin    config.AdminConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st store.Store, authSvc *auth.Service, provider identity.Provider, admin config.AdminConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    st,
		auth:     authSvc,
		identity: provider,
		admin:    admin,
		logger:   logger,
	}
}

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Company  string      `json:"company,omitempty"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// Register creates a provider user plus the matching local record. Agents
// start unapproved; clients start unassigned.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		WriteBadRequest(w, "email, password and name are required")
		return
	}
	if req.Role != models.RoleClient && req.Role != models.RoleAgent {
		WriteBadRequest(w, "role must be client or agent")
		return
	}

	principal, err := h.identity.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			WriteConflict(w, "Email already registered")
		case errors.Is(err, identity.ErrUnavailable):
			h.logger.Error("identity provider unavailable", "error", err)
			WriteError(w, http.StatusBadGateway, ErrCodeUpstreamFailure, "Identity provider unavailable")
		default:
			h.logger.Error("registration failed", "error", err)
			WriteInternalError(w, "Registration failed")
		}
		return
	}

	localID, err := h.createLocalRecord(r, req, principal)
	if err != nil {
		h.logger.Error("failed to create local record", "error", err, "ref", principal.Ref)
		WriteInternalError(w, "Registration failed")
		return
	}

	token, err := h.auth.GenerateToken(localID, principal.Email, req.Role)
	if err != nil {
		WriteInternalError(w, "Failed to issue session token")
		return
	}

	WriteJSON(w, http.StatusCreated, sessionResponse{
		Token: token,
		ID:    localID,
		Email: principal.Email,
		Name:  principal.Name,
		Role:  req.Role,
	})
}

func (h *AuthHandler) createLocalRecord(r *http.Request, req registerRequest, principal *identity.Principal) (string, error) {
	if req.Role == models.RoleAgent {
		agent := &models.Agent{
			IdentityRef: principal.Ref,
			Name:        req.Name,
			Email:       principal.Email,
			Company:     req.Company,
		}
		if err := h.store.Agents().Create(r.Context(), agent); err != nil {
			return "", err
		}
		return agent.ID, nil
	}

	client := &models.Client{
		IdentityRef: principal.Ref,
		Name:        req.Name,
		Email:       principal.Email,
	}
	if err := h.store.Clients().Create(r.Context(), client); err != nil {
		return "", err
	}
	return client.ID, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role selects which record to create when a provider user signs in for
	// the first time without a local record.
	Role models.Role `json:"role,omitempty"`
}

// Login verifies credentials and issues a session token. The local admin
// account is checked first; everything else goes through the identity
// provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "email and password are required")
		return
	}

	if h.admin.Email != "" && strings.EqualFold(req.Email, h.admin.Email) {
		h.loginAdmin(w, req)
		return
	}

	principal, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, identity.ErrUnavailable):
			h.logger.Error("identity provider unavailable", "error", err)
			WriteError(w, http.StatusBadGateway, ErrCodeUpstreamFailure, "Identity provider unavailable")
		default:
			h.logger.Error("login failed", "error", err)
			WriteInternalError(w, "Login failed")
		}
		return
	}

	id, name, role, err := h.resolvePrincipal(r, principal, req.Role)
	if err != nil {
		if errors.Is(err, errNoLocalAccount) {
			WriteForbidden(w, "No platform account for this user; register first")
			return
		}
		h.logger.Error("failed to resolve principal", "error", err, "ref", principal.Ref)
		WriteInternalError(w, "Login failed")
		return
	}

	token, err := h.auth.GenerateToken(id, principal.Email, role)
	if err != nil {
		WriteInternalError(w, "Failed to issue session token")
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		ID:    id,
		Email: principal.Email,
		Name:  name,
		Role:  role,
	})
}

func (h *AuthHandler) loginAdmin(w http.ResponseWriter, req loginRequest) {
	if err := auth.VerifyPassword(h.admin.PasswordHash, req.Password); err != nil {
		WriteUnauthorized(w, "Invalid credentials")
		return
	}

	token, err := h.auth.GenerateToken("admin", h.admin.Email, models.RoleAdmin)
	if err != nil {
		WriteInternalError(w, "Failed to issue session token")
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		ID:    "admin",
		Email: h.admin.Email,
		Name:  "Administrator",
		Role:  models.RoleAdmin,
	})
}

var errNoLocalAccount = errors.New("no local account")

// resolvePrincipal finds the local record behind a provider principal,
// creating one on first sign-in when the caller named a role.
func (h *AuthHandler) resolvePrincipal(r *http.Request, principal *identity.Principal, firstSignInRole models.Role) (id, name string, role models.Role, err error) {
	agent, err := h.store.Agents().GetByIdentityRef(r.Context(), principal.Ref)
	if err != nil {
		return "", "", "", err
	}
	if agent != nil {
		return agent.ID, agent.Name, models.RoleAgent, nil
	}

	client, err := h.store.Clients().GetByIdentityRef(r.Context(), principal.Ref)
	if err != nil {
		return "", "", "", err
	}
	if client != nil {
		return client.ID, client.Name, models.RoleClient, nil
	}

	switch firstSignInRole {
	case models.RoleAgent:
		agent := &models.Agent{IdentityRef: principal.Ref, Name: principal.Name, Email: principal.Email}
		if err := h.store.Agents().Create(r.Context(), agent); err != nil {
			return "", "", "", err
		}
		h.logger.Info("agent created on first sign-in", "agent_id", agent.ID)
		return agent.ID, agent.Name, models.RoleAgent, nil
	case models.RoleClient:
		client := &models.Client{IdentityRef: principal.Ref, Name: principal.Name, Email: principal.Email}
		if err := h.store.Clients().Create(r.Context(), client); err != nil {
			return "", "", "", err
		}
		return client.ID, client.Name, models.RoleClient, nil
	}
	return "", "", "", errNoLocalAccount
}
