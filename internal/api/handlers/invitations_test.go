package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/invite"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// handlerMockStore implements the agent, client, and invitation stores in
// memory. The other sub-stores are unused by these tests.
type handlerMockStore struct {
	mu          sync.Mutex
	agents      map[string]*models.Agent
	clients     map[string]*models.Client
	invitations map[string]*models.Invitation
	housing     map[string]*models.HousingPreference
}

var _ store.Store = (*handlerMockStore)(nil)

func newHandlerMockStore() *handlerMockStore {
	return &handlerMockStore{
		agents:      make(map[string]*models.Agent),
		clients:     make(map[string]*models.Client),
		invitations: make(map[string]*models.Invitation),
		housing:     make(map[string]*models.HousingPreference),
	}
}

func (m *handlerMockStore) Agents() store.AgentStore           { return &hmAgentStore{m} }
func (m *handlerMockStore) Clients() store.ClientStore         { return &hmClientStore{m} }
func (m *handlerMockStore) Invitations() store.InvitationStore { return &hmInvitationStore{m} }
func (m *handlerMockStore) Tasks() store.TaskStore             { return nil }
func (m *handlerMockStore) Housing() store.HousingStore        { return &hmHousingStore{m} }
func (m *handlerMockStore) Messages() store.MessageStore       { return nil }
func (m *handlerMockStore) Listings() store.ListingStore       { return nil }
func (m *handlerMockStore) Documents() store.DocumentStore     { return nil }

func (m *handlerMockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *handlerMockStore) Close() error { return nil }

type hmAgentStore struct{ m *handlerMockStore }

func (s *hmAgentStore) Create(ctx context.Context, agent *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	copied := *agent
	s.m.agents[agent.ID] = &copied
	return nil
}

func (s *hmAgentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	agent, ok := s.m.agents[id]
	if !ok {
		return nil, nil
	}
	copied := *agent
	return &copied, nil
}

func (s *hmAgentStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, agent := range s.m.agents {
		if agent.IdentityRef == ref {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *hmAgentStore) List(ctx context.Context) ([]*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var agents []*models.Agent
	for _, agent := range s.m.agents {
		copied := *agent
		agents = append(agents, &copied)
	}
	return agents, nil
}

func (s *hmAgentStore) Update(ctx context.Context, agent *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	copied := *agent
	s.m.agents[agent.ID] = &copied
	return nil
}

func (s *hmAgentStore) Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	agent, ok := s.m.agents[id]
	if !ok {
		return false, nil
	}
	if !agent.Approved {
		agent.Approved = true
		agent.ApprovedAt = &approvedAt
	}
	return true, nil
}

func (s *hmAgentStore) CountByApproval(ctx context.Context, approved bool) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	count := 0
	for _, agent := range s.m.agents {
		if agent.Approved == approved {
			count++
		}
	}
	return count, nil
}

type hmClientStore struct{ m *handlerMockStore }

func (s *hmClientStore) Create(ctx context.Context, client *models.Client) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	copied := *client
	s.m.clients[client.ID] = &copied
	return nil
}

func (s *hmClientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	client, ok := s.m.clients[id]
	if !ok {
		return nil, nil
	}
	copied := *client
	return &copied, nil
}

func (s *hmClientStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, client := range s.m.clients {
		if client.IdentityRef == ref {
			copied := *client
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *hmClientStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var clients []*models.Client
	for _, client := range s.m.clients {
		if client.AgentID != nil && *client.AgentID == agentID {
			copied := *client
			clients = append(clients, &copied)
		}
	}
	return clients, nil
}

func (s *hmClientStore) Update(ctx context.Context, client *models.Client) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	copied := *client
	s.m.clients[client.ID] = &copied
	return nil
}

func (s *hmClientStore) Assign(ctx context.Context, clientID, agentID, invitationToken string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	client, ok := s.m.clients[clientID]
	if !ok || client.AgentID != nil {
		return false, nil
	}
	client.AgentID = &agentID
	client.InvitationToken = &invitationToken
	return true, nil
}

func (s *hmClientStore) Count(ctx context.Context) (int, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	total, assigned := 0, 0
	for _, client := range s.m.clients {
		total++
		if client.AgentID != nil {
			assigned++
		}
	}
	return total, assigned, nil
}

type hmHousingStore struct{ m *handlerMockStore }

func (s *hmHousingStore) Get(ctx context.Context, clientID string) (*models.HousingPreference, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pref, ok := s.m.housing[clientID]
	if !ok {
		return nil, nil
	}
	copied := *pref
	return &copied, nil
}

func (s *hmHousingStore) Upsert(ctx context.Context, pref *models.HousingPreference) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	copied := *pref
	s.m.housing[pref.ClientID] = &copied
	return nil
}

type hmInvitationStore struct{ m *handlerMockStore }

func (s *hmInvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.Code = strings.ToUpper(inv.Code)
	copied := *inv
	s.m.invitations[inv.ID] = &copied
	return nil
}

func (s *hmInvitationStore) Get(ctx context.Context, id string) (*models.Invitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (s *hmInvitationStore) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	code = strings.ToUpper(code)
	for _, inv := range s.m.invitations {
		if inv.Code == code {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *hmInvitationStore) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, inv := range s.m.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *hmInvitationStore) CodeExists(ctx context.Context, code string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	code = strings.ToUpper(code)
	for _, inv := range s.m.invitations {
		if inv.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *hmInvitationStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Invitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var invs []*models.Invitation
	for _, inv := range s.m.invitations {
		if inv.AgentID == agentID {
			copied := *inv
			invs = append(invs, &copied)
		}
	}
	return invs, nil
}

func (s *hmInvitationStore) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok || inv.UsedAt != nil {
		return false, nil
	}
	inv.UsedAt = &usedAt
	return true, nil
}

func (s *hmInvitationStore) Delete(ctx context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok || inv.UsedAt != nil {
		return false, nil
	}
	delete(s.m.invitations, id)
	return true, nil
}

// newInvitationTestRouter wires the invitation routes the way the server
// does, with a middleware that stamps the given caller on each request.
func newInvitationTestRouter(st store.Store, caller auth.CallerIdentity) chi.Router {
	h := NewInvitationsHandler(st, invite.NewService(st, slog.Default()), slog.Default())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithCaller(req.Context(), caller)))
		})
	})
	r.Post("/v1/invitations", h.Create)
	r.Get("/v1/invitations", h.List)
	r.Delete("/v1/invitations/{invitationID}", h.Revoke)
	r.Post("/v1/invitations/redeem", h.Redeem)
	r.Get("/auth/invite/{code}", h.Check)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateInvitationEndpoint(t *testing.T) {
	st := newHandlerMockStore()
	agent := &models.Agent{Name: "Maria", Email: "maria@example.com", Approved: true}
	require.NoError(t, st.Agents().Create(context.Background(), agent))

	router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: agent.ID, Role: models.RoleAgent})

	rec := doJSON(t, router, http.MethodPost, "/v1/invitations", map[string]any{"validity_days": 14})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	code, _ := body["code"].(string)
	assert.Len(t, code, invite.CodeLength)
	assert.Equal(t, strings.ToUpper(code), code)

	rec = doJSON(t, router, http.MethodGet, "/v1/invitations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)["invitations"].([]any)
	assert.Len(t, listed, 1)
}

func TestCreateInvitationValidityRejected(t *testing.T) {
	st := newHandlerMockStore()
	agent := &models.Agent{Name: "Maria", Approved: true}
	require.NoError(t, st.Agents().Create(context.Background(), agent))

	router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: agent.ID, Role: models.RoleAgent})

	for _, days := range []int{-1, 91, 365} {
		rec := doJSON(t, router, http.MethodPost, "/v1/invitations", map[string]any{"validity_days": days})
		require.Equal(t, http.StatusBadRequest, rec.Code, "validity_days=%d", days)
		body := decodeBody(t, rec)
		assert.Equal(t, "validity_days must be between 1 and 90", body["message"])
	}
}

// TestRedeemEndpointStatusMapping checks that each redemption failure
// surfaces as its own status code and message. In particular an expired
// code and a consumed code must never report the same thing.
func TestRedeemEndpointStatusMapping(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, approved bool, expiresIn time.Duration) (*handlerMockStore, *models.Client, *models.Invitation) {
		st := newHandlerMockStore()
		agent := &models.Agent{Name: "Maria", Email: "maria@example.com", Approved: approved}
		require.NoError(t, st.Agents().Create(ctx, agent))
		client := &models.Client{Name: "Jonas", Email: "jonas@example.com"}
		require.NoError(t, st.Clients().Create(ctx, client))
		inv := &models.Invitation{
			Code:      "ABC234",
			Token:     uuid.New().String(),
			AgentID:   agent.ID,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(expiresIn),
		}
		require.NoError(t, st.Invitations().Create(ctx, inv))
		return st, client, inv
	}

	t.Run("successful redemption", func(t *testing.T) {
		st, client, _ := setup(t, true, 24*time.Hour)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "abc234"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		agentPart := body["agent"].(map[string]any)
		assert.Equal(t, "Maria", agentPart["name"])

		stored, err := st.Clients().Get(ctx, client.ID)
		require.NoError(t, err)
		assert.True(t, stored.Assigned())
	})

	t.Run("unknown code", func(t *testing.T) {
		st, client, _ := setup(t, true, 24*time.Hour)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "ZZZZZZ"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Invalid invitation code", decodeBody(t, rec)["message"])
	})

	t.Run("expired code", func(t *testing.T) {
		st, client, _ := setup(t, true, -time.Hour)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "ABC234"})
		require.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "Invitation has expired; ask your agent for a new code", decodeBody(t, rec)["message"])
	})

	t.Run("consumed code", func(t *testing.T) {
		st, client, inv := setup(t, true, 24*time.Hour)
		used := time.Now()
		_, err := st.Invitations().MarkUsed(ctx, inv.ID, used)
		require.NoError(t, err)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "ABC234"})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Invitation has already been used", decodeBody(t, rec)["message"])
	})

	t.Run("unapproved agent", func(t *testing.T) {
		st, client, _ := setup(t, false, 24*time.Hour)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "ABC234"})
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "The inviting agent is not approved yet", decodeBody(t, rec)["message"])
	})

	t.Run("already assigned client", func(t *testing.T) {
		st, client, _ := setup(t, true, 24*time.Hour)
		other := uuid.New().String()
		ok, err := st.Clients().Assign(ctx, client.ID, other, uuid.New().String())
		require.NoError(t, err)
		require.True(t, ok)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{"code": "ABC234"})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "You already have an assigned agent", decodeBody(t, rec)["message"])
	})

	t.Run("missing code", func(t *testing.T) {
		st, client, _ := setup(t, true, 24*time.Hour)
		router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: client.ID, Role: models.RoleClient})

		rec := doJSON(t, router, http.MethodPost, "/v1/invitations/redeem", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckEndpoint(t *testing.T) {
	ctx := context.Background()
	st := newHandlerMockStore()
	agent := &models.Agent{Name: "Maria", Email: "maria@example.com", Approved: true}
	require.NoError(t, st.Agents().Create(ctx, agent))
	inv := &models.Invitation{
		Code:      "QRS789",
		Token:     uuid.New().String(),
		AgentID:   agent.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, st.Invitations().Create(ctx, inv))

	router := newInvitationTestRouter(st, auth.CallerIdentity{})

	rec := doJSON(t, router, http.MethodGet, "/auth/invite/qrs789", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "valid", body["status"])
	assert.Equal(t, "Maria", body["agent"].(map[string]any)["name"])

	rec = doJSON(t, router, http.MethodGet, "/auth/invite/NOPE22", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "not_found", body["status"])
	assert.NotContains(t, body, "agent")
}

func TestRevokeEndpoint(t *testing.T) {
	ctx := context.Background()
	st := newHandlerMockStore()
	agent := &models.Agent{Name: "Maria", Approved: true}
	require.NoError(t, st.Agents().Create(ctx, agent))
	inv := &models.Invitation{
		Code:      "TUV456",
		Token:     uuid.New().String(),
		AgentID:   agent.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, st.Invitations().Create(ctx, inv))

	router := newInvitationTestRouter(st, auth.CallerIdentity{UserID: agent.ID, Role: models.RoleAgent})

	rec := doJSON(t, router, http.MethodDelete, "/v1/invitations/"+inv.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/v1/invitations/"+inv.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
