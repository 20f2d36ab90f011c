package invite

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// mockStore implements store.Store in memory. A single mutex guards all
// maps so the conditional writes (Assign, MarkUsed, Delete) are atomic,
// matching the row-level guarantees the real store provides.
type mockStore struct {
	mu          sync.Mutex
	agents      map[string]*models.Agent
	clients     map[string]*models.Client
	invitations map[string]*models.Invitation
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		agents:      make(map[string]*models.Agent),
		clients:     make(map[string]*models.Client),
		invitations: make(map[string]*models.Invitation),
	}
}

func (m *mockStore) Agents() store.AgentStore           { return &mockAgentStore{m} }
func (m *mockStore) Clients() store.ClientStore         { return &mockClientStore{m} }
func (m *mockStore) Invitations() store.InvitationStore { return &mockInvitationStore{m} }
func (m *mockStore) Tasks() store.TaskStore             { return nil }
func (m *mockStore) Housing() store.HousingStore        { return nil }
func (m *mockStore) Messages() store.MessageStore       { return nil }
func (m *mockStore) Listings() store.ListingStore       { return nil }
func (m *mockStore) Documents() store.DocumentStore     { return nil }

func (m *mockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

// Seed helpers. They take the lock so tests can seed while other
// goroutines run.

func (m *mockStore) addAgent(agent *models.Agent) *models.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	m.agents[agent.ID] = agent
	return agent
}

func (m *mockStore) addClient(client *models.Client) *models.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	m.clients[client.ID] = client
	return client
}

type mockAgentStore struct{ m *mockStore }

func (s *mockAgentStore) Create(ctx context.Context, agent *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	copied := *agent
	s.m.agents[agent.ID] = &copied
	return nil
}

func (s *mockAgentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	agent, ok := s.m.agents[id]
	if !ok {
		return nil, nil
	}
	copied := *agent
	return &copied, nil
}

func (s *mockAgentStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Agent, error) {
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

func (s *mockAgentStore) List(ctx context.Context) ([]*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var agents []*models.Agent
	for _, agent := range s.m.agents {
		copied := *agent
		agents = append(agents, &copied)
	}
	return agents, nil
}

func (s *mockAgentStore) Update(ctx context.Context, agent *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	copied := *agent
	s.m.agents[agent.ID] = &copied
	return nil
}

func (s *mockAgentStore) Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error) {
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

func (s *mockAgentStore) CountByApproval(ctx context.Context, approved bool) (int, error) {
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

type mockClientStore struct{ m *mockStore }

func (s *mockClientStore) Create(ctx context.Context, client *models.Client) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	copied := *client
	s.m.clients[client.ID] = &copied
	return nil
}

func (s *mockClientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	client, ok := s.m.clients[id]
	if !ok {
		return nil, nil
	}
	copied := *client
	return &copied, nil
}

func (s *mockClientStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Client, error) {
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

func (s *mockClientStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Client, error) {
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

func (s *mockClientStore) Update(ctx context.Context, client *models.Client) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	copied := *client
	s.m.clients[client.ID] = &copied
	return nil
}

func (s *mockClientStore) Assign(ctx context.Context, clientID, agentID, invitationToken string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	client, ok := s.m.clients[clientID]
	if !ok || client.AgentID != nil {
		return false, nil
	}
	client.AgentID = &agentID
	client.InvitationToken = &invitationToken
	client.UpdatedAt = time.Now()
	return true, nil
}

func (s *mockClientStore) Count(ctx context.Context) (int, int, error) {
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

type mockInvitationStore struct{ m *mockStore }

func (s *mockInvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
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

func (s *mockInvitationStore) Get(ctx context.Context, id string) (*models.Invitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (s *mockInvitationStore) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
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

func (s *mockInvitationStore) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
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

func (s *mockInvitationStore) CodeExists(ctx context.Context, code string) (bool, error) {
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

func (s *mockInvitationStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Invitation, error) {
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

func (s *mockInvitationStore) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok || inv.UsedAt != nil {
		return false, nil
	}
	inv.UsedAt = &usedAt
	return true, nil
}

func (s *mockInvitationStore) Delete(ctx context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv, ok := s.m.invitations[id]
	if !ok || inv.UsedAt != nil {
		return false, nil
	}
	delete(s.m.invitations, id)
	return true, nil
}
