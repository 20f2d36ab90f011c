package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// chatMockStore implements store.Store with just the sub-stores the chat
// service touches.
type chatMockStore struct {
	mu       sync.Mutex
	clients  map[string]*models.Client
	messages []*models.Message
	nextSeq  int64
}

var _ store.Store = (*chatMockStore)(nil)

func newChatMockStore() *chatMockStore {
	return &chatMockStore{clients: make(map[string]*models.Client)}
}

func (m *chatMockStore) Agents() store.AgentStore           { return nil }
func (m *chatMockStore) Clients() store.ClientStore         { return &chatClientStore{m} }
func (m *chatMockStore) Invitations() store.InvitationStore { return nil }
func (m *chatMockStore) Tasks() store.TaskStore             { return nil }
func (m *chatMockStore) Housing() store.HousingStore        { return nil }
func (m *chatMockStore) Messages() store.MessageStore       { return &chatMessageStore{m} }
func (m *chatMockStore) Listings() store.ListingStore       { return nil }
func (m *chatMockStore) Documents() store.DocumentStore     { return nil }

func (m *chatMockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *chatMockStore) Close() error { return nil }

type chatClientStore struct{ m *chatMockStore }

func (s *chatClientStore) Create(ctx context.Context, client *models.Client) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.clients[client.ID] = client
	return nil
}

func (s *chatClientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	client, ok := s.m.clients[id]
	if !ok {
		return nil, nil
	}
	copied := *client
	return &copied, nil
}

func (s *chatClientStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Client, error) {
	return nil, nil
}

func (s *chatClientStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Client, error) {
	return nil, nil
}

func (s *chatClientStore) Update(ctx context.Context, client *models.Client) error { return nil }

func (s *chatClientStore) Assign(ctx context.Context, clientID, agentID, invitationToken string) (bool, error) {
	return false, nil
}

func (s *chatClientStore) Count(ctx context.Context) (int, int, error) { return 0, 0, nil }

type chatMessageStore struct{ m *chatMockStore }

func (s *chatMessageStore) Create(ctx context.Context, msg *models.Message) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.nextSeq++
	msg.Seq = s.m.nextSeq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	copied := *msg
	s.m.messages = append(s.m.messages, &copied)
	return nil
}

func (s *chatMessageStore) ListAfter(ctx context.Context, clientID string, after int64, limit int) ([]*models.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*models.Message
	for _, msg := range s.m.messages {
		if msg.ClientID == clientID && msg.Seq > after {
			copied := *msg
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func seedConversation(st *chatMockStore) (client auth.CallerIdentity, agent auth.CallerIdentity) {
	agentID := "agent-1"
	st.clients["client-1"] = &models.Client{ID: "client-1", AgentID: &agentID}
	client = auth.CallerIdentity{UserID: "client-1", Role: models.RoleClient}
	agent = auth.CallerIdentity{UserID: agentID, Role: models.RoleAgent}
	return client, agent
}

func TestSendAndPoll(t *testing.T) {
	ctx := context.Background()
	st := newChatMockStore()
	svc := NewService(st, 0, slog.Default())
	client, agent := seedConversation(st)

	msg, err := svc.Send(ctx, client, "client-1", "hello, when do we start?")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)

	_, err = svc.Send(ctx, agent, "client-1", "hi! next week works.")
	require.NoError(t, err)

	messages, next, err := svc.Poll(ctx, client, "client-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(2), next)
	assert.Equal(t, models.RoleClient, messages[0].SenderRole)
	assert.Equal(t, models.RoleAgent, messages[1].SenderRole)

	// Cursor resumes where the last poll stopped.
	messages, next, err = svc.Poll(ctx, client, "client-1", next)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, int64(2), next)
}

// Polling with the cursor of the last seen message returns exactly the
// messages sent after it, in order.
func TestPollCursorProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("poll(after=seen) returns the unseen suffix in order", prop.ForAll(
		func(total, seen int) bool {
			if seen > total {
				seen = total
			}
			st := newChatMockStore()
			svc := NewService(st, 0, slog.Default())
			client, _ := seedConversation(st)

			var cursor int64
			for i := 0; i < total; i++ {
				msg, err := svc.Send(ctx, client, "client-1", fmt.Sprintf("message %d", i))
				if err != nil {
					return false
				}
				if i == seen-1 {
					cursor = msg.Seq
				}
			}

			messages, _, err := svc.Poll(ctx, client, "client-1", cursor)
			if err != nil {
				return false
			}
			if len(messages) != total-seen {
				return false
			}
			for i, msg := range messages {
				if msg.Body != fmt.Sprintf("message %d", seen+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestChatAuthorization(t *testing.T) {
	ctx := context.Background()
	st := newChatMockStore()
	svc := NewService(st, 0, slog.Default())
	_, agent := seedConversation(st)
	st.clients["loner"] = &models.Client{ID: "loner"}

	tests := []struct {
		name     string
		caller   auth.CallerIdentity
		clientID string
		wantErr  error
	}{
		{"other client rejected", auth.CallerIdentity{UserID: "client-2", Role: models.RoleClient}, "client-1", ErrNotParticipant},
		{"unassigned agent rejected", auth.CallerIdentity{UserID: "agent-2", Role: models.RoleAgent}, "client-1", ErrNotParticipant},
		{"admin is not a participant", auth.CallerIdentity{UserID: "admin", Role: models.RoleAdmin}, "client-1", ErrNotParticipant},
		{"unknown client", agent, "nope", ErrClientNotFound},
		{"unassigned client has no conversation", auth.CallerIdentity{UserID: "loner", Role: models.RoleClient}, "loner", ErrNoAgentAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, tt.caller, tt.clientID, "hello")
			assert.ErrorIs(t, err, tt.wantErr)

			_, _, err = svc.Poll(ctx, tt.caller, tt.clientID, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	st := newChatMockStore()
	svc := NewService(st, 0, slog.Default())
	client, _ := seedConversation(st)

	_, err := svc.Send(ctx, client, "client-1", "   ")
	assert.ErrorIs(t, err, models.ErrMessageBodyRequired)
}
