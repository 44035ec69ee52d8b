package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-chat/internal/domain"
	"social-chat/internal/mention"
	"social-chat/internal/messaging"
	"social-chat/internal/middleware"
	"social-chat/internal/testutil"
)

type mentionFixture struct {
	users    *testutil.MockUserLookup
	mentions *testutil.MockMentionRepository
	sender   *testutil.MockNotificationSender
	handler  *MentionHandler
}

func newMentionFixture() *mentionFixture {
	f := &mentionFixture{
		users: testutil.NewMockUserLookup(
			testutil.NewTestUser(testutil.WithUserID(1), testutil.WithHandle("alice")),
			testutil.NewTestUser(testutil.WithUserID(2), testutil.WithHandle("bob")),
		),
		mentions: testutil.NewMockMentionRepository(),
		sender:   testutil.NewMockNotificationSender(),
	}
	f.handler = NewMentionHandler(mention.NewService(f.users, f.mentions, f.sender))
	return f
}

func asUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), domain.Identity{UserID: userID}))
}

func TestMentionHandler_Create(t *testing.T) {
	f := newMentionFixture()
	req := asUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", map[string]interface{}{
		"sourceId": 50, "sourceType": "POST", "text": "@bob @alice @nobody",
	}), 1)
	w := httptest.NewRecorder()

	f.handler.Create(w, req)

	testutil.AssertStatusCode(t, w, http.StatusCreated)
	resp := testutil.DecodeJSON[CreateMentionsResponse](t, w)
	require.Len(t, resp.Mentions, 1)
	assert.Equal(t, int64(2), resp.Mentions[0].MentionedUserID)
	assert.Equal(t, int64(1), resp.Mentions[0].CreatedByUserID)
	assert.Equal(t, domain.SourcePost, resp.Mentions[0].SourceType)

	events := f.sender.Published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ActionMentionPost, events[0].Action)
}

func TestMentionHandler_Create_NoMentions(t *testing.T) {
	f := newMentionFixture()
	req := asUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", map[string]interface{}{
		"sourceId": 50, "sourceType": "COMMENT", "text": "plain text",
	}), 1)
	w := httptest.NewRecorder()

	f.handler.Create(w, req)

	testutil.AssertStatusCode(t, w, http.StatusCreated)
	assert.JSONEq(t, `{"mentions":[]}`, w.Body.String())
}

func TestMentionHandler_Create_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown source type", map[string]interface{}{"sourceId": 1, "sourceType": "STORY", "text": "@bob"}},
		{"missing source id", map[string]interface{}{"sourceType": "POST", "text": "@bob"}},
		{"not an object", "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMentionFixture()
			w := httptest.NewRecorder()
			f.handler.Create(w, asUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", tt.body), 1))

			testutil.AssertStatusCode(t, w, http.StatusBadRequest)
			assert.Empty(t, f.mentions.All())
		})
	}
}

func TestMentionHandler_Create_Unauthenticated(t *testing.T) {
	f := newMentionFixture()
	w := httptest.NewRecorder()
	f.handler.Create(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", map[string]interface{}{
		"sourceId": 1, "sourceType": "POST", "text": "@bob",
	}))

	testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
}

func TestMentionHandler_Create_BrokerUnavailable(t *testing.T) {
	f := newMentionFixture()
	f.sender.PublishFunc = func(ctx context.Context, event *domain.NotificationEvent) error {
		return fmt.Errorf("%w: dial tcp: connection refused", messaging.ErrBrokerUnavailable)
	}

	w := httptest.NewRecorder()
	f.handler.Create(w, asUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", map[string]interface{}{
		"sourceId": 1, "sourceType": "POST", "text": "@bob",
	}), 1))

	testutil.AssertStatusCode(t, w, http.StatusBadGateway)
}

func TestMentionHandler_Create_PersistenceFailure(t *testing.T) {
	f := newMentionFixture()
	f.mentions.CreateFunc = func(ctx context.Context, m *domain.Mention) error {
		return testutil.ErrMockStore
	}

	w := httptest.NewRecorder()
	f.handler.Create(w, asUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/mentions", map[string]interface{}{
		"sourceId": 1, "sourceType": "POST", "text": "@bob",
	}), 1))

	testutil.AssertStatusCode(t, w, http.StatusInternalServerError)
	assert.Empty(t, f.sender.Published())
}
