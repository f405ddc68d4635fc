package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/auth"
	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/directory"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/mention"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/repository/repotest"
	"github.com/weiawesome/wes-cook-live/internal/room"
	"github.com/weiawesome/wes-cook-live/internal/service"
	"github.com/weiawesome/wes-cook-live/pkg/jwt"
	"github.com/weiawesome/wes-cook-live/pkg/middleware"
)

var testWS = config.WebSocketConfig{
	PingInterval:   time.Second,
	PongWait:       5 * time.Second,
	WriteWait:      time.Second,
	MaxMessageSize: 4096,
	SendBuffer:     64,
}

type fixture struct {
	router  *gin.Engine
	tokens  *jwt.Manager
	hub     *hub.Hub
	users   *repotest.Users
	notes   *repotest.Notifications
	chatLog *repotest.ChatLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repotest.NewUsers(
		&domain.User{ID: "A", Email: "alice@cook.io", Username: "alice", Role: domain.RoleChef},
		&domain.User{ID: "B", Email: "bob@cook.io", Username: "bob", Role: domain.RoleUser},
		&domain.User{ID: "Z", Email: "root@cook.io", Username: "root", Role: domain.RoleAdmin},
	)
	recipes := repotest.NewRecipes(&domain.Recipe{ID: "R1", Title: "Ramen", ChefID: "A"})
	notes := repotest.NewNotifications()
	chatLog := repotest.NewChatLog()

	tokens, err := jwt.NewManager("handler-secret", time.Hour, "test")
	require.NoError(t, err)

	h := hub.NewHub(testWS)
	tracker := room.NewTracker()
	seq := room.NewSequencer(room.SequencerConfig{})
	t.Cleanup(seq.Close)

	dir := directory.New(users, nil, 0)
	authn := auth.NewAuthenticator(tokens, dir)
	dispatcher := notify.NewDispatcher(notes, dir, notify.NewLocalPusher(h))
	mentions := mention.NewResolver(dir, dispatcher, "cook.io")

	cooking := service.NewCookingService(service.CookingDeps{
		Hub:       h,
		Tracker:   tracker,
		Sequencer: seq,
		Recipes:   recipes,
		ChatLog:   chatLog,
		Notifier:  dispatcher,
		Mentions:  mentions,
	})

	r := gin.New()
	NewWSHandler(h, cooking, authn, testWS).RegisterRoutes(r)
	NewHandler(
		cooking,
		service.NewRecipeService(recipes, repotest.NewSocial(), tracker, dispatcher, mentions, nil),
		service.NewUserService(users, nil, dispatcher),
		dispatcher,
		middleware.NewAuthMiddleware(authn),
	).RegisterRoutes(r)

	return &fixture{router: r, tokens: tokens, hub: h, users: users, notes: notes, chatLog: chatLog}
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(userID, "", "", domain.RoleUser)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.AuthHeaderKey, "Bearer "+f.token(t, userID))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func newExpiredToken() (string, error) {
	m, err := jwt.NewManager("handler-secret", -time.Minute, "test")
	if err != nil {
		return "", err
	}
	token, _, err := m.GenerateToken("A", "", "", domain.RoleUser)
	return token, err
}
