package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "guildmint/internal/adapter/http/handler"
	"guildmint/internal/adapter/http/middleware"
	redisStorage "guildmint/internal/adapter/storage/redis"
	"guildmint/internal/core/ports"
	"guildmint/internal/service"
	"guildmint/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack: the real HTTP layer, middleware,
// handlers and services, backed by in-memory repos and miniredis. The note
// redemption guard and the argon2id admin gate run against their real
// implementations.

const testAdminKey = "integration-admin-key"

type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	rdb      *goredis.Client
	queue    *service.AuditQueue
	sink     *inMemoryAuditSink
	platform *stubPlatform
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	accountRepo := newInMemoryAccountRepo()
	groupRepo := newInMemoryGroupRepo()
	currencyRepo := newInMemoryCurrencyRepo()
	rateRepo := newInMemoryRateRepo()
	walletRepo := newInMemoryWalletRepo(accountRepo, currencyRepo)
	noteRepo := newInMemoryNoteRepo()
	transactor := newSerialTransactor()

	sink := newInMemoryAuditSink()
	platform := newStubPlatform()

	log := logger.New("error", false)
	queue := service.NewAuditQueue(sink, platform, 20*time.Millisecond, 100, 100, log)
	queue.Start(context.Background())

	hashSvc := service.NewArgon2HashService()
	adminHash, err := hashSvc.Hash(testAdminKey)
	require.NoError(t, err)

	tokenSvc := service.NewJWTNoteTokenService("integration-note-secret", "guildmint-test")
	noteLock := redisStorage.NewNoteLock(rdb)
	engine := service.NewExchangeEngine(rateRepo)

	ledgerSvc := service.NewLedgerService(accountRepo, currencyRepo, walletRepo, engine, transactor, queue, log)
	noteSvc := service.NewNoteService(accountRepo, currencyRepo, walletRepo, noteRepo, tokenSvc, noteLock, 30*time.Second, transactor, queue, log)
	registrySvc := service.NewRegistryService(groupRepo, currencyRepo, rateRepo, transactor, log)
	identitySvc := service.NewIdentityService(accountRepo, groupRepo, transactor, platform, log)
	leaderboardSvc := service.NewLeaderboardService(currencyRepo, walletRepo, rateRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		NoteSvc:        noteSvc,
		RegistrySvc:    registrySvc,
		IdentitySvc:    identitySvc,
		LeaderboardSvc: leaderboardSvc,
		HashSvc:        hashSvc,
		AdminKeyHash:   adminHash,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:   server,
		redis:    mr,
		rdb:      rdb,
		queue:    queue,
		sink:     sink,
		platform: platform,
	}
}

func (a *testApp) close() {
	a.server.Close()
	_ = a.queue.Close(context.Background())
	_ = a.rdb.Close()
	a.redis.Close()
}

// request sends a JSON request; admin requests carry the admin key header.
func (a *testApp) request(t *testing.T, method, path, body string, admin bool) *http.Response {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, a.server.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.HeaderAdminKey, testAdminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeData unwraps the standard success envelope.
func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", envelope)
	return data
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	code, _ := envelope["error_code"].(string)
	return code
}

// setupEconomy onboards a guild and registers two currencies in its group.
// Returns (groupID, goldID, silverID); gold is the primary currency.
func setupEconomy(t *testing.T, app *testApp) (string, string, string) {
	t.Helper()

	resp := app.request(t, "POST", "/api/v1/admin/guilds", `{"external_guild_id":"guild-42"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groupID := decodeData(t, resp)["single_group_id"].(string)

	resp = app.request(t, "POST", "/api/v1/admin/groups/"+groupID+"/currencies", `{"display_name":"Gold"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	gold := decodeData(t, resp)
	require.Equal(t, true, gold["is_primary"])

	resp = app.request(t, "POST", "/api/v1/admin/groups/"+groupID+"/currencies", `{"display_name":"Silver"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	silver := decodeData(t, resp)
	require.Equal(t, false, silver["is_primary"])

	return groupID, gold["id"].(string), silver["id"].(string)
}

func (a *testApp) mint(t *testing.T, externalID, currencyID string, amount int64) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"external_id":%q,"currency_id":%q,"amount":%d}`, externalID, currencyID, amount)
	resp := a.request(t, "POST", "/api/v1/admin/ledger/mint", body, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeData(t, resp)
}

func (a *testApp) balances(t *testing.T, externalID string) map[string]int64 {
	t.Helper()
	resp := a.request(t, "GET", "/api/v1/accounts/"+externalID+"/balances", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	raw, _ := data["balances"].(map[string]interface{})
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		out[k] = int64(v.(float64))
	}
	return out
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_AdminAuthRequired(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body := `{"external_id":"alice","currency_id":"7a9f1b9e-0000-0000-0000-000000000000","amount":10}`

	// No key
	resp := app.request(t, "POST", "/api/v1/admin/ledger/mint", body, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_001", errorCode(t, resp))

	// Wrong key
	req, _ := http.NewRequest("POST", app.server.URL+"/api/v1/admin/ledger/mint", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderAdminKey, "not-the-key")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	resp2.Body.Close()
}

func TestIntegration_GuildOnboardingIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.request(t, "POST", "/api/v1/admin/guilds", `{"external_guild_id":"guild-7"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeData(t, resp)
	assert.NotEmpty(t, first["guild_id"])
	assert.NotEmpty(t, first["single_group_id"])

	resp = app.request(t, "POST", "/api/v1/admin/guilds", `{"external_guild_id":"guild-7"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decodeData(t, resp)
	assert.Equal(t, first["guild_id"], second["guild_id"])
	assert.Equal(t, first["single_group_id"], second["single_group_id"])
}

func TestIntegration_MintTransferBalances(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, goldID, _ := setupEconomy(t, app)

	wallet := app.mint(t, "alice", goldID, 1000)
	assert.Equal(t, float64(1000), wallet["balance"])

	body := fmt.Sprintf(`{"from_external_id":"alice","to_external_id":"bob","currency_id":%q,"amount":250}`, goldID)
	resp := app.request(t, "POST", "/api/v1/ledger/transfer", body, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, int64(750), app.balances(t, "alice")[goldID])
	assert.Equal(t, int64(250), app.balances(t, "bob")[goldID])

	// Overspend is rejected and changes nothing.
	body = fmt.Sprintf(`{"from_external_id":"alice","to_external_id":"bob","currency_id":%q,"amount":751}`, goldID)
	resp = app.request(t, "POST", "/api/v1/ledger/transfer", body, false)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "LED_002", errorCode(t, resp))
	assert.Equal(t, int64(750), app.balances(t, "alice")[goldID])
}

func TestIntegration_BurnInsufficientBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, goldID, _ := setupEconomy(t, app)

	app.mint(t, "alice", goldID, 50)

	body := fmt.Sprintf(`{"external_id":"alice","currency_id":%q,"amount":51}`, goldID)
	resp := app.request(t, "POST", "/api/v1/admin/ledger/burn", body, true)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "LED_002", errorCode(t, resp))
	assert.Equal(t, int64(50), app.balances(t, "alice")[goldID])
}

func TestIntegration_ExchangeFloorsRemainder(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	groupID, goldID, silverID := setupEconomy(t, app)

	app.mint(t, "alice", goldID, 500)

	rateBody := fmt.Sprintf(`{"base_currency_id":%q,"quote_currency_id":%q,"rate":2.5}`, goldID, silverID)
	resp := app.request(t, "PUT", "/api/v1/admin/groups/"+groupID+"/rates", rateBody, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 101 * 2.5 = 252.5 -> 252 credited, the half unit is burned.
	exBody := fmt.Sprintf(`{"external_id":"alice","group_id":%q,"from_currency_id":%q,"to_currency_id":%q,"amount":101}`,
		groupID, goldID, silverID)
	resp = app.request(t, "POST", "/api/v1/ledger/exchange", exBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeData(t, resp)
	assert.Equal(t, float64(101), result["debited"])
	assert.Equal(t, float64(252), result["credited"])

	balances := app.balances(t, "alice")
	assert.Equal(t, int64(399), balances[goldID])
	assert.Equal(t, int64(252), balances[silverID])

	// The reverse direction is never inferred from the configured rate.
	revBody := fmt.Sprintf(`{"external_id":"alice","group_id":%q,"from_currency_id":%q,"to_currency_id":%q,"amount":10}`,
		groupID, silverID, goldID)
	resp = app.request(t, "POST", "/api/v1/ledger/exchange", revBody, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LED_004", errorCode(t, resp))
}

func TestIntegration_NoteLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, goldID, _ := setupEconomy(t, app)

	app.mint(t, "alice", goldID, 300)

	// Issue: alice is debited immediately.
	issueBody := fmt.Sprintf(`{"issuer_external_id":"alice","recipient_external_id":"bob","currency_id":%q,"amount":120}`, goldID)
	resp := app.request(t, "POST", "/api/v1/notes/issue", issueBody, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issued := decodeData(t, resp)
	token := issued["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, int64(180), app.balances(t, "alice")[goldID])

	// The wrong redeemer is rejected and the note stays live.
	redeemBody := fmt.Sprintf(`{"redeemer_external_id":"carol","token":%q}`, token)
	resp = app.request(t, "POST", "/api/v1/notes/redeem", redeemBody, false)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOTE_002", errorCode(t, resp))

	// The bound recipient redeems once.
	redeemBody = fmt.Sprintf(`{"redeemer_external_id":"bob","token":%q}`, token)
	resp = app.request(t, "POST", "/api/v1/notes/redeem", redeemBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	redeemed := decodeData(t, resp)
	assert.Equal(t, float64(120), redeemed["amount"])
	assert.Equal(t, int64(120), app.balances(t, "bob")[goldID])

	// Second redemption of the same token fails.
	resp = app.request(t, "POST", "/api/v1/notes/redeem", redeemBody, false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOTE_003", errorCode(t, resp))
	assert.Equal(t, int64(120), app.balances(t, "bob")[goldID])
}

func TestIntegration_TamperedNoteRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	redeemBody := `{"redeemer_external_id":"bob","token":"eyJhbGciOiJIUzI1NiJ9.forged.payload"}`
	resp := app.request(t, "POST", "/api/v1/notes/redeem", redeemBody, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "NOTE_001", errorCode(t, resp))
}

func TestIntegration_Leaderboard(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	groupID, goldID, silverID := setupEconomy(t, app)

	aliceWallet := app.mint(t, "alice", goldID, 100)
	app.mint(t, "bob", goldID, 40)
	app.mint(t, "bob", silverID, 50)

	// silver -> gold conversion for ranking purposes
	rateBody := fmt.Sprintf(`{"base_currency_id":%q,"quote_currency_id":%q,"rate":0.5}`, silverID, goldID)
	resp := app.request(t, "PUT", "/api/v1/admin/groups/"+groupID+"/rates", rateBody, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.request(t, "GET", "/api/v1/groups/"+groupID+"/leaderboard?currency="+goldID, "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decodeData(t, resp)
	entries := board["entries"].([]interface{})
	require.Len(t, entries, 2)

	first := entries[0].(map[string]interface{})
	second := entries[1].(map[string]interface{})
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, aliceWallet["account_id"], first["account_id"])
	assert.Equal(t, float64(100), first["converted_balance"])
	assert.Equal(t, float64(2), second["rank"])
	// bob: 40 gold + floor(50 * 0.5) silver = 65
	assert.Equal(t, float64(65), second["converted_balance"])
}

func TestIntegration_MemberSync(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.request(t, "POST", "/api/v1/admin/guilds", `{"external_guild_id":"guild-sync"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// 150 members force the sync to page through the directory.
	members := make([]string, 150)
	for i := range members {
		members[i] = fmt.Sprintf("member-%d", i)
	}
	app.platform.setMembers("guild-sync", members)

	resp = app.request(t, "POST", "/api/v1/admin/guilds/guild-sync/sync", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, float64(150), data["members_synced"])

	// Synced members resolve to accounts with empty balances.
	assert.Empty(t, app.balances(t, "member-149"))
}

func TestIntegration_AuditTrailFlushes(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, goldID, _ := setupEconomy(t, app)

	app.mint(t, "alice", goldID, 100)
	body := fmt.Sprintf(`{"from_external_id":"alice","to_external_id":"bob","currency_id":%q,"amount":30}`, goldID)
	resp := app.request(t, "POST", "/api/v1/ledger/transfer", body, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The queue flushes on its own schedule; wait for both events to land.
	deadline := time.Now().Add(2 * time.Second)
	for app.sink.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, app.sink.count(), 2)
}
