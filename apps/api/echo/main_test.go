package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutortrack/apps/api/echo"
	"github.com/trezcool/tutortrack/assets"
	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
	"github.com/trezcool/tutortrack/core/user"
	"github.com/trezcool/tutortrack/services/email"
	"github.com/trezcool/tutortrack/services/export"
	"github.com/trezcool/tutortrack/storage/inmem"
	"github.com/trezcool/tutortrack/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt", Redirect: "/"}

type testEnv struct {
	app      echoapi.Server
	conf     *core.Config
	accounts user.AccountRepository
	sessions user.SessionRepository
	roles    user.RoleStore
	mail     *emailsvc.ConsoleServiceMock
	gen      *fakeGenerator
	logger   *testutil.Logger
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(assets.EmailTemplates, assets.EmailTemplatesDir, conf))

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	flow.InitValidators(validate, translator)

	db := inmemdb.Open()
	env := &testEnv{
		conf:     conf,
		accounts: inmemdb.NewAccountRepository(db),
		sessions: inmemdb.NewSessionRepository(db),
		roles:    inmemdb.NewRoleStore(db),
		gen:      newFakeGenerator(),
		logger:   testutil.NewLogger(),
	}
	env.mail = emailsvc.NewConsoleServiceMock(conf, env.logger)

	usrSvc := user.NewService(user.Deps{
		Accounts: env.accounts,
		Sessions: env.sessions,
		Roles:    env.roles,
		Mail:     env.mail,
		Verifier: fakeVerifier(testIdentities),
		Logger:   env.logger,
		Conf:     conf,
	})
	cat, err := flow.LoadCatalog(assets.Prompts, conf.AppName)
	require.NoError(t, err)
	flowSvc, err := flow.NewService(cat, env.gen, validate, env.logger)
	require.NoError(t, err)

	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     env.logger,
		UserSvc:    usrSvc,
		FlowSvc:    flowSvc,
		Exporter:   exportsvc.NewExporter(conf.AppName),
		Mail:       env.mail,
		Validate:   validate,
		Translator: translator,
	})
	return env
}

// createUser stores an active password account with role.
func (env *testEnv) createUser(t *testing.T, email string, role user.Role) user.User {
	t.Helper()
	acc := testutil.CreateUser(t, env.accounts, env.roles, email, "Pa$$w0rd!", role)
	return user.NewUser(acc, role)
}

// getToken starts a session for usr and returns its token.
func (env *testEnv) getToken(t *testing.T, usr user.User, origIat ...int64) string {
	t.Helper()
	sess := user.Session{ID: uuid.NewString(), UserID: usr.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, env.sessions.CreateSession(context.Background(), sess))
	token, err := echoapi.GenerateToken(env.conf, echoapi.NewClaims(env.conf, usr, sess.ID, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// testIdentities are the id tokens the fake verifier accepts, keyed by token.
var testIdentities = map[string]user.FederatedIdentity{
	"google-unverified": {Provider: user.ProviderGoogle, Subject: "g-unverified", Email: "student@test.cd"},
}

type fakeVerifier map[string]user.FederatedIdentity

func (v fakeVerifier) Verify(_ context.Context, idToken string) (user.FederatedIdentity, error) {
	if ident, ok := v[idToken]; ok {
		return ident, nil
	}
	return user.FederatedIdentity{}, user.ErrInvalidIDToken
}

// fakeGenerator answers each flow with a canned output.
type fakeGenerator struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   map[string]int
	prompts map[string]string // last prompt, by flow
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{outputs: make(map[string]string), calls: make(map[string]int), prompts: make(map[string]string)}
}

func (g *fakeGenerator) set(flowName string, out interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch o := out.(type) {
	case string:
		g.outputs[flowName] = o
	default:
		b, _ := json.Marshal(o)
		g.outputs[flowName] = string(b)
	}
}

func (g *fakeGenerator) count(flowName string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[flowName]
}

func (g *fakeGenerator) lastPrompt(flowName string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[flowName]
}

func (g *fakeGenerator) Generate(_ context.Context, req flow.GenerateRequest) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[req.Flow]++
	g.prompts[req.Flow] = req.Prompt
	out, ok := g.outputs[req.Flow]
	if !ok {
		return nil, errors.Errorf("no output for %s", req.Flow)
	}
	return []byte(out), nil
}

type httpErr struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
