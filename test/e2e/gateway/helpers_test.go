package gateway_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	gwhttp "github.com/benxgao/certifai-gateway/internal/gateway/http"
	"github.com/benxgao/certifai-gateway/internal/gateway/identity"
	"github.com/benxgao/certifai-gateway/internal/gateway/marketing"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/internal/gateway/store/drivers/sqlite"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
	"github.com/benxgao/certifai-gateway/pkg/wraptoken"
)

/*
 * Common helpers for gateway end-to-end tests: a fake identity provider
 * publishing a JWKS, a fake downstream backend, and the fully wired router
 * on top of a real SQLite store.
 */

const (
	cookieName   = "certifai_session"
	testIssuer   = "https://securetoken.test/certifai"
	testAudience = "certifai"
	testSecret   = "e2e-session-secret"
)

type testEnv struct {
	Router   *gwhttp.Router
	Sessions *service.SessionService
	Store    *sqlite.Store
	Codec    *wraptoken.Codec

	key         *rsa.PrivateKey
	backendDown *atomic.Bool
}

func setupGateway(t *testing.T) *testEnv {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pub := &priv.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(identity.JWKS{Keys: []identity.JWK{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: "e2e-kid",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}))
	t.Cleanup(jwksSrv.Close)

	backendDown := &atomic.Bool{}
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if backendDown.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		if r.Method == http.MethodPost && r.URL.Path == "/api/users/resolve" {
			var req struct {
				Subject string `json:"subject"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"userId": "user-" + req.Subject})
			return
		}

		// Everything else echoes what it received so tests can assert the
		// relayed request.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path":   r.URL.Path,
			"method": r.Method,
			"bearer": r.Header.Get("Authorization"),
		})
	}))
	t.Cleanup(backendSrv.Close)

	dsn := "file:" + filepath.Join(t.TempDir(), "gateway.db") + "?_busy_timeout=5000"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := wraptoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	keys := identity.NewKeySet()
	fetcher := identity.NewJWKSFetcher(jwksSrv.URL, keys, time.Hour)
	cache := identity.NewCache(5*time.Minute, 0)
	verifier := identity.NewProviderVerifier(keys, fetcher, cache, testIssuer, []string{testAudience})

	backend := upstream.NewClient(backendSrv.URL, 5*time.Second)

	sessions := &service.SessionService{
		Codec:    codec,
		Verifier: verifier,
		Cache:    cache,
		Store:    st,
		Backend:  backend,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gwhttp.NewRouter(keys, "e2e", st, logger)
	router.Sessions = sessions
	router.Cookies = &gwhttp.CookieStore{Name: cookieName, RootDomain: ".certifai.app", MaxAge: 3600}
	router.Backend = backend
	router.Marketing = marketing.NewClient("", "", "")
	router.ApplyRoutes()

	return &testEnv{
		Router:      router,
		Sessions:    sessions,
		Store:       st,
		Codec:       codec,
		key:         priv,
		backendDown: backendDown,
	}
}

// mintIdentityToken signs an identity token the way the provider would.
func (e *testEnv) mintIdentityToken(t *testing.T, sub, apiUserID string, exp time.Time) string {
	t.Helper()

	claims := identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   sub,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     sub + "@example.com",
		APIUserID: apiUserID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "e2e-kid"
	signed, err := token.SignedString(e.key)
	require.NoError(t, err)
	return signed
}

// do runs a request through the full router stack.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	e.Router.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

// sessionCookie extracts the session cookie set by a response, if any.
func sessionCookie(res *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range (&http.Response{Header: res.Header()}).Cookies() {
		if c.Name == cookieName && c.MaxAge > 0 {
			return c
		}
	}
	return nil
}
