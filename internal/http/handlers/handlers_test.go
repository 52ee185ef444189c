package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/config"
	"github.com/dropDatabas3/teamgate/internal/directory"
	"github.com/dropDatabas3/teamgate/internal/http/router"
	"github.com/dropDatabas3/teamgate/internal/security/password"
	"github.com/dropDatabas3/teamgate/internal/session"
	"github.com/dropDatabas3/teamgate/internal/store/core"
	"github.com/dropDatabas3/teamgate/internal/store/mem"
)

const (
	teamURL    = "https://wiki.example.com"
	inviteCode = "let-me-in"
)

type fakeDirectory struct{}

func (fakeDirectory) Verify(_ context.Context, username, secret string) (*directory.Attributes, error) {
	if username == "bob" && secret == "secret123" {
		return &directory.Attributes{
			DN:          "cn=Bob,ou=people,dc=example,dc=com",
			Username:    "bob",
			Email:       "bob@example.com",
			DisplayName: "Bob Example",
		}, nil
	}
	return nil, &directory.AuthError{Phase: "user_bind", Err: errors.New("invalid credentials")}
}

type fakeMailer struct {
	to, subject, html, text string
	sent                    int
}

func (f *fakeMailer) Send(to, subject, html, text string) error {
	f.to, f.subject, f.html, f.text = to, subject, html, text
	f.sent++
	return nil
}

func newTestApp(t *testing.T) (*app.Container, *mem.Store, http.Handler) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Team.Name = "wiki"
	cfg.Team.Domain = "wiki.example.com"
	cfg.Team.URL = teamURL
	cfg.Email.LinkTTL = "15m"

	store := mem.New()
	issuer, err := session.NewIssuer(session.Config{Issuer: "teamgate"}, session.NewOneTime())
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	rec := auth.NewReconciler(store, auth.NewProvisioner(store, ""))

	c := app.NewContainer(cfg, store, rec, issuer)
	sel := c.TeamSelector()
	c.RegisterVerifier(&auth.DirectoryVerifier{Dir: fakeDirectory{}})
	c.RegisterVerifier(&auth.InvitationVerifier{
		Store: store, Team: sel, Code: inviteCode,
		HashParams: password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32},
	})
	c.RegisterVerifier(&auth.ExternalVerifier{Name: "slack"})

	return c, store, router.New(c)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeAuth(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not json: %v (%s)", err, rr.Body.String())
	}
	return out
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestInvitationLogin_InvalidCode(t *testing.T) {
	_, _, h := newTestApp(t)

	rr := postJSON(t, h, "/auth/invitation", map[string]string{
		"username": "carol", "password": "secret123", "invitationCode": "wrong",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	out := decodeAuth(t, rr)
	if out["success"] != false {
		t.Fatalf("success: %v", out["success"])
	}
	if !strings.Contains(out["redirect"].(string), "notice=invalid_invitation") {
		t.Fatalf("redirect: %v", out["redirect"])
	}
	if !strings.Contains(out["message"].(string), "invitation code") {
		t.Fatalf("message: %v", out["message"])
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("failed login must not set cookies")
	}
}

func TestInvitationLogin_SelfRegistrationIssuesSession(t *testing.T) {
	_, store, h := newTestApp(t)

	rr := postJSON(t, h, "/auth/invitation", map[string]string{
		"username": "carol", "password": "secret123", "invitationCode": inviteCode,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rr.Code, rr.Body.String())
	}
	out := decodeAuth(t, rr)
	if out["success"] != true {
		t.Fatalf("body: %s", rr.Body.String())
	}
	if out["redirect"] != teamURL+"/home" {
		t.Fatalf("redirect: %v", out["redirect"])
	}

	cookies := rr.Result().Cookies()
	sc := cookieByName(cookies, session.DefaultCookieName)
	st := cookieByName(cookies, session.DefaultStateCookieName)
	if sc == nil || st == nil {
		t.Fatalf("missing session/state cookies: %v", cookies)
	}
	if !sc.HttpOnly || st.HttpOnly {
		t.Fatalf("cookie flags wrong: session=%v state=%v", sc.HttpOnly, st.HttpOnly)
	}

	// Primera cuenta del team: admin, team provisionado.
	team, err := store.GetTeamByName(context.Background(), "wiki")
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	acct, err := store.FindAccountByUsername(context.Background(), team.ID, "carol")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !acct.IsAdmin {
		t.Fatalf("first account must be admin")
	}
	if team.Subdomain == "" {
		// El provisioning corre después del insert de la cuenta.
		t.Fatalf("team not provisioned")
	}
}

func TestDirectoryLogin_GhostGetsGenericFailure(t *testing.T) {
	_, store, h := newTestApp(t)

	rr := postJSON(t, h, "/auth/directory", map[string]string{
		"username": "ghost", "password": "whatever",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	out := decodeAuth(t, rr)
	if out["success"] != false {
		t.Fatalf("body: %s", rr.Body.String())
	}
	// Mensaje genérico: nada que distinga ghost de password incorrecto.
	if !strings.Contains(out["message"].(string), "Authentication failed") {
		t.Fatalf("message: %v", out["message"])
	}
	if !strings.Contains(out["redirect"].(string), "notice=directory_validation") {
		t.Fatalf("redirect: %v", out["redirect"])
	}
	if _, err := store.GetTeamByName(context.Background(), "wiki"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("failed login must not create the team")
	}
}

func TestDirectoryLogin_Success(t *testing.T) {
	_, _, h := newTestApp(t)

	rr := postJSON(t, h, "/auth/directory", map[string]string{
		"username": "bob", "password": "secret123",
	})
	out := decodeAuth(t, rr)
	if out["success"] != true {
		t.Fatalf("body: %s", rr.Body.String())
	}
}

func TestProviderMismatch_RedirectsToOwningProvider(t *testing.T) {
	_, _, h := newTestApp(t)

	// bob entra primero por directorio.
	if rr := postJSON(t, h, "/auth/directory", map[string]string{
		"username": "bob", "password": "secret123",
	}); decodeAuth(t, rr)["success"] != true {
		t.Fatalf("seed failed: %s", rr.Body.String())
	}

	// El mismo username por invitación debe rebotar al sign-in del dueño.
	rr := postJSON(t, h, "/auth/invitation", map[string]string{
		"username": "bob", "password": "otherpass", "invitationCode": inviteCode,
	})
	out := decodeAuth(t, rr)
	if out["success"] != false {
		t.Fatalf("body: %s", rr.Body.String())
	}
	if out["redirect"] != teamURL+"/auth/directory" {
		t.Fatalf("redirect: %v", out["redirect"])
	}
}

func TestExternalLogin(t *testing.T) {
	_, _, h := newTestApp(t)

	// Provider no configurado: 404.
	rr := postJSON(t, h, "/auth/external/google", map[string]string{"externalId": "U1"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown provider status: %d", rr.Code)
	}

	rr = postJSON(t, h, "/auth/external/slack", map[string]string{
		"externalId": "U123", "email": "bob@corp.example.com", "displayName": "Bob",
	})
	out := decodeAuth(t, rr)
	if out["success"] != true {
		t.Fatalf("body: %s", rr.Body.String())
	}
}

func TestAuthRedirect_ReplayRejected(t *testing.T) {
	_, _, h := newTestApp(t)

	rr := postJSON(t, h, "/auth/invitation", map[string]string{
		"username": "carol", "password": "secret123", "invitationCode": inviteCode,
	})
	sc := cookieByName(rr.Result().Cookies(), session.DefaultCookieName)
	if sc == nil {
		t.Fatalf("no session cookie")
	}

	// Re-presentación inmediata desde la misma IP: replay.
	req := httptest.NewRequest(http.MethodGet, "/auth/redirect", nil)
	req.AddCookie(sc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Cannot extend token") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}

func TestAuthRedirect_ExtendsAndRedirectsHome(t *testing.T) {
	c, store, h := newTestApp(t)
	ctx := context.Background()

	team, _, err := store.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki", URL: teamURL})
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	acct := &core.Account{
		ID: "acct-1", TeamID: team.ID, Username: "carol",
		Service: "invitation", ServiceID: "carol",
		LastActiveAt: time.Now().UTC().Add(-time.Hour),
		LastActiveIP: "203.0.113.9",
	}
	if err := store.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("account: %v", err)
	}
	art, err := c.Sessions.Issue(acct, team, "invitation")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/redirect", nil)
	req.AddCookie(art.SessionCookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != teamURL+"/home" {
		t.Fatalf("location: %q", loc)
	}
	if cookieByName(rec.Result().Cookies(), session.DefaultCookieName) == nil {
		t.Fatalf("redirect must re-issue the session cookie")
	}

	updated, _ := store.GetAccountByID(ctx, "acct-1")
	if time.Since(updated.LastActiveAt) > time.Minute {
		t.Fatalf("activity not recorded")
	}
}

func TestAuthRedirect_NoToken(t *testing.T) {
	_, _, h := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/redirect", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestSignout_ClearsCookies(t *testing.T) {
	c, _, h := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/signout", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status: %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("location: %q", loc)
	}
	cookies := rec.Result().Cookies()
	for _, name := range []string{c.Sessions.CookieName(), "state"} {
		ck := cookieByName(cookies, name)
		if ck == nil {
			t.Fatalf("missing deletion cookie %q", name)
		}
		if ck.Value != "" || ck.MaxAge >= 0 {
			t.Fatalf("cookie %q not a deletion: %+v", name, ck)
		}
		if ck.Domain != "example.com" {
			t.Fatalf("cookie %q domain: %q", name, ck.Domain)
		}
	}
}

func TestEmailFlow(t *testing.T) {
	c, store, h := newTestApp(t)
	ctx := context.Background()

	// Sin mailer el provider está deshabilitado.
	if rr := postJSON(t, h, "/auth/email", map[string]string{"email": "x@example.com"}); rr.Code != http.StatusNotFound {
		t.Fatalf("disabled email status: %d", rr.Code)
	}

	mailer := &fakeMailer{}
	c.Mailer = mailer

	team, _, _ := store.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki", URL: teamURL})
	_ = store.CreateAccount(ctx, &core.Account{
		ID: "acct-1", TeamID: team.ID, Username: "carol",
		Email: "carol@example.com", Service: "invitation", ServiceID: "carol",
	})

	// Email desconocido: misma respuesta, sin envío.
	rr := postJSON(t, h, "/auth/email", map[string]string{"email": "ghost@example.com"})
	unknownBody := rr.Body.String()
	if decodeAuth(t, rr)["success"] != true || mailer.sent != 0 {
		t.Fatalf("unknown email must answer generic success without sending (sent=%d)", mailer.sent)
	}

	// Email conocido: misma respuesta, con envío.
	rr = postJSON(t, h, "/auth/email", map[string]string{"email": "carol@example.com"})
	if rr.Body.String() != unknownBody {
		t.Fatalf("responses must be indistinguishable: %q vs %q", unknownBody, rr.Body.String())
	}
	if mailer.sent != 1 || mailer.to != "carol@example.com" {
		t.Fatalf("mail not sent: %+v", mailer)
	}

	// Extraer el token del link enviado.
	i := strings.Index(mailer.text, "token=")
	if i < 0 {
		t.Fatalf("no token in mail body: %q", mailer.text)
	}
	token := mailer.text[i+len("token="):]
	if j := strings.IndexAny(token, " \n\"<"); j >= 0 {
		token = token[:j]
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/email.callback?token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != teamURL+"/home" {
		t.Fatalf("callback: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if cookieByName(rec.Result().Cookies(), session.DefaultCookieName) == nil {
		t.Fatalf("callback must issue session cookie")
	}

	// El link es one-time.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || !strings.Contains(rec.Header().Get("Location"), "notice=expired_token") {
		t.Fatalf("reused link: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestReadyz(t *testing.T) {
	_, _, h := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
}
