package httpapi

import (
	"context"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"zerde.org/internal/token"
)

func issueToken(t *testing.T, api *apiClient, expiresIn int32) token.AccessToken {
	t.Helper()
	tok, err := api.tokens.Issue(context.Background(), "grant-1", expiresIn)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func bearerHeader(value string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + value}
}

func TestIntrospectLiveToken(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)
	g, access := seedGrant()

	resp := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body introspectionResponse
	decodeBody(t, resp, &body)

	if !body.Active {
		t.Fatal("expected active result")
	}
	if body.Grant != g.ID {
		t.Fatalf("grant %q, want %q", body.Grant, g.ID)
	}
	if body.Client != g.ClientID {
		t.Fatalf("client %q, want %q", body.Client, g.ClientID)
	}
	if !reflect.DeepEqual(body.Access, access) {
		t.Fatalf("access mismatch:\ngot  %+v\nwant %+v", body.Access, access)
	}
}

func TestIntrospectNeverDistinguishesAbsenceFromExpiry(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)
	api.clock.Advance(3601 * time.Second)

	expired := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	absent := api.post("/", map[string]any{"access_token": "never-issued"}, nil)

	if expired.StatusCode != http.StatusOK || absent.StatusCode != http.StatusOK {
		t.Fatalf("introspection must always be 200, got %d and %d", expired.StatusCode, absent.StatusCode)
	}
	expiredBody, err := io.ReadAll(expired.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = expired.Body.Close()
	absentBody, err := io.ReadAll(absent.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = absent.Body.Close()

	if string(expiredBody) != string(absentBody) {
		t.Fatalf("expired %s and absent %s responses must be byte-identical", expiredBody, absentBody)
	}
	if !strings.Contains(string(absentBody), `"active":false`) {
		t.Fatalf("expected inactive body, got %s", absentBody)
	}
}

func TestIntrospectRequiresTokenField(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/", map[string]any{"access_token": ""}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty token, got %d", resp.StatusCode)
	}

	noBody := api.post("/", nil, nil)
	defer noBody.Body.Close()
	if noBody.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing body, got %d", noBody.StatusCode)
	}
}

func TestRevokeAlwaysSucceeds(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)

	// Live token with the correct bearer.
	resp := api.delete("/token/"+tok.ManagementID, bearerHeader(tok.Value))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	// Same call again: already revoked.
	resp = api.delete("/token/"+tok.ManagementID, bearerHeader(tok.Value))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for already-revoked, got %d", resp.StatusCode)
	}

	// Unknown management id.
	resp = api.delete("/token/no-such-id", bearerHeader("whatever"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for unknown id, got %d", resp.StatusCode)
	}

	// Afterwards the token is no longer introspectable as active.
	check := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	var body introspectionResponse
	decodeBody(t, check, &body)
	if body.Active {
		t.Fatal("revoked token must be inactive")
	}
}

func TestRevokeWithMismatchedBearer(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)

	resp := api.delete("/token/"+tok.ManagementID, bearerHeader("not-the-secret"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("mismatch must look like success, got %d", resp.StatusCode)
	}

	// The mismatch must not have revoked anything.
	check := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	var body introspectionResponse
	decodeBody(t, check, &body)
	if !body.Active {
		t.Fatal("token must survive a mismatched revoke attempt")
	}
}

func TestRevokeRequiresBearerHeader(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)

	resp := api.delete("/token/"+tok.ManagementID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without authorization header, got %d", resp.StatusCode)
	}
}

func TestRotateToken(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)
	_, access := seedGrant()
	api.clock.Advance(30 * time.Minute)

	resp := api.post("/token/"+tok.ManagementID, nil, bearerHeader(tok.Value))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body rotateResponse
	decodeBody(t, resp, &body)

	next := body.AccessToken
	if next.Value == "" || next.Value == tok.Value {
		t.Fatalf("expected a fresh value, got %q", next.Value)
	}
	if next.ExpiresIn != 3600 {
		t.Fatalf("expires_in %d, want the full window 3600", next.ExpiresIn)
	}
	wantPrefix := "https://auth.zerde.example/token/"
	if !strings.HasPrefix(next.Manage, wantPrefix) {
		t.Fatalf("manage url %q, want prefix %q", next.Manage, wantPrefix)
	}
	if strings.TrimPrefix(next.Manage, wantPrefix) == tok.ManagementID {
		t.Fatal("rotation must mint a fresh management id")
	}
	if !reflect.DeepEqual(next.Access, access) {
		t.Fatalf("access mismatch:\ngot  %+v\nwant %+v", next.Access, access)
	}

	// Old credentials are dead the moment rotation commits.
	old := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	var oldBody introspectionResponse
	decodeBody(t, old, &oldBody)
	if oldBody.Active {
		t.Fatal("old value must be inactive after rotation")
	}

	fresh := api.post("/", map[string]any{"access_token": next.Value}, nil)
	var freshBody introspectionResponse
	decodeBody(t, fresh, &freshBody)
	if !freshBody.Active {
		t.Fatal("rotated value must be active")
	}
}

func TestRotateUnknownOrMismatchedIs404(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)

	unknown := api.post("/token/no-such-id", nil, bearerHeader(tok.Value))
	var unknownBody map[string]any
	decodeBody(t, unknown, &unknownBody)
	if unknown.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", unknown.StatusCode)
	}
	if unknownBody["error"] != "token not found" {
		t.Fatalf("expected stable message, got %v", unknownBody["error"])
	}

	mismatch := api.post("/token/"+tok.ManagementID, nil, bearerHeader("wrong-secret"))
	defer mismatch.Body.Close()
	if mismatch.StatusCode != http.StatusNotFound {
		t.Fatalf("mismatched bearer must be the same 404, got %d", mismatch.StatusCode)
	}
}

func TestTokenLifecycleEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	tok := issueToken(t, api, 3600)

	// Fresh token introspects active with the full access list.
	live := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	var liveBody introspectionResponse
	decodeBody(t, live, &liveBody)
	if !liveBody.Active || len(liveBody.Access) == 0 {
		t.Fatalf("expected active result with access, got %+v", liveBody)
	}

	// One second past the window it is inactive.
	api.clock.Advance(3601 * time.Second)
	expired := api.post("/", map[string]any{"access_token": tok.Value}, nil)
	var expiredBody introspectionResponse
	decodeBody(t, expired, &expiredBody)
	if expiredBody.Active {
		t.Fatal("expected inactive after expiry")
	}

	// Rotation does not require liveness and restores the full window.
	rotated := api.post("/token/"+tok.ManagementID, nil, bearerHeader(tok.Value))
	if rotated.StatusCode != http.StatusOK {
		t.Fatalf("rotation of an expired token must succeed, got %d", rotated.StatusCode)
	}
	var rotatedBody rotateResponse
	decodeBody(t, rotated, &rotatedBody)
	if rotatedBody.AccessToken.ExpiresIn != 3600 {
		t.Fatalf("expires_in %d, want 3600", rotatedBody.AccessToken.ExpiresIn)
	}

	fresh := api.post("/", map[string]any{"access_token": rotatedBody.AccessToken.Value}, nil)
	var freshBody introspectionResponse
	decodeBody(t, fresh, &freshBody)
	if !freshBody.Active {
		t.Fatal("new token must introspect as active")
	}
}
