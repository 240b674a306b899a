package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ankurclub/clever-video-summarizer/internal/auth"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// =============================================================================
// Identity Resolution Tests
// =============================================================================

func TestIdentityMiddleware_GatewayHeaders(t *testing.T) {
	mw := NewIdentityMiddleware("s3cret", "salt", discardLogger())

	req := httptest.NewRequest("GET", "/api/usage", nil)
	req.Header.Set(HeaderUserID, "user_42")
	req.Header.Set(HeaderUserPlan, "business")
	req.Header.Set(HeaderGatewaySecret, "s3cret")

	id, err := mw.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Key != "user_42" {
		t.Errorf("expected key user_42, got %q", id.Key)
	}
	if id.Tier != domain.PlanBusiness {
		t.Errorf("expected business tier, got %q", id.Tier)
	}
	if id.Anonymous {
		t.Error("gateway identity should not be anonymous")
	}
}

func TestIdentityMiddleware_WrongSecretRejected(t *testing.T) {
	mw := NewIdentityMiddleware("s3cret", "salt", discardLogger())

	req := httptest.NewRequest("GET", "/api/usage", nil)
	req.Header.Set(HeaderUserID, "user_42")
	req.Header.Set(HeaderUserPlan, "business")
	req.Header.Set(HeaderGatewaySecret, "guess")

	rec := httptest.NewRecorder()
	mw.Handler(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), domain.EUNAUTHORIZED) {
		t.Errorf("expected unauthorized code in body, got %s", rec.Body.String())
	}
}

func TestIdentityMiddleware_UnknownPlanIsFree(t *testing.T) {
	mw := NewIdentityMiddleware("", "salt", discardLogger())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderUserID, "user_42")
	req.Header.Set(HeaderUserPlan, "platinum")

	id, err := mw.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Tier != domain.PlanFree {
		t.Errorf("expected free tier, got %q", id.Tier)
	}
}

func TestIdentityMiddleware_InvalidUserID(t *testing.T) {
	mw := NewIdentityMiddleware("", "salt", discardLogger())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderUserID, "bad id with spaces")

	if _, err := mw.Resolve(req); domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestIdentityMiddleware_AnonymousHeader(t *testing.T) {
	mw := NewIdentityMiddleware("", "salt", discardLogger())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderAnonymousID, "device-12345678")

	id, err := mw.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Key != "anon:device-12345678" {
		t.Errorf("unexpected key %q", id.Key)
	}
	if !id.Anonymous || id.Tier != domain.PlanFree {
		t.Errorf("expected anonymous free identity, got %+v", id)
	}
}

func TestIdentityMiddleware_AnonymousIPHash(t *testing.T) {
	mw := NewIdentityMiddleware("", "salt", discardLogger())

	resolve := func(remote string) domain.Identity {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = remote
		id, err := mw.Resolve(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return id
	}

	a := resolve("10.0.0.1:1111")
	b := resolve("10.0.0.1:2222")
	c := resolve("10.0.0.2:1111")

	if a.Key != b.Key {
		t.Errorf("same IP should map to same key: %q vs %q", a.Key, b.Key)
	}
	if a.Key == c.Key {
		t.Error("different IPs should map to different keys")
	}
	if strings.Contains(a.Key, "10.0.0.1") {
		t.Error("raw IP must not appear in the key")
	}
	if len(a.Key) != len(domain.AnonymousPrefix)+anonymousKeyLength {
		t.Errorf("unexpected key length %d", len(a.Key))
	}

	other := NewIdentityMiddleware("", "pepper", discardLogger())
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	d, _ := other.Resolve(req)
	if d.Key == a.Key {
		t.Error("salt should change the key")
	}
}

func TestIdentityMiddleware_SetsContext(t *testing.T) {
	mw := NewIdentityMiddleware("", "salt", discardLogger())

	var got domain.Identity
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = auth.GetIdentityFromRequest(r)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderUserID, "user_7")
	req.Header.Set(HeaderUserPlan, "pro")
	mw.Handler(next).ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Fatal("expected identity in context")
	}
	if got.Key != "user_7" || got.Tier != domain.PlanPro {
		t.Errorf("unexpected identity %+v", got)
	}
}

// =============================================================================
// Stack / MaxBody Tests
// =============================================================================

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Stack(mark("a"), mark("b"), mark("c"))(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("expected a,b,c got %v", order)
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	})

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	MaxBody(10)(next).ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil || readErr.Error() == "EOF" {
		t.Errorf("expected max bytes error, got %v", readErr)
	}
}
