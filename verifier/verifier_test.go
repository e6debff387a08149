package verifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/verifier"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-signing-secret")

func mintToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func sessionClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "user_1",
		"org_id":   "org_1",
		"org_role": "org:faculty",
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := verifier.New(nil); err == nil {
		t.Fatal("New(nil secret) error = nil, want error")
	}
}

func TestVerify_ValidToken(t *testing.T) {
	v, err := verifier.New(testSecret)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, sessionClaims(time.Now().Add(time.Hour)))
	s, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !s.SignedIn || !s.Loaded {
		t.Errorf("Verify() session = %+v, want signed in and loaded", s)
	}
	if s.UserID != "user_1" {
		t.Errorf("UserID = %q, want %q", s.UserID, "user_1")
	}
	if s.OrgID != "org_1" {
		t.Errorf("OrgID = %q, want %q", s.OrgID, "org_1")
	}
	if got := s.Role(); got != identity.RoleFaculty {
		t.Errorf("Role() = %q, want %q", got, identity.RoleFaculty)
	}
}

func TestVerify_PreActivationTokenHasNoOrg(t *testing.T) {
	v, _ := verifier.New(testSecret)

	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !s.NeedsActivation() {
		t.Errorf("NeedsActivation() = false, want true for token without org claims")
	}
}

func TestVerify_RejectsEmptyToken(t *testing.T) {
	v, _ := verifier.New(testSecret)

	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(\"\") error = %v, want ErrUnauthenticated", err)
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	v, _ := verifier.New(testSecret)

	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, sessionClaims(time.Now().Add(-time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(expired) error = %v, want ErrUnauthenticated", err)
	}
}

func TestVerify_LeewayToleratesClockSkew(t *testing.T) {
	v, _ := verifier.New(testSecret, verifier.WithLeeway(time.Minute))

	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, sessionClaims(time.Now().Add(-5*time.Second)))
	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Errorf("Verify(just expired, 1m leeway) error = %v, want nil", err)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	v, _ := verifier.New(testSecret)

	tok := mintToken(t, []byte("other-secret"), jwt.SigningMethodHS256, sessionClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(wrong secret) error = %v, want ErrUnauthenticated", err)
	}
}

func TestVerify_RejectsUnexpectedSigningMethod(t *testing.T) {
	v, _ := verifier.New(testSecret)

	tok := mintToken(t, testSecret, jwt.SigningMethodHS384, sessionClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(HS384) error = %v, want ErrUnauthenticated", err)
	}
}

func TestVerify_RejectsMissingSubject(t *testing.T) {
	v, _ := verifier.New(testSecret)

	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(no sub) error = %v, want ErrUnauthenticated", err)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	v, _ := verifier.New(testSecret, verifier.WithIssuer("https://auth.campuskit.dev"))

	claims := sessionClaims(time.Now().Add(time.Hour))
	claims["iss"] = "https://evil.example.com"
	tok := mintToken(t, testSecret, jwt.SigningMethodHS256, claims)
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Verify(bad issuer) error = %v, want ErrUnauthenticated", err)
	}

	claims["iss"] = "https://auth.campuskit.dev"
	tok = mintToken(t, testSecret, jwt.SigningMethodHS256, claims)
	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Errorf("Verify(good issuer) error = %v, want nil", err)
	}
}
