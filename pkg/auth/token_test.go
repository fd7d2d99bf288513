package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", 2*time.Hour)

	p := Principal{ID: "42", Email: "jordan@example.com", Role: RoleUser, Name: "Jordan"}
	token, err := m.Issue(p)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if got != p {
		t.Errorf("Validate() = %+v, want %+v", got, p)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	issued := time.Now()
	m.now = func() time.Time { return issued }

	token, err := m.Issue(Principal{ID: "42", Email: "a@b.com", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }

	_, err = m.Validate(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(Principal{ID: "42"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_Tampered(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue(Principal{ID: "42", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	tampered := token[:len(token)-4] + "aaaa"
	if _, err := m.Validate(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_MissingSubject(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue(Principal{Email: "a@b.com"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrTokenInvalid", err)
	}
}
