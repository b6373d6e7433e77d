package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:   "valid secret",
			secret: testSecret,
		},
		{
			name:    "empty secret",
			secret:  "",
			wantErr: true,
		},
		{
			name:    "short secret",
			secret:  "too-short",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenManager(tt.secret, time.Hour)
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	token, err := tm.Generate(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("user_id = %d, want 42", claims.UserID)
	}
	if claims.Issuer != "aurelius-catalogue" {
		t.Errorf("issuer = %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("expected a token ID")
	}
}

func TestTokenManager_Validate_Errors(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("garbage token", func(t *testing.T) {
		if _, err := tm.Validate("not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		token, err := other.Generate(1)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Validate(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := NewTokenManager(testSecret, -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		token, err := expired.Generate(1)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Validate(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestTokenManager_TokensAreUnique(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	a, err := tm.Generate(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := tm.Generate(1)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two tokens for the same user should differ (unique jti)")
	}
}
