package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-000000"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("ops-console", RoleOperator, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "ops-console" {
		t.Errorf("Subject = %q, want ops-console", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", claims.Role)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 15*time.Minute {
		t.Errorf("TTL = %v, want 15m", ttl)
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("dashboard", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != defaultTTLMinutes*time.Minute {
		t.Errorf("TTL = %v, want %d minutes", got, defaultTTLMinutes)
	}
}

func TestGenerateAccessToken_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		role    Role
		want    error
	}{
		{"empty subject", "", RoleViewer, ErrTokenInvalid},
		{"unknown role", "ops", Role("owner"), ErrInvalidRole},
		{"empty role", "ops", "", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateAccessToken(tt.subject, tt.role, testSecret, 15)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// signClaims signs arbitrary claims, for tokens GenerateAccessToken refuses to build.
func signClaims(t *testing.T, method jwt.SigningMethod, claims CustomClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return token
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := GenerateAccessToken("ops", RoleOperator, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	now := time.Now()
	future := jwt.NewNumericDate(now.Add(time.Hour))

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"garbage", "not-a-valid-jwt", testSecret},
		{"wrong secret", valid, "another-secret-another-secret-000000"},
		{
			"expired",
			signClaims(t, jwt.SigningMethodHS256, CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))},
				Role:             RoleOperator,
			}),
			testSecret,
		},
		{
			"wrong algorithm",
			signClaims(t, jwt.SigningMethodHS512, CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future},
				Role:             RoleOperator,
			}),
			testSecret,
		},
		{
			"missing subject",
			signClaims(t, jwt.SigningMethodHS256, CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
				Role:             RoleOperator,
			}),
			testSecret,
		},
		{
			"unknown role",
			signClaims(t, jwt.SigningMethodHS256, CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future},
				Role:             Role("admin"),
			}),
			testSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
