package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/models"

	"golang.org/x/crypto/bcrypt"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupCourierTest(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "alice@example.com" || user.Role != constants.RoleUser || user.DisplayName == "" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Locale != "en-US" {
		t.Fatalf("locale should default to config, got %s", user.Locale)
	}

	result, err := env.auth.Login(ctx, "alice@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.MustChangePassword || result.Token == "" || result.User.LastLoginAt == nil {
		t.Fatalf("unexpected login result: %+v", result)
	}

	claims, err := env.auth.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != constants.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	caller, err := env.auth.ResolveCaller(ctx, claims)
	if err != nil || caller.ID != user.ID || caller.Email != user.Email {
		t.Fatalf("resolve caller = %+v err=%v", caller, err)
	}

	if _, err := env.auth.Login(ctx, "alice@example.com", "wrong-pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "nobody@example.com", "Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	env := setupCourierTest(t)
	ctx := context.Background()
	env.createUser(t, "taken@example.com", constants.RoleUser)

	if _, err := env.auth.Register(ctx, RegisterInput{Email: "TAKEN@example.com", Password: "Passw0rd!"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	cases := []struct {
		password string
		key      string
	}{
		{password: "a1", key: "error.password_min_length"},
		{password: "abcdefghij", key: "error.password_require_number"},
		{password: "1234567890", key: "error.password_require_letter"},
	}
	for _, tc := range cases {
		_, err := env.auth.Register(ctx, RegisterInput{Email: "new@example.com", Password: tc.password})
		if !errors.Is(err, ErrPasswordInvalid) {
			t.Fatalf("password %q: expected ErrPasswordInvalid, got %v", tc.password, err)
		}
		var policyErr passwordPolicyError
		if !errors.As(err, &policyErr) || policyErr.Key() != tc.key {
			t.Fatalf("password %q: key = %v, want %s", tc.password, err, tc.key)
		}
	}
	if _, err := env.auth.Register(ctx, RegisterInput{Email: "bad", Password: "Passw0rd!"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExpiredTemporaryPasswordIsRejected(t *testing.T) {
	env := setupCourierTest(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("Temp1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	expired := time.Now().Add(-time.Minute)
	user := &models.User{
		Email:                 "late@example.com",
		TempPasswordHash:      string(hash),
		TempPasswordExpiresAt: &expired,
		DisplayName:           "late",
		Role:                  constants.RoleUser,
		Status:                constants.UserStatusActive,
		Provisioned:           true,
	}
	if err := env.userRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	if _, err := env.auth.Login(context.Background(), "late@example.com", "Temp1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expired temporary password must fail, got %v", err)
	}
	if err := env.auth.ChangePassword(context.Background(), user.ID, "Temp1234", "Newpass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expired temporary password cannot change password, got %v", err)
	}
}

func TestChangePasswordClearsTemporaryPassword(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createParcel(t, admin, sender, "fresh@example.com")

	event := env.outbox(t, "fresh@example.com", constants.NotificationCredentialsIssued)[0]
	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	match := temporaryPasswordPattern.FindStringSubmatch(env.mailer.sent[0].Body)
	if len(match) != 2 {
		t.Fatalf("temporary password missing from mail")
	}
	temp := match[1]

	receiver, err := env.userRepo.GetByEmail("fresh@example.com")
	if err != nil || receiver == nil {
		t.Fatalf("load receiver failed: %v", err)
	}
	if err := env.auth.ChangePassword(context.Background(), receiver.ID, temp, "short"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("weak new password should fail, got %v", err)
	}
	if err := env.auth.ChangePassword(context.Background(), receiver.ID, temp, "Newpass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	reloaded, err := env.userRepo.GetByID(receiver.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.TempPasswordHash != "" || reloaded.TempPasswordExpiresAt != nil || reloaded.PasswordHash == "" {
		t.Fatalf("temporary password should be cleared: %+v", reloaded)
	}
	if _, err := env.auth.Login(context.Background(), "fresh@example.com", temp); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old temporary password must stop working, got %v", err)
	}
	result, err := env.auth.Login(context.Background(), "fresh@example.com", "Newpass123")
	if err != nil || result.MustChangePassword {
		t.Fatalf("login with new password = %+v err=%v", result, err)
	}
}

func TestParseJWTRejectsForeignTokens(t *testing.T) {
	env := setupCourierTest(t)
	user := &models.User{ID: 7, Email: "u@example.com", Role: constants.RoleUser}
	token, expiresAt, err := env.auth.GenerateJWT(user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("expiry should follow config, got %v", expiresAt)
	}

	other := NewAuthService(env.cfg, env.userRepo)
	otherCfg := *env.cfg
	otherCfg.JWT.SecretKey = "another-secret"
	other.cfg = &otherCfg
	if _, err := other.ParseJWT(token); err == nil {
		t.Fatalf("token signed with another secret must fail")
	}
	if _, err := env.auth.ParseJWT("not-a-token"); err == nil {
		t.Fatalf("garbage token must fail")
	}

	otherCfg.JWT.SecretKey = ""
	if _, _, err := other.GenerateJWT(user); err == nil {
		t.Fatalf("empty secret must not sign tokens")
	}
}

func TestResolveCallerRejectsDisabledUsers(t *testing.T) {
	env := setupCourierTest(t)
	caller := env.createUser(t, "u@example.com", constants.RoleUser)
	if err := env.userRepo.UpdateFields(caller.ID, map[string]interface{}{"status": constants.UserStatusDisabled}); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, err := env.auth.ResolveCaller(context.Background(), &JWTClaims{UserID: caller.ID}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
	if _, err := env.auth.Login(context.Background(), "u@example.com", testPassword); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("disabled user login should fail, got %v", err)
	}
	if _, err := env.auth.ResolveCaller(context.Background(), &JWTClaims{UserID: 999}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
