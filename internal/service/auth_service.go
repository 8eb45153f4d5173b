package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	policy   passwordPolicy
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		cfg:      cfg,
		userRepo: userRepo,
		policy:   defaultPasswordPolicy,
	}
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=100"`
	Locale      string `json:"locale" validate:"max=10"`
}

// LoginResult 登录结果；使用临时密码登录时 MustChangePassword 为 true
type LoginResult struct {
	User               *models.User `json:"user"`
	Token              string       `json:"token"`
	ExpiresAt          time.Time    `json:"expires_at"`
	MustChangePassword bool         `json:"must_change_password"`
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	if hashedPassword == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Caller 转为服务层调用方
func (c *JWTClaims) Caller() Caller {
	if c == nil {
		return Caller{}
	}
	return Caller{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	if strings.TrimSpace(s.cfg.JWT.SecretKey) == "" {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	expireHours := s.cfg.JWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)

	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.UserID != 0 {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ResolveCaller 校验 token 对应的用户仍然有效，角色以数据库为准
func (s *AuthService) ResolveCaller(ctx context.Context, claims *JWTClaims) (Caller, error) {
	if claims == nil || claims.UserID == 0 {
		return Caller{}, ErrUnauthorized
	}
	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return Caller{}, err
	}
	if user == nil {
		return Caller{}, ErrUnauthorized
	}
	if user.Status != constants.UserStatusActive {
		return Caller{}, ErrUserDisabled
	}
	return Caller{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Register 注册寄件人账号；邮箱已存在时返回 ErrEmailExists
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	trimInput(&input.Email, &input.DisplayName, &input.Locale)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := validatePassword(s.policy, input.Password); err != nil {
		return nil, err
	}
	email := normalizeEmail(input.Email)
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	displayName := input.DisplayName
	if displayName == "" {
		displayName = placeholderDisplayName(email)
	}
	locale := input.Locale
	if locale == "" {
		locale = s.cfg.App.DefaultLocale
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         constants.RoleUser,
		Locale:       locale,
		Status:       constants.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	logger.Infow("user_registered", "user_id", user.ID)
	return user, nil
}

// Login 邮箱密码登录，永久密码或未过期的临时密码均可
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}

	now := time.Now()
	temporary := false
	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		if !user.HasActiveTempPassword(now) || s.VerifyPassword(user.TempPasswordHash, password) != nil {
			return nil, ErrInvalidCredentials
		}
		temporary = true
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.TouchLogin(user.ID, now); err != nil {
		logger.Warnw("user_touch_login_failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	logger.Infow("user_login", "user_id", user.ID, "temporary_password", temporary)

	return &LoginResult{
		User:               user,
		Token:              token,
		ExpiresAt:          expiresAt,
		MustChangePassword: temporary || user.PasswordHash == "",
	}, nil
}

// ChangePassword 设置永久密码并清除临时密码
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	if s.VerifyPassword(user.PasswordHash, oldPassword) != nil {
		if !user.HasActiveTempPassword(time.Now()) || s.VerifyPassword(user.TempPasswordHash, oldPassword) != nil {
			return ErrInvalidCredentials
		}
	}
	if err := validatePassword(s.policy, newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"password_hash":            hashedPassword,
		"temp_password_hash":       "",
		"temp_password_expires_at": nil,
	}); err != nil {
		return err
	}
	logger.Infow("user_password_changed", "user_id", user.ID)
	return nil
}
