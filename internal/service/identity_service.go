package service

import (
	"strings"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IssuedCredential 新建账号的临时凭证，明文只在内存中存在一次
type IssuedCredential struct {
	UserID    uint
	Email     string
	Password  string
	ExpiresAt time.Time
}

// IdentityService 收件人身份解析与代建
type IdentityService struct {
	userRepo           repository.UserRepository
	tempPasswordTTL    time.Duration
	tempPasswordLength int
	defaultLocale      string
}

// NewIdentityService 创建身份服务
func NewIdentityService(cfg *config.Config, userRepo repository.UserRepository) *IdentityService {
	svc := &IdentityService{
		userRepo:           userRepo,
		tempPasswordTTL:    24 * time.Hour,
		tempPasswordLength: 12,
	}
	if cfg != nil {
		if cfg.Parcel.TempPasswordHours > 0 {
			svc.tempPasswordTTL = time.Duration(cfg.Parcel.TempPasswordHours) * time.Hour
		}
		if cfg.Parcel.TempPasswordLength > 0 {
			svc.tempPasswordLength = cfg.Parcel.TempPasswordLength
		}
		svc.defaultLocale = strings.TrimSpace(cfg.App.DefaultLocale)
	}
	return svc
}

// Lookup 只读查询，不存在返回 nil
func (s *IdentityService) Lookup(email string) (*models.User, error) {
	return s.userRepo.GetByEmail(email)
}

// ListAdmins 实时查询全部启用中的管理员
func (s *IdentityService) ListAdmins(tx *gorm.DB) ([]models.User, error) {
	return s.userRepo.WithTx(tx).ListByRole(constants.RoleAdmin)
}

// EnsureReceiver 按邮箱解析收件人，不存在则代建 USER 账号并签发临时密码
func (s *IdentityService) EnsureReceiver(tx *gorm.DB, email string) (*models.User, *IssuedCredential, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, nil, newValidationError("receiver_email", "required")
	}
	repo := s.userRepo.WithTx(tx)

	existing, err := repo.GetByEmail(normalized)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		if existing.Role == constants.RoleAdmin {
			return nil, nil, ErrReceiverIsAdmin
		}
		return existing, nil, nil
	}

	password, err := generateTempPassword(s.tempPasswordLength)
	if err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	expiresAt := time.Now().Add(s.tempPasswordTTL)
	user := &models.User{
		Email:                 normalized,
		TempPasswordHash:      string(hash),
		TempPasswordExpiresAt: &expiresAt,
		DisplayName:           placeholderDisplayName(normalized),
		Role:                  constants.RoleUser,
		Locale:                s.defaultLocale,
		Status:                constants.UserStatusActive,
		Provisioned:           true,
	}

	createErr := createInSavepoint(tx, func(db *gorm.DB) error {
		return s.userRepo.WithTx(db).Create(user)
	})
	if createErr != nil {
		if !repository.IsUniqueViolation(createErr) {
			return nil, nil, createErr
		}
		// 并发代建同一邮箱，以先写入者为准
		winner, err := repo.GetByEmail(normalized)
		if err != nil {
			return nil, nil, err
		}
		if winner == nil {
			return nil, nil, createErr
		}
		if winner.Role == constants.RoleAdmin {
			return nil, nil, ErrReceiverIsAdmin
		}
		return winner, nil, nil
	}

	logger.Infow("receiver_provisioned", "user_id", user.ID, "email", user.Email)
	return user, &IssuedCredential{
		UserID:    user.ID,
		Email:     user.Email,
		Password:  password,
		ExpiresAt: expiresAt,
	}, nil
}

// createInSavepoint 在外层事务中开启保存点，冲突时只回滚该语句
func createInSavepoint(tx *gorm.DB, fn func(db *gorm.DB) error) error {
	if tx == nil {
		return fn(nil)
	}
	return tx.Transaction(fn)
}

func placeholderDisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
