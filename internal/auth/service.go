package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecommerce/internal/apperr"
	"ecommerce/internal/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	tokens *Tokens
	log    *zap.Logger
}

func NewService(db *gorm.DB, tokens *Tokens, log *zap.Logger) *Service {
	return &Service{db: db, tokens: tokens, log: log}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Session 登录/注册成功后返回给客户端。
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register 只创建普通用户，管理员由 EnsureAdmin 在启动时播种。
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, apperr.Validation("email and password are required")
	}
	u, err := s.createUser(ctx, strings.TrimSpace(in.Name), email, in.Password, model.RoleUser)
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, apperr.Unauthorized("invalid credentials")
		}
		return Session{}, apperr.Abort(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, apperr.Unauthorized("invalid credentials")
	}
	if !u.IsActive {
		return Session{}, apperr.Forbidden("account is disabled")
	}
	return s.session(u)
}

// Authenticate 校验令牌并确认用户仍然存在且可用。
func (s *Service) Authenticate(ctx context.Context, raw string) (Identity, error) {
	id, err := s.tokens.Verify(raw)
	if err != nil {
		return Identity{}, err
	}
	var u model.User
	if err := s.db.WithContext(ctx).Select("id", "role", "is_active").First(&u, id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, apperr.Unauthorized("user no longer exists")
		}
		return Identity{}, apperr.Abort(err)
	}
	if !u.IsActive {
		return Identity{}, apperr.Forbidden("account is disabled")
	}
	// 角色以库里为准，降权立即生效。
	return Identity{UserID: u.ID, Role: u.Role}, nil
}

// EnsureAdmin 幂等地创建管理员账号，已存在则不动。
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.createUser(ctx, "admin", email, password, model.RoleAdmin); err != nil {
		return err
	}
	s.log.Info("admin account seeded", zap.String("email", email))
	return nil
}

func (s *Service) createUser(ctx context.Context, name, email, password, role string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, apperr.Validation("password cannot be hashed: %v", err)
	}
	u := model.User{Name: name, Email: email, PasswordHash: string(hash), Role: role, IsActive: true}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("email already registered")
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return model.User{}, apperr.WrapTx(err)
	}
	return u, nil
}

func (s *Service) session(u model.User) (Session, error) {
	tok, err := s.tokens.Issue(Identity{UserID: u.ID, Role: u.Role})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, User: u}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
