package service

import (
	"context"
	"encoding/hex"
	"errors"

	"crowdfund/internal/model"
	"crowdfund/internal/repository"
	"crowdfund/pkg/logger"
	"crowdfund/pkg/password"
	"crowdfund/pkg/token"

	"go.uber.org/zap"
)

// UserRepository 用户存储，由 repository.UserRepository 实现
type UserRepository interface {
	FindByID(ctx context.Context, id uint, includeDeleted bool) (*model.PublicUser, error)
	Create(ctx context.Context, user *model.User) (uint, error)
	UpdateProfile(ctx context.Context, id uint, user *model.User) (int64, error)
	SoftDelete(ctx context.Context, id uint) (int64, error)
	FindCredentials(ctx context.Context, username string) (*model.Credentials, error)
	SetToken(ctx context.Context, username, token string) (int64, error)
	ClearToken(ctx context.Context, token string) (int64, error)
	FindIDByToken(ctx context.Context, token string) (uint, error)
}

var _ UserRepository = (*repository.UserRepository)(nil)

// UserService 用户身份与凭据管理
// 不持有任何会话状态，每个操作只访问一次存储
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetOne 按ID查询用户，activeOnly 为 true 时排除已删除用户
// 未找到时 found 为 false，err 为 nil
func (s *UserService) GetOne(ctx context.Context, id uint, activeOnly bool) (*model.PublicUser, bool, error) {
	u, err := s.repo.FindByID(ctx, id, !activeOnly)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return u, true, nil
}

// Insert 创建用户，返回新ID
// 用户名冲突时返回存储层错误，可用 repository.IsDuplicateEntry 判断
func (s *UserService) Insert(ctx context.Context, in model.UserInput) (uint, error) {
	user, err := newCredentialRecord(in)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		logger.Warn("创建用户失败", zap.String("username", in.Username), zap.Error(err))
		return 0, err
	}

	logger.Info("创建用户", zap.Uint("user_id", id), zap.String("username", in.Username))
	return id, nil
}

// Alter 替换用户名、位置、邮箱和密码，每次都重新生成盐
// 不修改删除标记与令牌
func (s *UserService) Alter(ctx context.Context, id uint, in model.UserInput) error {
	user, err := newCredentialRecord(in)
	if err != nil {
		return err
	}

	n, err := s.repo.UpdateProfile(ctx, id, user)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Debug("修改用户未影响任何行", zap.Uint("user_id", id))
	}
	return nil
}

// Remove 软删除用户，重复调用同样成功
// 令牌保留，但已删除用户无法再通过令牌或密码认证
func (s *UserService) Remove(ctx context.Context, id uint) error {
	n, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("删除用户", zap.Uint("user_id", id), zap.Int64("rows", n))
	return nil
}

// Authenticate 校验用户名与密码
// 用户不存在、已删除、查询失败和密码错误都返回 false
func (s *UserService) Authenticate(ctx context.Context, username, plain string) bool {
	creds, err := s.repo.FindCredentials(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("查询用户凭据失败", zap.String("username", username), zap.Error(err))
		}
		return false
	}

	salt, err := hex.DecodeString(creds.Salt)
	if err != nil {
		logger.Error("用户盐格式错误", zap.String("username", username), zap.Error(err))
		return false
	}
	return password.Verify(plain, salt, creds.Hash)
}

// SetToken 为用户签发新令牌并覆盖旧令牌，令牌不过期
func (s *UserService) SetToken(ctx context.Context, username string) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}
	if _, err := s.repo.SetToken(ctx, username, tok); err != nil {
		return "", err
	}
	return tok, nil
}

// RemoveToken 注销令牌，没有行持有该令牌时不报错
func (s *UserService) RemoveToken(ctx context.Context, tok string) error {
	_, err := s.repo.ClearToken(ctx, tok)
	return err
}

// GetIDFromToken 查询持有令牌的未删除用户ID
// 空令牌直接返回未找到，不访问存储
func (s *UserService) GetIDFromToken(ctx context.Context, tok string) (uint, bool, error) {
	if tok == "" {
		return 0, false, nil
	}
	id, err := s.repo.FindIDByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// newCredentialRecord 用新盐派生哈希，构造待写入的用户记录
func newCredentialRecord(in model.UserInput) (*model.User, error) {
	salt, err := password.NewSalt()
	if err != nil {
		return nil, err
	}
	return &model.User{
		Username: in.Username,
		Location: in.Location,
		Email:    in.Email,
		Hash:     password.Hash(in.Password, salt),
		Salt:     hex.EncodeToString(salt),
	}, nil
}
