package repository

import (
	"context"
	"errors"

	"crowdfund/internal/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound 查询没有匹配的行
var ErrNotFound = errors.New("record not found")

// mysqlDuplicateEntry MySQL唯一约束冲突错误码
const mysqlDuplicateEntry = 1062

// UserRepository users表的数据访问
// 每个方法只执行一条参数化语句
type UserRepository struct {
	orm *gorm.DB
}

func NewUserRepository(orm *gorm.DB) *UserRepository {
	return &UserRepository{orm: orm}
}

// FindByID 按ID查询用户公开信息，includeDeleted 为 true 时包含已软删除用户
func (r *UserRepository) FindByID(ctx context.Context, id uint, includeDeleted bool) (*model.PublicUser, error) {
	tx := r.orm.WithContext(ctx)
	if includeDeleted {
		tx = tx.Unscoped()
	}
	var users []model.PublicUser
	err := tx.Model(&model.User{}).
		Select("id", "username", "location", "email").
		Where("id = ?", id).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

// Create 插入用户，返回新ID
func (r *UserRepository) Create(ctx context.Context, user *model.User) (uint, error) {
	if err := r.orm.WithContext(ctx).Create(user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// UpdateProfile 在一条UPDATE中替换用户名、位置、邮箱和凭据
// 不修改软删除标记与令牌，返回受影响行数
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, user *model.User) (int64, error) {
	res := r.orm.WithContext(ctx).Unscoped().
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"username": user.Username,
			"location": user.Location,
			"email":    user.Email,
			"hash":     user.Hash,
			"salt":     user.Salt,
		})
	return res.RowsAffected, res.Error
}

// SoftDelete 标记用户为已删除，重复调用不报错
func (r *UserRepository) SoftDelete(ctx context.Context, id uint) (int64, error) {
	res := r.orm.WithContext(ctx).Delete(&model.User{}, id)
	return res.RowsAffected, res.Error
}

// FindCredentials 按用户名查询未删除用户的哈希与盐
func (r *UserRepository) FindCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	var creds []model.Credentials
	err := r.orm.WithContext(ctx).
		Model(&model.User{}).
		Select("hash", "salt").
		Where("username = ?", username).
		Find(&creds).Error
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNotFound
	}
	return &creds[0], nil
}

// SetToken 覆盖指定用户的令牌
func (r *UserRepository) SetToken(ctx context.Context, username, token string) (int64, error) {
	res := r.orm.WithContext(ctx).Unscoped().
		Model(&model.User{}).
		Where("username = ?", username).
		Update("token", token)
	return res.RowsAffected, res.Error
}

// ClearToken 清空持有该令牌的行，没有匹配时什么也不做
func (r *UserRepository) ClearToken(ctx context.Context, token string) (int64, error) {
	res := r.orm.WithContext(ctx).Unscoped().
		Model(&model.User{}).
		Where("token = ?", token).
		Update("token", nil)
	return res.RowsAffected, res.Error
}

// FindIDByToken 查询持有令牌的未删除用户ID
func (r *UserRepository) FindIDByToken(ctx context.Context, token string) (uint, error) {
	var ids []uint
	err := r.orm.WithContext(ctx).
		Model(&model.User{}).
		Where("token = ?", token).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

// IsDuplicateEntry 判断错误是否为唯一约束冲突（例如用户名重复）
func IsDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
