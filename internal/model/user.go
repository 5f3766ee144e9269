package model

import (
	"gorm.io/plugin/soft_delete"
)

// User 用户模型
// 用户名唯一；令牌可为空，非空时唯一
// 只存储密码哈希与盐，不存储明文
// Deleted 为软删除标记(0/1)，行永远不会被物理删除
type User struct {
	ID       uint                  `gorm:"primaryKey"`
	Username string                `gorm:"type:varchar(64);not null;uniqueIndex"`
	Location string                `gorm:"type:varchar(128)"`
	Email    string                `gorm:"type:varchar(128)"`
	Hash     string                `gorm:"type:varchar(512);not null"`
	Salt     string                `gorm:"type:char(128);not null"`
	Token    *string               `gorm:"type:char(32);uniqueIndex"`
	Deleted  soft_delete.DeletedAt `gorm:"column:deleted;softDelete:flag;not null;default:0"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// PublicUser 对外可见的用户信息，不含凭据字段
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Location string `json:"location"`
	Email    string `json:"email"`
}

// Credentials 认证所需的哈希与盐
type Credentials struct {
	Hash string
	Salt string
}

// UserInput 创建或修改用户时由调用方提供的字段，Password 为明文
type UserInput struct {
	Username string `json:"username" binding:"required"`
	Location string `json:"location"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}
