package model

import (
	"time"
)

// User 用户实体
// ID使用UUID格式（string）
type User struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	Username    string       `bson:"username" json:"username"` // 用户名（唯一）
	Email       string       `bson:"email" json:"email"`       // 邮箱（唯一）
	Password    string       `bson:"password" json:"-"`        // 密码（加密存储，不返回）
	Role        UserRole     `bson:"role" json:"role"`
	Status      UserStatus   `bson:"status" json:"status"`
	Profile     *UserProfile `bson:"profile,omitempty" json:"profile,omitempty"`
	LastLoginAt *time.Time   `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// UserProfile 用户资料
// 提供给上下文构建器的画像信息也来自这里
type UserProfile struct {
	Nickname   string `bson:"nickname,omitempty" json:"nickname,omitempty"`
	Year       string `bson:"year,omitempty" json:"year,omitempty"`     // 年级
	Campus     string `bson:"campus,omitempty" json:"campus,omitempty"` // 校区
	Pronouns   string `bson:"pronouns,omitempty" json:"pronouns,omitempty"`
	PrefLength string `bson:"pref_length,omitempty" json:"pref_length,omitempty"` // 偏好回复长度: short/medium/long
}

// UserRole 用户角色
type UserRole string

const (
	RoleAdmin     UserRole = "admin"     // 管理员（接收危机告警）
	RoleCounselor UserRole = "counselor" // 咨询师
	RoleStudent   UserRole = "student"   // 学生
)

// IsValid 检查角色是否有效
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleCounselor || r == RoleStudent
}

// String 返回角色字符串
func (r UserRole) String() string {
	return string(r)
}

// UserStatus 用户状态
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"   // 激活
	UserStatusInactive UserStatus = "inactive" // 未激活
	UserStatusBanned   UserStatus = "banned"   // 禁用
)

// IsValid 检查状态是否有效
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusInactive || s == UserStatusBanned
}

// String 返回状态字符串
func (s UserStatus) String() string {
	return string(s)
}
