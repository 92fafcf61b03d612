// Package auth 把调用方解析成 Identity（用户 ID + 角色），并负责注册、登录与令牌签发。
package auth

import "ecommerce/internal/model"

// Identity 已认证的调用方。
type Identity struct {
	UserID uint
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }
