// Package models содержит доменные структуры маркетплейса и структуры
// для приёма данных из JSON-запросов.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Типы аккаунтов.
const (
	AccountPersonal = "personal"
	AccountBusiness = "business"
)

// User зарегистрированный пользователь. Бизнес-поля заполнены только у
// аккаунтов типа business.
type User struct {
	UID                 string    `json:"uid"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	PasswordHash        string    `json:"-"`
	Phone               string    `json:"phone,omitempty"`
	Role                string    `json:"role"`
	AccountType         string    `json:"account_type"`
	BusinessName        string    `json:"business_name,omitempty"`
	BusinessDescription string    `json:"business_description,omitempty"`
	Document            string    `json:"-"`
	City                string    `json:"city,omitempty"`
	GatewayCustomerID   string    `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RegisterRequest тело запроса регистрации.
type RegisterRequest struct {
	Email               string `json:"email" validate:"required,email"`
	Password            string `json:"password" validate:"required,min=8,max=72"`
	Name                string `json:"name" validate:"required,max=120"`
	Phone               string `json:"phone,omitempty" validate:"omitempty,max=20"`
	AccountType         string `json:"account_type" validate:"omitempty,oneof=personal business"`
	BusinessName        string `json:"business_name,omitempty" validate:"omitempty,max=120"`
	BusinessDescription string `json:"business_description,omitempty" validate:"omitempty,max=2000"`
	Document            string `json:"document,omitempty" validate:"omitempty,min=11,max=18"`
	City                string `json:"city,omitempty" validate:"omitempty,max=80"`
}

// LoginRequest тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate изменяемые поля профиля. nil означает "не менять".
type ProfileUpdate struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	AccountType         *string `json:"account_type,omitempty" validate:"omitempty,oneof=personal business"`
	BusinessName        *string `json:"business_name,omitempty" validate:"omitempty,max=120"`
	BusinessDescription *string `json:"business_description,omitempty" validate:"omitempty,max=2000"`
	Document            *string `json:"document,omitempty" validate:"omitempty,min=11,max=18"`
	City                *string `json:"city,omitempty" validate:"omitempty,max=80"`
}

// PublicProfile публичный профиль продавца с его одобренными объявлениями.
type PublicProfile struct {
	UID                 string    `json:"uid"`
	Name                string    `json:"name"`
	AccountType         string    `json:"account_type"`
	BusinessName        string    `json:"business_name,omitempty"`
	BusinessDescription string    `json:"business_description,omitempty"`
	City                string    `json:"city,omitempty"`
	MemberSince         time.Time `json:"member_since"`
	Ads                 []Ad      `json:"ads"`
}

// Viewer пользователь текущего запроса, восстановленный из токена сессии.
type Viewer struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin сообщает, является ли пользователь запроса администратором.
func (v Viewer) IsAdmin() bool { return v.Role == RoleAdmin }

// CanManage сообщает, может ли пользователь запроса менять ресурс владельца ownerUID.
func (v Viewer) CanManage(ownerUID string) bool {
	return v.IsAdmin() || (v.UID != "" && v.UID == ownerUID)
}

// Session выданный при входе токен.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
