package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// ErrStaffTokenInvalid 员工令牌无效
var ErrStaffTokenInvalid = errors.New("staff token invalid")

// StaffClaims 员工 JWT 声明，由账号服务签发，本服务只做校验
type StaffClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// StaffAuthService 员工令牌服务
type StaffAuthService struct {
	secret []byte
	now    func() time.Time
}

// NewStaffAuthService 创建员工令牌服务
func NewStaffAuthService(secret string) *StaffAuthService {
	return &StaffAuthService{
		secret: []byte(strings.TrimSpace(secret)),
		now:    time.Now,
	}
}

// Enabled 是否配置了密钥
func (s *StaffAuthService) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// GenerateJWT 签发员工令牌（种子工具与测试使用）
func (s *StaffAuthService) GenerateJWT(subject, email, role string, ttl time.Duration) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrStaffTokenInvalid
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := StaffClaims{
		Email: email,
		Role:  NormalizeStaffRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 校验并解析员工令牌
func (s *StaffAuthService) ParseJWT(tokenString string) (*StaffClaims, error) {
	if !s.Enabled() || strings.TrimSpace(tokenString) == "" {
		return nil, ErrStaffTokenInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &StaffClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrStaffTokenInvalid, err)
	}
	claims, ok := token.Claims.(*StaffClaims)
	if !ok || !token.Valid {
		return nil, ErrStaffTokenInvalid
	}
	claims.Role = NormalizeStaffRole(claims.Role)
	return claims, nil
}

// NormalizeStaffRole 统一角色名，未知角色视为 USER
func NormalizeStaffRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case constants.RoleAdmin:
		return constants.RoleAdmin
	case constants.RolePrimary:
		return constants.RolePrimary
	case constants.RoleSecondary:
		return constants.RoleSecondary
	default:
		return constants.RoleUser
	}
}
