package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token 缺失、格式错误、签名不符或已过期
var ErrInvalidToken = errors.New("invalid or expired token")

// Resolver 把 bearer token 解析为用户身份（邮箱）
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Claims JWT 载荷
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager 使用 HS256 签发和校验 token，密钥可在运行时替换
type JWTManager struct {
	mu     sync.RWMutex
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager 创建 JWTManager；issuer 为空时不校验 iss
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetSecret 轮换签名密钥，旧密钥签发的 token 立即失效
func (m *JWTManager) SetSecret(secret string) {
	m.mu.Lock()
	m.secret = []byte(secret)
	m.mu.Unlock()
}

func (m *JWTManager) key() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.secret
}

// Issue 为 email 签发 token
func (m *JWTManager) Issue(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("email is required")
	}

	now := m.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve 校验 token 并返回邮箱。接受带 "Bearer " 前缀的 Authorization 头原文。
func (m *JWTManager) Resolve(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.key(), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		email = strings.TrimSpace(claims.Subject)
	}
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}
