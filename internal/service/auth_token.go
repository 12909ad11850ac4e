package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenExpireHours = 24

// CustomerClaims 顾客令牌声明
type CustomerClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// StaffClaims 员工令牌声明
type StaffClaims struct {
	StaffID uint     `json:"staff_id"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

func registeredClaims(expireHours int) (jwt.RegisteredClaims, time.Time) {
	if expireHours <= 0 {
		expireHours = defaultTokenExpireHours
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}, expiresAt
}

func signClaims(secret string, claims jwt.Claims) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrTokenSecretMissing
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseClaims(secret, tokenString string, claims jwt.Claims) error {
	if strings.TrimSpace(secret) == "" {
		return ErrTokenSecretMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// SignCustomerToken 签发顾客令牌
func SignCustomerToken(secret string, userID uint, expireHours int) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, errors.New("user id required")
	}
	registered, expiresAt := registeredClaims(expireHours)
	token, err := signClaims(secret, &CustomerClaims{UserID: userID, RegisteredClaims: registered})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseCustomerToken 解析顾客令牌
func ParseCustomerToken(secret, tokenString string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	if err := parseClaims(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenInvalid)
	}
	return claims, nil
}

// SignStaffToken 签发员工令牌
func SignStaffToken(secret string, staffID uint, roles []string, expireHours int) (string, time.Time, error) {
	if staffID == 0 {
		return "", time.Time{}, errors.New("staff id required")
	}
	registered, expiresAt := registeredClaims(expireHours)
	token, err := signClaims(secret, &StaffClaims{StaffID: staffID, Roles: roles, RegisteredClaims: registered})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseStaffToken 解析员工令牌
func ParseStaffToken(secret, tokenString string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	if err := parseClaims(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.StaffID == 0 {
		return nil, fmt.Errorf("%w: missing staff_id", ErrTokenInvalid)
	}
	return claims, nil
}
