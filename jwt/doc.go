// Package jwt issues and validates the signed access/refresh token pairs
// used by the auth core, backed by github.com/golang-jwt/jwt/v5.
package jwt
