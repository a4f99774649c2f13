package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxUserName = "user_name"
	CtxUserRole = "user_role"
)

// renewWithin is how close to expiry a token gets a fresh X-New-Token.
const renewWithin = 24 * time.Hour

// IssueToken signs an HS256 session token for the user.
func IssueToken(secret []byte, uid, name, role string, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"name": name,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}).SignedString(secret)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": gin.H{"message": msg}})
}

func JWTAuth(secret []byte, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauthorized(c, "Token de acesso ausente.")
			return
		}
		token, err := jwt.Parse(auth[7:], func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			unauthorized(c, "Token de acesso inválido.")
			return
		}
		claims := token.Claims.(jwt.MapClaims)
		uid, _ := claims["uid"].(string)
		name, _ := claims["name"].(string)
		role, _ := claims["role"].(string)
		if uid == "" {
			unauthorized(c, "Token de acesso inválido.")
			return
		}
		c.Set(CtxUserID, uid)
		c.Set(CtxUserName, name)
		c.Set(CtxUserRole, role)

		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if time.Until(exp.Time) < renewWithin {
				if fresh, err := IssueToken(secret, uid, name, role, ttl); err == nil {
					c.Header("X-New-Token", fresh)
				}
			}
		}

		c.Next()
	}
}
