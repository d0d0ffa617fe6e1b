package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/services"
)

type JWTConfig struct {
	Secret string
}

type Claims struct {
	ProfileID string `json:"profile_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

func GenerateToken(profileID, username, secret string, expireSeconds int64) (string, error) {
	claims := &Claims{
		ProfileID: profileID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireSeconds) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// websocket握手带不了自定义头，退化到query参数
	return c.Query("token")
}

// setActor 把已认证身份同时写入gin上下文和请求上下文，
// 服务层只从请求上下文读取
func setActor(c *gin.Context, claims *Claims) error {
	profileID, err := uuid.Parse(claims.ProfileID)
	if err != nil {
		return fmt.Errorf("invalid profile ID in token: %w", err)
	}

	c.Set("profile_id", claims.ProfileID)
	c.Set("username", claims.Username)
	c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), profileID))
	return nil
}

func NewJWTAuth(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := parseToken(tokenString, config.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if err := setActor(c, claims); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// NewOptionalJWTAuth 有token就解析注入观察者身份，没有照常放行，
// 匿名读取不做逐条标注
func NewOptionalJWTAuth(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString != "" {
			if claims, err := parseToken(tokenString, config.Secret); err == nil {
				_ = setActor(c, claims)
			}
		}
		c.Next()
	}
}

func GetProfileID(c *gin.Context) string {
	return c.GetString("profile_id")
}
