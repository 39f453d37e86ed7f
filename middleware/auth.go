package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/threadkart/threadkart-backend-go/config"
	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/models"
)

const userContextKey = "user"

type JWTCustomClaims struct {
	UserID primitive.ObjectID `json:"userId"`
	Role   string             `json:"role"`
	jwt.StandardClaims
}

// RequireAuth rejects requests without a valid bearer token and puts
// the authenticated user on the context.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := resolveUser(c)
		if err != nil || user == nil {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{"ok": false, "message": "Unauthorized"})
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// AuthOptional attaches the user when a valid token is present and lets
// anonymous requests through. Guest checkout depends on this.
func AuthOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user, err := resolveUser(c); err == nil && user != nil {
			c.Set(userContextKey, user)
		}
		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := UserFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{"ok": false, "message": "Unauthorized"})
		}
		if !user.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]interface{}{"ok": false, "message": "Forbidden"})
		}
		return next(c)
	}
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(userContextKey).(*models.User)
	return user, ok
}

func resolveUser(c echo.Context) (*models.User, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, fmt.Errorf("malformed authorization header")
	}

	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.GetEnv("JWT_SECRET", "")), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err = database.DB.Collection("users").FindOne(ctx, bson.M{"_id": claims.UserID}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GenerateToken issues a signed token for the given user.
func GenerateToken(user *models.User) (string, error) {
	claims := &JWTCustomClaims{
		UserID: user.ID,
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(72 * time.Hour).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GetEnv("JWT_SECRET", "")))
}
