package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/middleware"
	"github.com/threadkart/threadkart-backend-go/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return respondError(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users := database.DB.Collection("users")
	count, err := users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error")
	}
	if count > 0 {
		return respondError(c, http.StatusBadRequest, "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error")
	}

	now := time.Now()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := users.InsertOne(ctx, user); err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error")
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error")
	}
	return respondData(c, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err := database.DB.Collection("users").FindOne(ctx, bson.M{
		"email": strings.ToLower(strings.TrimSpace(req.Email)),
	}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return respondError(c, http.StatusUnauthorized, "Invalid credentials")
		}
		return respondError(c, http.StatusInternalServerError, "Server error")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return respondError(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "Server error")
	}
	return respondData(c, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}
