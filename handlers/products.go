package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/models"
)

// Read-only product endpoints. After a 409 at checkout the client
// re-fetches availability from here; product CRUD itself lives in the
// back office, outside this service's write path.

func GetProduct(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid product ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err = database.DB.Collection("products").FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return respondError(c, http.StatusNotFound, "Product not found")
		}
		return respondError(c, http.StatusInternalServerError, "Failed to fetch product")
	}
	return respondData(c, http.StatusOK, product)
}

func GetProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	cursor, err := database.DB.Collection("products").Find(ctx, bson.M{"active": true})
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "Failed to fetch products")
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return respondError(c, http.StatusInternalServerError, "Failed to fetch products")
	}
	return respondData(c, http.StatusOK, products)
}
