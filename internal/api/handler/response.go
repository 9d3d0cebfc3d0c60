package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondSuccessMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

func respondAccepted(c *gin.Context, data any, message string) {
	c.JSON(http.StatusAccepted, Response{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{Success: false, Message: message})
}

func respondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "Internal server error")
}

func respondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, message)
}

func respondUnauthorized(c *gin.Context, message string) {
	respondError(c, http.StatusUnauthorized, message)
}

func respondValidationError(c *gin.Context, errors any, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message, Errors: errors})
}
