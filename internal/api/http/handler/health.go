package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/api/http/response"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health reports that the API is serving.
func Health(c *gin.Context) {
	response.OK(c, http.StatusOK, "API is running", healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
