package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API success response
type Response struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Timestamp  string      `json:"timestamp"`
}

// ErrorDetail carries the request context of a failed call
type ErrorDetail struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

var successMessages = map[string]string{
	"GET":    "Data retrieved successfully",
	"POST":   "Resource created successfully",
	"PUT":    "Resource updated successfully",
	"PATCH":  "Resource updated successfully",
	"DELETE": "Resource deleted successfully",
}

// MessageFor returns the success message used for an HTTP method
func MessageFor(method string) string {
	if msg, ok := successMessages[method]; ok {
		return msg
	}
	return "Operation completed successfully"
}

// Success returns a standard success response wrapping the data
func Success(c *gin.Context, statusCode int, data interface{}) Response {
	return Response{
		Success:    true,
		StatusCode: statusCode,
		Message:    MessageFor(c.Request.Method),
		Data:       data,
		Timestamp:  now(),
	}
}

// Error returns a standard error response wrapping the error message
func Error(c *gin.Context, statusCode int, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			StatusCode: statusCode,
			Message:    message,
			Timestamp:  now(),
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
		},
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
