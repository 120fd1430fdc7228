package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status codes carried in the envelope's status field.
const (
	StatusOK                  = "OK"
	StatusBadRequest          = "BAD_REQUEST"
	StatusUnauthorized        = "UNAUTHORIZED"
	StatusNotFound            = "NOT_FOUND"
	StatusMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	StatusConflict            = "CONFLICT"
	StatusTooManyRequests     = "TOO_MANY_REQUESTS"
	StatusInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Envelope wraps every REST response.
type Envelope struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Data    interface{} `json:"data"`
}

// OK sends a 200 response carrying data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Status: StatusOK, Data: data})
}

// Fail aborts with the given HTTP code and envelope status. Data is always null.
func Fail(c *gin.Context, code int, status string) {
	c.AbortWithStatusJSON(code, Envelope{Success: false, Status: status, Data: nil})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context) {
	Fail(c, http.StatusBadRequest, StatusBadRequest)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	Fail(c, http.StatusUnauthorized, StatusUnauthorized)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, StatusNotFound)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Fail(c, http.StatusMethodNotAllowed, StatusMethodNotAllowed)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context) {
	Fail(c, http.StatusConflict, StatusConflict)
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	Fail(c, http.StatusTooManyRequests, StatusTooManyRequests)
}

// InternalError sends a 500 error response. The error is recorded on the
// context for the request logger and never echoed to the client.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Fail(c, http.StatusInternalServerError, StatusInternalServerError)
}
