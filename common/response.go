package common

import "github.com/gin-gonic/gin"

// Response envelope used by every endpoint: status is "success" for 2xx,
// "fail" for 4xx and "error" for 5xx. List responses carry a results count.

func Success(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{
		"status": "success",
		"data":   data,
	})
}

func SuccessList(c *gin.Context, code int, results int, data any) {
	c.JSON(code, gin.H{
		"status":  "success",
		"results": results,
		"data":    data,
	})
}

func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"status":  "fail",
		"message": message,
	})
}

// FailFields reports a validation failure with per-field messages.
func FailFields(c *gin.Context, code int, message string, fields map[string]string) {
	c.JSON(code, gin.H{
		"status":  "fail",
		"message": message,
		"errors":  fields,
	})
}

func Error(c *gin.Context, message string) {
	c.JSON(500, gin.H{
		"status":  "error",
		"message": message,
	})
}
