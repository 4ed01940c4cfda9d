package response

import "github.com/gin-gonic/gin"

// Bodies are written bare: list and create answer with a JSON array, which
// is what widget clients decode. Errors use a {"detail": ...} object.

type ErrorBody struct {
	Detail string `json:"detail"`
}

type StatusBody struct {
	Message string `json:"message"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Detail: detail})
}
