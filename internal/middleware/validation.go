package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidatedQueryKey is the context key holding the bound query struct.
const ValidatedQueryKey = "validated_query"

var validate = validator.New()

// ValidateQuery binds the query string into a new T, checks its `validate`
// tags, and stores a *T under ValidatedQueryKey.
func ValidateQuery[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := new(T)
		if err := c.ShouldBindQuery(v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid query parameters",
				"details": err.Error(),
			})
			return
		}

		if err := validate.Struct(v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Validation failed",
				"details": err.Error(),
			})
			return
		}

		c.Set(ValidatedQueryKey, v)
		c.Next()
	}
}
