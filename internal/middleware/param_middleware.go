package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam валидирует числовой URL-параметр и кладёт его в контекст
// Gin под ключом contextKey, чтобы обработчики группы не парсили его каждый
// сам по себе. Невалидное значение обрывает цепочку с 400.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		// В контексте всегда uint — обработчики делают c.MustGet(...).(uint)
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
