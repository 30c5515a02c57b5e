package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader — заголовок с ключом администратора.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware защищает админские маршруты резолюции споров.
// В конфигурации хранится только bcrypt-хэш ключа, сам ключ никогда
// не попадает в окружение сервиса.
func AdminKeyMiddleware(adminKeyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "админский доступ не настроен",
			})
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "требуется ключ администратора",
			})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "ключ администратора невалиден",
			})
			return
		}

		c.Next()
	}
}
