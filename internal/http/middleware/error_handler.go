package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-backend/internal/dto"
	"github.com/ignatzorin/freelance-backend/internal/logger"
	"github.com/ignatzorin/freelance-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. Хэндлеры кладут
// ошибку через c.Error и выходят; статус, сообщение и бизнес-причина
// берутся из apperror, всё остальное маскируется как 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appErr, ok := apperror.As(err); ok {
			if appErr.HTTPStatus >= http.StatusInternalServerError && logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"error":  appErr.Error(),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Request error")
			}
			c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
				Error:  appErr.Message,
				Reason: appErr.Reason,
			})
			return
		}

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Unhandled request error")
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
		})
	}
}
