package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/services"
)

// statusFromError 把服务层哨兵错误映射成HTTP状态码
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), gin.H{"error": err.Error()})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// pagination 解析offset/limit查询参数并钳制范围
func pagination(c *gin.Context) (int, int) {
	query := struct {
		Offset int `form:"offset"`
		Limit  int `form:"limit"`
	}{Limit: 20}

	if err := c.ShouldBindQuery(&query); err != nil {
		return 0, 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Limit < 1 {
		query.Limit = 1
	}
	if query.Limit > 100 {
		query.Limit = 100
	}
	return query.Offset, query.Limit
}
