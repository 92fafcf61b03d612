package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ecommerce/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"code": 0, "data": data})
}

// fail 统一错误出口：按错误类别映射 HTTP 状态码，状态冲突类错误带上 fields 供调用方处理。
func fail(c *gin.Context, log *zap.Logger, err error) {
	e, classified := apperr.As(err)
	if !classified {
		e = apperr.Abort(err)
	}

	status := statusOf(e)
	body := gin.H{"code": status, "msg": e.Message, "error": e.Code}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body["msg"] = "internal error, the operation was rolled back and can be retried"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func statusOf(e *apperr.Error) int {
	switch e.Code {
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	}
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bindError 把 binding 错误转成可读的校验错误。
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
		}
		return apperr.Validation("%s", strings.Join(msgs, "; "))
	}
	return apperr.Validation("malformed request: %v", err)
}

// paramID 解析路径上的正整数 ID。
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}
