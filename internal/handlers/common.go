// internal/handlers/common.go

// Package handlers 将HTTP请求翻译为核心命令,并把类别化错误映射为状态码
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/types"
)

type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"err,omitempty"`
}

// httpStatus 错误类别→HTTP状态码
func httpStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrBusy):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := httpStatus(err)
	c.JSON(status, Response{
		Code: status,
		Msg:  "request failed",
		Err:  err.Error(),
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Msg:  "ok",
		Data: data,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Code: http.StatusBadRequest,
		Msg:  "invalid request",
		Err:  err.Error(),
	})
}
