// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "huanbo/pkg/domain-errors"
)

// ErrorResponse is the envelope of non-form failures. Error is a localized,
// user-facing message, never an internal detail.
type ErrorResponse struct {
	Error string `json:"error"`
}

var publicMessages = map[dErrors.Code]string{
	dErrors.CodeBadRequest:   "请求格式错误",
	dErrors.CodeValidation:   "表单验证失败",
	dErrors.CodeUnauthorized: "未授权访问",
	dErrors.CodeForbidden:    "未授权访问",
	dErrors.CodeNotFound:     "资源不存在",
	dErrors.CodeRateLimited:  "请求过于频繁，请稍后再试",
	dErrors.CodeUnavailable:  "服务暂时不可用",
}

const internalMessage = "服务器错误"

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with the status and localized message for err's domain
// code. Errors without a code are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg, ok := publicMessages[code]
	if !ok {
		msg = internalMessage
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), &ErrorResponse{Error: msg})
}
