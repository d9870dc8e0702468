package errors

import "net/http"

// 에러 코드 → HTTP 상태 코드 매핑
var httpStatusByCode = map[string]int{
	ErrInternal:        http.StatusInternalServerError,
	ErrNotFound:        http.StatusNotFound,
	ErrInvalidArgument: http.StatusBadRequest,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrUnauthorized:    http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrUnavailable:     http.StatusServiceUnavailable,
}

// ToHTTPStatus는 에러 코드를 HTTP 상태 코드로 변환합니다. 알 수 없는 코드는 500입니다.
func ToHTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
