package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPError는 에러를 echo HTTP 에러로 변환합니다.
// AppError의 경우 내부 에러는 응답에 노출하지 않고 메시지만 사용합니다.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return echo.NewHTTPError(ToHTTPStatus(appErr.Code()), appErr.Message())
	}

	var echoErr *echo.HTTPError
	if As(err, &echoErr) {
		return echoErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
