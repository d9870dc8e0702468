package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// AppError는 코드가 붙은 애플리케이션 에러입니다.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

// Code는 에러 코드를 반환합니다.
func (e *AppError) Code() string { return e.code }

// Message는 내부 에러를 제외한 메시지를 반환합니다.
func (e *AppError) Message() string { return e.message }

func (e *AppError) Unwrap() error { return e.err }

// NewAppError는 새 애플리케이션 에러를 생성합니다.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Wrap은 기존 에러를 래핑합니다. AppError인 경우 코드를 유지합니다.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}
	return NewAppError(ErrInternal, message, err)
}

// CodeOf는 에러 체인에서 AppError 코드를 찾습니다. 없으면 ErrInternal입니다.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
