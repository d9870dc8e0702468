package errors

import "go.uber.org/zap"

// LogError는 에러를 구조화된 로그로 기록합니다. AppError이면 error_code 필드를 추가합니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	allFields := make([]zap.Field, 0, len(fields)+2)
	allFields = append(allFields, zap.Error(err))

	var appErr *AppError
	if As(err, &appErr) {
		allFields = append(allFields, zap.String("error_code", appErr.Code()))
	}

	logger.Error(msg, append(allFields, fields...)...)
}
