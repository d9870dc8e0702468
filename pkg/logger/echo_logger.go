package logger

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
)

// NewEchoRequestLogger는 HTTP 요청/응답을 zap으로 기록하는 echo 미들웨어를 생성합니다.
// skipPaths에 포함된 경로는 기록하지 않습니다.
func NewEchoRequestLogger(logger *zap.Logger, skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			_, ok := skip[c.Request().URL.Path]
			return ok
		},
		HandleError:  true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogRequestID: true,
		LogUserAgent: true,
		LogStatus:    true,
		LogError:     true,
		LogHeaders:   []string{"Authorization"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.path", v.URIPath),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
			}

			// Authorization 헤더는 앞부분만 남기고 마스킹
			if values := v.Headers["Authorization"]; len(values) > 0 {
				fields = append(fields, zap.String("request.authorization", maskToken(values[0])))
			}

			switch {
			case v.Error != nil:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func maskToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 15 {
		return "[MASKED]"
	}
	return value[:10] + "..." + value[len(value)-5:]
}

// WithEchoLogger는 echo의 내장 로거와 HTTP 에러 핸들러를 zap 기반으로 교체합니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := interface{}(http.StatusText(code))
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = he.Message
		}

		if code >= 500 {
			logger.Error("HTTP error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": message})
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger는 echo.Logger 인터페이스를 구현한 zap 래퍼입니다.
// 레벨, 프리픽스, 헤더 설정은 zap 쪽 설정을 따르므로 무시됩니다.
type EchoZapLogger struct {
	Logger *zap.Logger
}

// NewEchoZapLogger는 echo.Logger 구현체를 생성합니다.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger}
}

func (l *EchoZapLogger) Output() io.Writer       { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(w io.Writer)   {}
func (l *EchoZapLogger) Level() log.Lvl          { return log.INFO }
func (l *EchoZapLogger) SetLevel(v log.Lvl)      {}
func (l *EchoZapLogger) SetHeader(h string)      {}
func (l *EchoZapLogger) Prefix() string          { return "" }
func (l *EchoZapLogger) SetPrefix(p string)      {}
func (l *EchoZapLogger) Print(i ...interface{})  { l.Logger.Sugar().Info(i...) }
func (l *EchoZapLogger) Debug(i ...interface{})  { l.Logger.Sugar().Debug(i...) }
func (l *EchoZapLogger) Info(i ...interface{})   { l.Logger.Sugar().Info(i...) }
func (l *EchoZapLogger) Warn(i ...interface{})   { l.Logger.Sugar().Warn(i...) }
func (l *EchoZapLogger) Error(i ...interface{})  { l.Logger.Sugar().Error(i...) }
func (l *EchoZapLogger) Fatal(i ...interface{})  { l.Logger.Sugar().Fatal(i...) }
func (l *EchoZapLogger) Panic(i ...interface{})  { l.Logger.Sugar().Panic(i...) }
func (l *EchoZapLogger) Printj(j log.JSON)       { l.Logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Debugj(j log.JSON)       { l.Logger.Debug("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Infoj(j log.JSON)        { l.Logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Warnj(j log.JSON)        { l.Logger.Warn("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Errorj(j log.JSON)       { l.Logger.Error("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Fatalj(j log.JSON)       { l.Logger.Fatal("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Panicj(j log.JSON)       { l.Logger.Panic("json_message", zap.Any("json", j)) }

func (l *EchoZapLogger) Printf(format string, i ...interface{}) {
	l.Logger.Sugar().Infof(format, i...)
}

func (l *EchoZapLogger) Debugf(format string, i ...interface{}) {
	l.Logger.Sugar().Debugf(format, i...)
}

func (l *EchoZapLogger) Infof(format string, i ...interface{}) {
	l.Logger.Sugar().Infof(format, i...)
}

func (l *EchoZapLogger) Warnf(format string, i ...interface{}) {
	l.Logger.Sugar().Warnf(format, i...)
}

func (l *EchoZapLogger) Errorf(format string, i ...interface{}) {
	l.Logger.Sugar().Errorf(format, i...)
}

func (l *EchoZapLogger) Fatalf(format string, i ...interface{}) {
	l.Logger.Sugar().Fatalf(format, i...)
}

func (l *EchoZapLogger) Panicf(format string, i ...interface{}) {
	l.Logger.Sugar().Panicf(format, i...)
}

// zapWriter는 io.Writer를 zap Info 로그로 연결합니다.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
