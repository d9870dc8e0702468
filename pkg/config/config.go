// Package config는 서비스 설정 파일과 환경 변수를 읽어오는 패키지입니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 인터페이스는 설정 값에 액세스하기 위한 메서드를 정의합니다.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringMap(key string) map[string]interface{}
	IsSet(key string) bool
	// Unmarshal은 전체 설정을 구조체로 디코딩합니다 (mapstructure 태그 사용).
	Unmarshal(out interface{}) error
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string { return c.v.GetString(key) }

func (c *viperConfig) GetInt(key string) int { return c.v.GetInt(key) }

func (c *viperConfig) GetBool(key string) bool { return c.v.GetBool(key) }

func (c *viperConfig) GetStringMap(key string) map[string]interface{} {
	return c.v.GetStringMap(key)
}

func (c *viperConfig) IsSet(key string) bool { return c.v.IsSet(key) }

func (c *viperConfig) Unmarshal(out interface{}) error {
	return c.v.Unmarshal(out)
}

// 설정 디렉토리 경로
const configDir = "configs"

// Options는 Load 동작을 조정합니다.
type Options struct {
	// EnvPrefix 환경 변수 접두사 (기본값: 서비스 이름 대문자)
	EnvPrefix string
	// Defaults 설정 파일에 없는 키의 기본값
	Defaults map[string]interface{}
	// BindEnv 설정 키 → 추가로 읽을 환경 변수 이름 (앞에 있을수록 우선)
	BindEnv map[string][]string
}

// Load는 지정된 서비스 이름에 해당하는 설정 파일을 로드합니다.
//
// 검색 순서: $CONFIG_PATH, configs/{APP_ENV}, configs/example.
// 같은 디렉토리의 .env 파일이 있으면 먼저 환경 변수로 읽어들입니다.
func Load(serviceName string, opts Options) (Config, error) {
	// .env 파일은 선택 사항
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = strings.ToUpper(serviceName)
	}
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}
	for key, envNames := range opts.BindEnv {
		args := append([]string{key, prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envNames...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("환경 변수 바인딩 실패 (%s): %w", key, err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	v.SetConfigName(serviceName)
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(filepath.Join(configDir, env))
	v.AddConfigPath(filepath.Join(configDir, "example"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
		// 설정 파일이 없으면 기본값과 환경 변수만 사용
	}

	return &viperConfig{v: v}, nil
}
