package config

import (
	"os"
	"strconv"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	ArcGIS   ArcGISConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Enabled  bool
}

// ArcGISConfig ArcGIS 服务区分析配置
type ArcGISConfig struct {
	// 服务区求解端点
	ServiceAreaURL string
	// 令牌签发门户（authority）
	PortalURL string
	Username  string
	Password  string
	Referer   string
	// 传输类错误的最大重试次数，0 表示不重试
	MaxRetries int
	// 新点击是否取消仍在进行中的旧分析
	CancelSuperseded bool
}

// DSN 返回数据库连接字符串
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Load 加载配置（从环境变量）
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "drive_time_analysis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getEnvBool("DB_ENABLED", true),
		},
		ArcGIS: ArcGISConfig{
			ServiceAreaURL: getEnv("ARCGIS_SERVICEAREA_URL",
				"https://route.arcgis.com/arcgis/rest/services/World/ServiceAreas/NAServer/ServiceArea_World/solveServiceArea"),
			PortalURL:        getEnv("ARCGIS_PORTAL_URL", "https://www.arcgis.com"),
			Username:         getEnv("ARCGIS_USERNAME", ""),
			Password:         getEnv("ARCGIS_PASSWORD", ""),
			Referer:          getEnv("ARCGIS_REFERER", "drive-time-analysis"),
			MaxRetries:       getEnvInt("ARCGIS_MAX_RETRIES", 0),
			CancelSuperseded: getEnvBool("ARCGIS_CANCEL_SUPERSEDED", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
