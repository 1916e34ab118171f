package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del backend de desarrollo.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"12h"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SendWindow    time.Duration `env:"CHAT_SEND_WINDOW" envDefault:"10s"`
	SendMax       int           `env:"CHAT_SEND_MAX" envDefault:"20"`
	PresenceTTL   time.Duration `env:"CHAT_PRESENCE_TTL" envDefault:"90s"`
}

// ClientConfig agrupa lo que necesita el cliente de chat para conectarse.
type ClientConfig struct {
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	WSBaseURL   string        `env:"WS_BASE_URL"`
	AuthToken   string        `env:"AUTH_TOKEN,required,notEmpty"`
	UserID      string        `env:"USER_ID,required,notEmpty"`
	UserName    string        `env:"USER_NAME"`
	UserRole    string        `env:"USER_ROLE" envDefault:"PATIENT"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	TimeZone    string        `env:"CHAT_TIMEZONE" envDefault:"Local"`
	DateLayout  string        `env:"CHAT_DATE_LAYOUT" envDefault:"02/01/2006"`
	LogFile     string        `env:"CHAT_LOG_FILE" envDefault:"cli_chat.log"`
}

// LoadConfig carga la configuración del servidor desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClientConfig carga la configuración del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resuelve la zona horaria usada para agrupar mensajes por día.
func (c *ClientConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
