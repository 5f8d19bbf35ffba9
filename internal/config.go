package internal

import (
	"consult-chat/errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

var validate = validator.New()

type Config struct {
	WebSocketURL         string        `env:"CONSULT_WS_URL,default=ws://localhost:8080/ws" validate:"required,url"`
	RegistryURL          string        `env:"CONSULT_REGISTRY_URL,default=http://localhost:8080" validate:"required,url"`
	Token                string        `env:"CONSULT_TOKEN"`
	TokenFile            string        `env:"CONSULT_TOKEN_FILE"`
	StaffRoles           string        `env:"CONSULT_STAFF_ROLES,default=STAFF|PHARMACIST|ADMIN"`
	StaffGreeting        string        `env:"CONSULT_STAFF_GREETING"`
	ReconnectInterval    time.Duration `env:"RECONNECT_INTERVAL,default=5s" validate:"gt=0"`
	MaxReconnectInterval time.Duration `env:"MAX_RECONNECT_INTERVAL,default=60s" validate:"gtefield=ReconnectInterval"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT,default=10s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	RoomTimeout          time.Duration `env:"ROOM_TIMEOUT,default=15s" validate:"gt=0"`
	SendBufferSize       int           `env:"SEND_BUFFER_SIZE,default=64" validate:"gte=2"`
	LargeAttachmentBytes int           `env:"LARGE_ATTACHMENT_BYTES,default=5242880" validate:"gt=0"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

// StaffRoleList splits CONSULT_STAFF_ROLES on "|".
func (c Config) StaffRoleList() []string {
	roles := lo.Map(strings.Split(c.StaffRoles, "|"), func(r string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(r))
	})
	return lo.Compact(roles)
}
