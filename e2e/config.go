package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CONSULT_E2E_WS_URL targets a real broker. Empty starts an in-process one.
	WsURL          string `envconfig:"CONSULT_E2E_WS_URL"`
	CustomerToken  string `envconfig:"CONSULT_E2E_CUSTOMER_TOKEN" default:"e2e-customer"`
	StaffToken     string `envconfig:"CONSULT_E2E_STAFF_TOKEN" default:"e2e-pharmacist"`
	ConsultationID int64  `envconfig:"CONSULT_E2E_CONSULTATION_ID" default:"4242"`
	// E2E_DEBUG_FRAMES dumps every frame written and read by the sessions
	DebugFrames bool `envconfig:"E2E_DEBUG_FRAMES" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
