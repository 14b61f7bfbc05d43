// Package config reads the host configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/harveysanders/glucopanel/glucosemonitor/monitor"
	"github.com/harveysanders/glucopanel/xslog"
)

type Config struct {
	Dexcom          Dexcom        `envPrefix:"DEXCOM_"`
	GMTOffsetSec    int           `env:"GMT_OFFSET_SEC" envDefault:"0"`
	DSTOffsetSec    int           `env:"DST_OFFSET_SEC" envDefault:"0"`
	NTPHost         string        `env:"NTP_HOST" envDefault:"pool.ntp.org"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"60s"`
	TouchRetryDelay time.Duration `env:"TOUCH_RETRY_DELAY" envDefault:"1s"`
	Portal          Portal        `envPrefix:"PORTAL_"`
	// WiFiCredentialsPath defaults to wifi.yaml under the user config dir.
	WiFiCredentialsPath string      `env:"WIFI_CREDENTIALS_PATH"`
	OnlineProbeHost     string      `env:"ONLINE_PROBE_HOST" envDefault:"share2.dexcom.com"`
	MQTT                MQTT        `envPrefix:"MQTT_"`
	// PanelFont names the simulator console face, see display.ParseFont.
	PanelFont string      `env:"PANEL_FONT" envDefault:"proggy"`
	LogLevel  xslog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

type Dexcom struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Region   string `env:"REGION" envDefault:"us"`
	// Timeout bounds each Share request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Portal struct {
	Addr       string        `env:"ADDR" envDefault:":8080"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"3m"`
	NamePrefix string        `env:"NAME_PREFIX" envDefault:"GlucoPanel"`
}

// MQTT configures the reading relay. An empty Addr disables it.
type MQTT struct {
	Addr     string `env:"ADDR"`
	Topic    string `env:"TOPIC" envDefault:"glucopanel/latest"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	ClientID string `env:"CLIENT_ID" envDefault:"glucopanel"`
}

func Read() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel, err = xslog.Parse(string(cfg.LogLevel))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Monitor is the main loop's slice of the configuration.
func (c Config) Monitor() monitor.Config {
	return monitor.Config{
		Username:        c.Dexcom.Username,
		Password:        c.Dexcom.Password,
		GMTOffsetSec:    c.GMTOffsetSec,
		DSTOffsetSec:    c.DSTOffsetSec,
		NTPHost:         c.NTPHost,
		RefreshInterval: c.RefreshInterval,
	}
}
