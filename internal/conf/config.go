package conf

import (
	"fmt"
	"strings"
)

type Bootstrap struct {
	Server *Server `yaml:"server" json:"server"`
	Data   *Data   `yaml:"data" json:"data"`
	Client *Client `yaml:"client" json:"client"`
	App    *App    `yaml:"app" json:"app"`
	Log    *Log    `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver  string `yaml:"driver" json:"driver"`
		Source  string `yaml:"source" json:"source"`
		Migrate bool   `yaml:"migrate" json:"migrate"`

		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	} `yaml:"redis" json:"redis"`
}

type Client struct {
	MercadoPago *MercadoPago `yaml:"mercado_pago" json:"mercado_pago"`
	Email       *Email       `yaml:"email" json:"email"`
}

type MercadoPago struct {
	// AccessToken credential; a TEST- prefix selects the sandbox checkout
	AccessToken string `yaml:"access_token" json:"access_token"`
	// BaseUrl gateway API base, overridable for tests
	BaseUrl string `yaml:"base_url" json:"base_url"`
	// Environment forces sandbox/production regardless of token prefix
	Environment string `yaml:"environment" json:"environment"`
	Timeout     string `yaml:"timeout" json:"timeout"`
}

type Email struct {
	ApiKey string `yaml:"api_key" json:"api_key"`
	From   string `yaml:"from" json:"from"`
}

type App struct {
	// BaseUrl public base URL of the app; first link in the resolution chain
	BaseUrl string `yaml:"base_url" json:"base_url"`
	// WebhookBaseUrl overrides the notification callback base when set
	WebhookBaseUrl string `yaml:"webhook_base_url" json:"webhook_base_url"`
	// CronSecret shared secret guarding the internal cron endpoints
	CronSecret string `yaml:"cron_secret" json:"cron_secret"`
	// DraftRetentionDays unpaid drafts older than this get cleaned up
	DraftRetentionDays int `yaml:"draft_retention_days" json:"draft_retention_days"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// IsSandbox reports whether checkout should use the sandbox entry point.
// An explicit environment override wins; otherwise the credential prefix
// decides (TEST- tokens cannot charge real money).
func (m *MercadoPago) IsSandbox() bool {
	switch strings.ToLower(m.Environment) {
	case "sandbox":
		return true
	case "production":
		return false
	}
	return strings.HasPrefix(m.AccessToken, "TEST-")
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Client == nil || b.Client.MercadoPago == nil || b.Client.MercadoPago.AccessToken == "" {
		return fmt.Errorf("client.mercado_pago.access_token is required")
	}
	if b.App == nil {
		return fmt.Errorf("app configuration is required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}
