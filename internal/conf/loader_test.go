package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  http:
    addr: 0.0.0.0:8000
    timeout: 10s
data:
  database:
    driver: mysql
    source: user:pass@tcp(127.0.0.1:3306)/momentusi?parseTime=True
    migrate: true
  redis:
    addr: 127.0.0.1:6379
client:
  mercado_pago:
    access_token: TEST-abc
    timeout: 5s
  email:
    api_key: re_123
    from: "Momentusi <noreply@momentusi.com.br>"
app:
  base_url: https://momentusi.com.br
  cron_secret: shh
  draft_retention_days: 30
log:
  level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "0.0.0.0:8000", c.Server.Http.Addr)
	assert.True(t, c.Data.Database.Migrate)
	assert.Equal(t, "127.0.0.1:6379", c.Data.Redis.Addr)
	assert.Equal(t, "TEST-abc", c.Client.MercadoPago.AccessToken)
	assert.Equal(t, "re_123", c.Client.Email.ApiKey)
	assert.Equal(t, "https://momentusi.com.br", c.App.BaseUrl)
	assert.Equal(t, 30, c.App.DraftRetentionDays)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Bootstrap {
		c, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		return c
	}

	c := base()
	c.Server = nil
	assert.Error(t, c.Validate())

	c = base()
	c.Data.Database.Source = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Client.MercadoPago.AccessToken = ""
	assert.Error(t, c.Validate())

	c = base()
	c.App = nil
	assert.Error(t, c.Validate())
}

func TestIsSandbox(t *testing.T) {
	assert.True(t, (&MercadoPago{AccessToken: "TEST-abc"}).IsSandbox())
	assert.False(t, (&MercadoPago{AccessToken: "APP_USR-abc"}).IsSandbox())
	// explicit environment wins over the token prefix
	assert.True(t, (&MercadoPago{AccessToken: "APP_USR-abc", Environment: "sandbox"}).IsSandbox())
	assert.False(t, (&MercadoPago{AccessToken: "TEST-abc", Environment: "production"}).IsSandbox())
}
