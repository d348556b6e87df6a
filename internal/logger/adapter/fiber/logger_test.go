package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	adapter "github.com/evaka-go/apigw/internal/logger/adapter/fiber"

	"github.com/evaka-go/apigw/internal/logger"
)

// accessLogLine is the json shape of one access log statement.
type accessLogLine struct {
	IP     string  `json:"IP"`
	Status int     `json:"status"`
	URI    string  `json:"URI"`
	Method string  `json:"method"`
	Perf   float64 `json:"X-Performance"`
}

func runRequest(t *testing.T, cfg adapter.Config, targetPath string) (string, *fiber.App) {
	t.Helper()

	stdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	app := fiber.New()
	app.Use(adapter.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("OK") })

	req := httptest.NewRequest(fiber.MethodGet, targetPath, nil)

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.NotNil(t, resp)

	// The performance header is set on every response.
	assert.NotEmpty(t, resp.Header.Get("X-Performance"))

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout

	return <-outC, app
}

func consoleConfig() adapter.Config {
	return adapter.Config{
		Config: logger.Log{
			EnableAccessLogToConsole: true,
			Console:                  logger.Console{Enabled: true},
		},
	}
}

func TestNew_LogsRequestAsJSON(t *testing.T) {
	out, _ := runRequest(t, consoleConfig(), "/")

	assert.NotEmpty(t, out)

	var line accessLogLine
	assert.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, "/", line.URI)
	assert.Equal(t, fiber.MethodGet, line.Method)
	assert.Equal(t, 200, line.Status)
}

func TestNew_LogsNotFoundStatus(t *testing.T) {
	out, _ := runRequest(t, consoleConfig(), "/no-such-route")

	var line accessLogLine
	assert.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, 404, line.Status)
}

func TestNew_SkipsLivenessProbe(t *testing.T) {
	cfg := consoleConfig()
	cfg.Config.DisableCheckAlive = true
	cfg.CheckAliveURI = "/healthz"

	out, _ := runRequest(t, cfg, "/healthz")

	assert.Empty(t, out)
}

func TestNew_NoConsoleOutputWhenDisabled(t *testing.T) {
	out, _ := runRequest(t, adapter.Config{}, "/")

	assert.Empty(t, out)
}
