package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/logger"
)

func TestInit(t *testing.T) {
	type testCase struct {
		name             string
		cfg              logger.Log
		shouldHaveOutput bool
		outputIsJSON     bool
	}

	testCases := []testCase{
		{
			name: "nothing enabled produces no output",
			cfg: logger.Log{
				LogLevel:    "",
				ServiceName: "apigw-test",
				AppName:     "apigw-test",
			},
			shouldHaveOutput: false,
		},
		{
			name: "console writer output",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "apigw-test",
				AppName:     "apigw-test",
				Console:     logger.Console{Enabled: true, UseConsoleWriter: true},
			},
			shouldHaveOutput: true,
		},
		{
			name: "plain console output is json",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "apigw-test",
				AppName:     "apigw-test",
				Console:     logger.Console{Enabled: true},
			},
			shouldHaveOutput: true,
			outputIsJSON:     true,
		},
		{
			name: "trace level with caller is json",
			cfg: logger.Log{
				LogLevel:     "trace",
				ServiceName:  "apigw-test",
				AppName:      "apigw-test",
				ReportCaller: true,
				Console:      logger.Console{Enabled: true},
			},
			shouldHaveOutput: true,
			outputIsJSON:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := captureInitOutput(t, tc.cfg)

			if out == "" && tc.shouldHaveOutput {
				t.Errorf("expected console output but got none")
			}

			if !tc.outputIsJSON {
				return
			}

			for _, line := range strings.Split(out, "\n") {
				if line == "" {
					continue
				}

				var decoded map[string]interface{}
				if err := json.Unmarshal([]byte(line), &decoded); err != nil {
					t.Errorf("expected json output but got: %s", line)
				}
			}
		})
	}
}

func TestInit_RequiresNames(t *testing.T) {
	err := logger.Init(logger.Log{ServiceName: "apigw-test"})
	if !errors.Is(err, logger.ErrAppNameIsEmpty) {
		t.Errorf("error = %v, want ErrAppNameIsEmpty", err)
	}

	err = logger.Init(logger.Log{AppName: "apigw-test"})
	if !errors.Is(err, logger.ErrServiceNameIsEmpty) {
		t.Errorf("error = %v, want ErrServiceNameIsEmpty", err)
	}
}

// captureInitOutput initializes the logger with the given config,
// emits a few log statements and returns everything written to the
// console.
func captureInitOutput(t *testing.T, cfg logger.Log) string {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	if err := logger.Init(cfg); err != nil {
		t.Error(err)
	}

	log.Info().Msg("info message for the capture")
	log.Error().Msg("error message for the capture")
	log.Trace().Msg("trace message for the capture")

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			t.Error(err)
		}
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC
}
