package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragio/internal/ioerr"
)

func TestOutputFormatter_Success(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"rows": 2}))

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
		Error  *CLIError      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data["rows"])
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_Fail(t *testing.T) {
	cause := ioerr.New(ioerr.DriverNotFound, "no driver named %q", "nosuch")

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Fail(ExitCommandError, "resolve driver", cause)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.ErrorIs(t, err, cause)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.True(t, exitErr.Reported)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "DRIVER_NOT_FOUND", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "resolve driver")
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		err := formatter.Fail(ExitFailure, "query failed", errors.New("plain"))
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, "Error [ERROR]: query failed: plain\n", buf.String())
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"verbose_enabled", true, "Executing select\n"},
		{"verbose_disabled", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, log := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, Log: log, Verbose: tt.verbose}

			formatter.VerboseLog("Executing %s", "select")
			assert.Equal(t, tt.want, log.String())
			assert.Empty(t, out.String())
		})
	}

	// Without a log writer diagnostics are dropped.
	formatter := &OutputFormatter{Verbose: true}
	assert.NotPanics(t, func() { formatter.VerboseLog("dropped") })
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "bad flag", NewExitError(ExitCommandError, "bad flag").Error())

	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to load config", cause)
	assert.Equal(t, "failed to load config: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "PARSE_ERROR", ErrorCode(ioerr.New(ioerr.ParseError, "bad")))
	assert.Equal(t, ErrCodeGeneric, ErrorCode(errors.New("plain")))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
