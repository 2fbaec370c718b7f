package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data, func(io.Writer) error {
		t.Fatal("text renderer must not run for json output")
		return nil
	})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NO_CAMPAIGN", "no campaign selected", map[string]int{"status": 409})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_CAMPAIGN", resp.Error.Code)
	assert.Equal(t, "no campaign selected", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("queue cleared", nil))
	assert.Equal(t, "queue cleared\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(42, func(w io.Writer) error {
		_, err := fmt.Fprint(w, "rendered")
		return err
	}))
	assert.Equal(t, "rendered", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		verbose bool
		want    []string
		notWant []string
	}{
		{"coded", "NOT_RUNNING", false, []string{"Error [NOT_RUNNING]: farming is not running"}, []string{"Details:"}},
		{"uncoded", "", false, []string{"Error: farming is not running"}, nil},
		{"verbose", "NOT_RUNNING", true, []string{"Details:"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error(tt.code, "farming is not running", map[string]int{"status": 409}))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("control api: %s", DefaultAddr)

			assert.Empty(t, buf.String(), "verbose output never lands on stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "control api: "+DefaultAddr)
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "rejected", errors.New("inner")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: rejected: inner", wrapped.Error())
}
