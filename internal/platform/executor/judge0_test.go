package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"problem_solver/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSandbox struct {
	submits  atomic.Int32
	fetches  atomic.Int32
	statuses []string // consumed per fetch; the last one repeats
	lastBody submissionRequest
}

func (f *fakeSandbox) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/submissions":
			f.submits.Add(1)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBody))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"token":"tok-1"}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/submissions/tok-1"):
			n := int(f.fetches.Add(1)) - 1
			if n >= len(f.statuses) {
				n = len(f.statuses) - 1
			}
			w.Write([]byte(f.statuses[n]))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, MaxPolls: 10, PollInterval: time.Millisecond})
}

const busyBody = `{"status":{"id":2,"description":"Processing"}}`

func TestExecute_AcceptedAfterPolling(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{
		`{"status":{"id":1,"description":"In Queue"}}`,
		busyBody,
		`{"stdout":"4\n","time":"0.012","memory":3200,"exit_code":0,"status":{"id":3,"description":"Accepted"}}`,
	}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	res, err := newTestClient(server.URL).Execute(context.Background(), "print(2+2)", "python", "")

	require.NoError(t, err)
	assert.Equal(t, "Accepted", res.Status)
	assert.Equal(t, StatusAccepted, res.StatusCode)
	assert.Equal(t, "4\n", res.Output)
	assert.Equal(t, "0.012", res.Time)
	assert.Equal(t, 3200, res.Memory)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, 2, res.Polls)
	assert.EqualValues(t, 3, sb.fetches.Load())

	assert.Equal(t, 71, sb.lastBody.LanguageID)
	assert.Equal(t, 2.0, sb.lastBody.CPUTimeLimit)
	assert.Equal(t, 128000, sb.lastBody.MemoryLimit)
}

func TestExecute_StopsAtPollLimit(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{busyBody}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	res, err := newTestClient(server.URL).Execute(context.Background(), "while True: pass", "python", "")

	require.NoError(t, err)
	assert.Equal(t, "Processing", res.Status)
	assert.Equal(t, 10, res.Polls)
	// one initial fetch plus ten re-polls
	assert.EqualValues(t, 11, sb.fetches.Load())
}

func TestExecute_MergesErrorStreams(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{
		`{"stderr":"","compile_output":"main.c:1: error","status":{"id":6,"description":"Compilation Error"}}`,
	}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	res, err := newTestClient(server.URL).Execute(context.Background(), "int main( {}", "c", "")

	require.NoError(t, err)
	assert.Equal(t, "Compilation Error", res.Status)
	assert.Equal(t, "main.c:1: error", res.Error)
	assert.Empty(t, res.Output)
	assert.Nil(t, res.ExitCode)
}

func TestExecute_UnknownStatusCode(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{`{"status":{"id":42,"description":"???"}}`}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	res, err := newTestClient(server.URL).Execute(context.Background(), "puts 1", "ruby", "")

	require.NoError(t, err)
	assert.Equal(t, StatusUnknownLabel, res.Status)
}

func TestExecute_RejectsBlockedCodeWithoutCallingSandbox(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{busyBody}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	_, err := newTestClient(server.URL).Execute(context.Background(), "os.system('rm -rf /')", "python", "")

	assert.ErrorIs(t, err, common.ErrValidationFailed)
	assert.EqualValues(t, 0, sb.submits.Load())
	assert.EqualValues(t, 0, sb.fetches.Load())
}

func TestExecute_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Execute(context.Background(), "print(1)", "python", "")

	assert.ErrorIs(t, err, common.ErrExecutionTransport)
}

func TestExecute_CancelledWhilePolling(t *testing.T) {
	sb := &fakeSandbox{statuses: []string{busyBody}}
	server := httptest.NewServer(sb.handler(t))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, MaxPolls: 10, PollInterval: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Execute(ctx, "print(1)", "python", "")

	assert.ErrorIs(t, err, common.ErrExecutionTransport)
	assert.EqualValues(t, 1, sb.fetches.Load())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		language string
		ok       bool
	}{
		{"plain python", "def add(a, b):\n    return a + b", "python", true},
		{"case-insensitive language", "console.log(1)", "JavaScript", true},
		{"empty code", "   \n", "python", false},
		{"unsupported language", "print 1", "cobol", false},
		{"os.system", "import os\nos.system('ls')", "python", false},
		{"subprocess", "import subprocess", "python", false},
		{"eval", "eval(input())", "python", false},
		{"child_process", "const cp = require('child_process')", "javascript", false},
		{"java runtime exec", "Runtime.getRuntime().exec(\"ls\")", "java", false},
		{"c system", "int main() { system(\"ls\"); }", "c", false},
		{"go os/exec", "import \"os/exec\"", "go", false},
		{"rust command", "std::process::Command::new(\"ls\")", "rust", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code, tt.language)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrValidationFailed)
			}
		})
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Wrong Answer", StatusLabel(4))
	assert.Equal(t, "Runtime Error (NZEC)", StatusLabel(11))
	assert.Equal(t, "Exec Format Error", StatusLabel(14))
	assert.Equal(t, "Unknown", StatusLabel(0))
	assert.True(t, IsBusy(1))
	assert.False(t, IsBusy(3))
}
