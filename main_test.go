package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listResponse = `{
	"response_status": [{"status_code": 2000, "status": "success"}],
	"list_info": {"row_count": 2},
	"requests": [
		{"id": "1", "subject": "Printer", "requester": {"id": "9", "name": "Bob"},
		 "status": {"name": "Open"}, "created_time": {"display_value": "Nov 4, 2025", "value": "1762214400000"}},
		{"id": "2", "subject": "VPN", "requester": {"id": "10", "name": "Ann"},
		 "status": {"name": "Closed"}, "created_time": {"display_value": "Nov 4, 2025", "value": "1762218000000"}}
	]
}`

// isolate keeps the developer's environment and config files out of a test
// and returns the flags pointing at an empty configuration.
func isolate(t *testing.T) []string {
	t.Helper()
	for _, key := range []string{"MG_URL", "AUTHTOKEN", "TECHNICIAN_KEY", "MG_VERIFY_SSL", "MG_TIMEOUT"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	configPath := filepath.Join(dir, "deskview.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: error\n"), 0o644))
	return []string{"--config", configPath, "--env-file", filepath.Join(dir, "missing.env")}
}

func runCLI(t *testing.T, stdin io.Reader, args ...string) (int, string, string) {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	code := run(append(isolate(t), args...), stdin, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, nil, "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "deskview version "+Version+"\n", stdout)
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, stderr := runCLI(t, nil, "view", "--no-such-flag")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "deskview: error:")
}

func TestRun_ConvertFromFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.json")
	jsonData := `{"requests": [{"id": "1", "subject": "X", "requester": {"id": "9", "name": "Bob"}, "priority": {"name": "High"}}]}`
	require.NoError(t, os.WriteFile(input, []byte(jsonData), 0o644))

	code, stdout, stderr := runCLI(t, nil, "convert", "-i", input, "--format", "csv")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "id,subject,requester.id,requester.name,priority.name\n1,X,9,Bob,High\n", stdout)
}

func TestRun_ConvertFromStdinAllColumns(t *testing.T) {
	stdin := strings.NewReader(`{"status": "ok", "data": {"id": "5"}}`)

	code, stdout, stderr := runCLI(t, stdin, "convert", "--columns", "all", "-f", "json")

	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `[{"status": "ok", "data": {"id": "5"}}]`, stdout)
}

func TestRun_ConvertIsTheDefaultCommand(t *testing.T) {
	stdin := strings.NewReader(`[{"id": 1}, {"id": 2}]`)

	code, stdout, stderr := runCLI(t, stdin, "-f", "csv")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "id\n1\n2\n", stdout)
}

func TestRun_ConvertEmptyAndRawResults(t *testing.T) {
	code, stdout, _ := runCLI(t, strings.NewReader(`[]`), "convert")
	assert.Equal(t, 0, code)
	assert.Equal(t, "No tableable data to display.\n", stdout)

	code, stdout, _ = runCLI(t, strings.NewReader(`{"requests": [], "list_info": {"row_count": 0}}`), "convert")
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"requests": [], "list_info": {"row_count": 0}}`, stdout)
}

func TestRun_ConvertInvalidJSON(t *testing.T) {
	code, stdout, stderr := runCLI(t, strings.NewReader(`{not json`), "convert")

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "JSON parsing error")
}

func TestRun_ConvertEmptyStdin(t *testing.T) {
	code, _, stderr := runCLI(t, strings.NewReader(""), "convert")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Input error: empty input received from stdin")
}

func TestRun_ConvertRejectsUnknownFormat(t *testing.T) {
	code, _, stderr := runCLI(t, strings.NewReader(`[]`), "convert", "--format", "xml")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Configuration error")
}

func TestRun_ViewAgainstServer(t *testing.T) {
	var query url.Values
	var token string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		token = r.Header.Get("authtoken")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listResponse))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI(t, nil,
		"--url", server.URL+"/api/v3/requests",
		"--token", "secret",
		"--technician-key", "tech",
		"-f", "csv",
		"view", "--start-date", "2025-11-04", "--end-date", "2025-11-04",
	)

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "secret", token)
	assert.False(t, query.Has("TECHNICIAN_KEY"))
	assert.Contains(t, query.Get("input_data"), `"field":"created_time"`)
	assert.Equal(t,
		"id,subject,requester.id,requester.name,status.name,created_time.display_value\n"+
			"1,Printer,9,Bob,Open,\"Nov 4, 2025\"\n"+
			"2,VPN,10,Ann,Closed,\"Nov 4, 2025\"\n",
		stdout)
}

func TestRun_ViewInvalidWindow(t *testing.T) {
	code, _, stderr := runCLI(t, nil,
		"--url", "http://127.0.0.1:1/api/v3/requests",
		"view", "--start-date", "2025-11-05", "--end-date", "2025-11-04",
	)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Input error")
	assert.Contains(t, stderr, "is not before end")
}

func TestRun_CreateWithExport(t *testing.T) {
	var input string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		input = r.PostForm.Get("input_data")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"request": {"id": "101", "subject": "Printer", "status": {"name": "Open"}},
			"response_status": {"status_code": 2000, "status": "success"}}`))
	}))
	defer server.Close()

	outDir := filepath.Join(t.TempDir(), "exports")
	code, stdout, stderr := runCLI(t, nil,
		"--url", server.URL,
		"-f", "csv", "--export", "--out-dir", outDir,
		"create", "--subject", "Printer", "--requester-name", "Bob",
	)

	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{"request": {"subject": "Printer", "requester": {"name": "Bob"}, "status": {"name": "Open"}}}`, input)
	assert.Equal(t, "id,subject,status.name\n101,Printer,Open\n", stdout)

	exported, err := os.ReadFile(filepath.Join(outDir, "create_response.csv"))
	require.NoError(t, err)
	assert.Equal(t, stdout, string(exported))
}

func TestRun_CreateMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	code, stdout, stderr := runCLI(t, nil, "--url", server.URL, "create", "--subject", "X")

	assert.Equal(t, 1, code)
	assert.Equal(t, "{not json\n", stdout)
	assert.Contains(t, stderr, "Response error: response body is not valid JSON")
}

func TestRun_CreateWithoutURL(t *testing.T) {
	code, _, stderr := runCLI(t, nil, "create", "--subject", "X")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Configuration error: API endpoint is not set")
}

func TestRun_ViewWithoutURL(t *testing.T) {
	code, stdout, stderr := runCLI(t, nil, "view", "--start-date", "2025-11-04", "--end-date", "2025-11-04")

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Configuration error: API endpoint is not set")
}

func TestRun_CreateRequiresSubject(t *testing.T) {
	code, _, stderr := runCLI(t, nil, "create")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--subject")
}

func TestReadInteractiveInput(t *testing.T) {
	var prompt bytes.Buffer
	value, err := readInteractiveInput(strings.NewReader("{\"id\": 1,\n\"name\": \"x\"}"), &prompt)

	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"x"}`, value.Text())
	assert.Contains(t, prompt.String(), "Ctrl+D")
}

func TestReadInteractiveInput_Empty(t *testing.T) {
	var prompt bytes.Buffer
	_, err := readInteractiveInput(strings.NewReader("\n  \n"), &prompt)
	assert.Error(t, err)
}
