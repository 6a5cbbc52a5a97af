package report

import (
	"testing"

	"github.com/mcncl/deskview/internal/errors"
	"github.com/mcncl/deskview/internal/models"
	"github.com/mcncl/deskview/internal/parser"
	"github.com/mcncl/deskview/internal/servicedesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) models.Value {
	t.Helper()
	v, err := parser.ParseString(input)
	require.NoError(t, err)
	return v
}

func TestBuild_ListingWithPreferredColumns(t *testing.T) {
	value := mustParse(t, `{"requests": [{"id": "1", "subject": "X", "requester": {"id": "9", "name": "Bob"}}]}`)

	result := Build(value, ListView([]string{"id", "subject", "requester.id", "requester.name"}))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, "Requests Export", result.Title)
	assert.Equal(t, []string{"id", "subject", "requester.id", "requester.name"}, result.Table.Columns)
	assert.Equal(t, [][]string{{"1", "X", "9", "Bob"}}, result.Table.Records())
}

func TestBuild_SingleObjectFallback(t *testing.T) {
	value := mustParse(t, `{"status": "ok", "data": {"id": "5"}}`)

	result := Build(value, ListView(nil))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, []string{"status", "data.id"}, result.Table.Columns)
	assert.Equal(t, [][]string{{"ok", "5"}}, result.Table.Records())
}

func TestBuild_NoMatchingPreferredColumnsKeepsEverything(t *testing.T) {
	value := mustParse(t, `[{"id": "1", "subject": "A"}, {"id": "2", "subject": "B"}]`)

	result := Build(value, ListView([]string{"nonexistent_col"}))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, []string{"id", "subject"}, result.Table.Columns)
	assert.Equal(t, 2, result.Table.Len())
}

func TestBuild_CreateResponse(t *testing.T) {
	value := mustParse(t, `{
		"request": {
			"id": "101",
			"subject": "Printer",
			"requester": {"id": "9", "name": "Bob"},
			"status": {"name": "Open", "color": "#0066ff"},
			"created_time": {"display_value": "Nov 4, 2025 10:00 AM", "value": "1762250400000"}
		},
		"response_status": {"status_code": 2000, "status": "success"}
	}`)

	result := Build(value, CreateView([]string{"id", "subject", "requester.name", "status.name", "created_time.display_value"}))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, "Create Response", result.Title)
	assert.Equal(t, [][]string{{"101", "Printer", "Bob", "Open", "Nov 4, 2025 10:00 AM"}}, result.Table.Records())
}

func TestBuild_CreateResponseWithEmptyCollection(t *testing.T) {
	value := mustParse(t, `{"requests": [], "status": "ok"}`)

	result := Build(value, CreateView(nil))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, []string{"requests", "status"}, result.Table.Columns)
	assert.Equal(t, [][]string{{"[]", "ok"}}, result.Table.Records())

	// Listings keep reporting the empty collection.
	assert.Equal(t, StateRaw, Build(value, ListView(nil)).State)
}

func TestBuild_States(t *testing.T) {
	tests := []struct {
		name  string
		input string
		state State
	}{
		{"empty array", `[]`, StateEmpty},
		{"empty object", `{}`, StateEmpty},
		{"null", `null`, StateEmpty},
		{"nested empty containers", `{"requests": [], "meta": {}}`, StateEmpty},
		{"empty list beside metadata", `{"requests": [], "list_info": {"row_count": 0}}`, StateRaw},
		{"scalar", `"hello"`, StateTable},
		{"array of scalars", `[1, 2, 3]`, StateTable},
		{"objects", `[{"id": 1}]`, StateTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := mustParse(t, tt.input)
			result := Build(value, ListView(nil))

			assert.Equal(t, tt.state, result.State, "state %s", result.State)
			switch tt.state {
			case StateEmpty:
				assert.Equal(t, "No tableable data to display.", result.Message)
			case StateRaw:
				assert.True(t, result.Raw.Equal(value))
			case StateTable:
				assert.False(t, result.Table.IsEmpty())
			}
		})
	}
}

func TestBuild_LeafPayloadIsNeverAnEmptyTable(t *testing.T) {
	inputs := []string{
		`{"requests": [], "list_info": {"row_count": 0}}`,
		`{"a": {"b": {"c": null}}}`,
		`{"records": [[], []]}`,
		`[{}, {"x": 1}]`,
		`{"data": [], "response_status": [{"status": "success"}]}`,
		`false`,
	}

	for _, input := range inputs {
		value := mustParse(t, input)
		require.True(t, hasLeafForTest(value), input)

		for _, view := range []View{ListView(nil), CreateView(nil), ListView([]string{"id"})} {
			result := Build(value, view)
			switch result.State {
			case StateTable:
				assert.False(t, result.Table.IsEmpty(), input)
			case StateRaw:
			default:
				t.Errorf("%s via %q: unexpected state %s", input, view.Title, result.State)
			}
		}
	}
}

func hasLeafForTest(v models.Value) bool {
	switch v.Kind() {
	case models.KindArray:
		items, _ := v.AsArray()
		for _, item := range items {
			if hasLeafForTest(item) {
				return true
			}
		}
		return false
	case models.KindObject:
		obj, _ := v.AsObject()
		for _, key := range obj.Keys() {
			member, _ := obj.Get(key)
			if hasLeafForTest(member) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func TestFromResponse_MalformedBody(t *testing.T) {
	resp := &servicedesk.Response{StatusCode: 200, Body: "{not json", ContentType: "application/json"}

	result := FromResponse(resp, nil, ListView(nil))

	require.Equal(t, StateFailed, result.State)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "{not json", result.RawText)
	assert.Equal(t, "Response error: response body is not valid JSON", result.Message)
	require.Error(t, result.Err)
}

func TestFromResponse_TransportError(t *testing.T) {
	err := errors.NewTransportError("GET https://desk.example.com/api/v3/requests failed", assert.AnError)

	result := FromResponse(nil, err, ListView(nil))

	require.Equal(t, StateFailed, result.State)
	assert.Zero(t, result.StatusCode)
	assert.Empty(t, result.RawText)
	assert.Contains(t, result.Message, "Request error:")
	assert.ErrorIs(t, result.Err, assert.AnError)
}

func TestFromResponse_NilResponse(t *testing.T) {
	result := FromResponse(nil, nil, CreateView(nil))
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, "Create Response", result.Title)
}

func TestFromResponse_ErrorStatusIsRendered(t *testing.T) {
	body := `{"response_status": {"status_code": 4001, "status": "failed", "messages": [{"message": "Invalid token"}]}}`
	resp := &servicedesk.Response{StatusCode: 401, Body: body, ContentType: "application/json"}

	result := FromResponse(resp, nil, CreateView([]string{"id"}))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, 401, result.StatusCode)
	assert.Equal(t, []string{
		"response_status.status_code",
		"response_status.status",
		"response_status.messages",
	}, result.Table.Columns)
	assert.Equal(t, `[{"message":"Invalid token"}]`, result.Table.Records()[0][2])
}

func TestFromResponse_UsesParsedValue(t *testing.T) {
	parsed := models.Array(models.String("only"))
	resp := &servicedesk.Response{StatusCode: 200, Body: "ignored", Value: parsed, Parsed: true}

	result := FromResponse(resp, nil, ListView(nil))

	require.Equal(t, StateTable, result.State)
	assert.Equal(t, [][]string{{"only"}}, result.Table.Records())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "table", StateTable.String())
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "raw", StateRaw.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
