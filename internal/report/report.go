// Package report turns an API payload into the single tagged result the
// command layer renders. Transport and decode failures become a failed
// result rather than an error, so callers always have something to show.
package report

import (
	"github.com/mcncl/deskview/internal/errors"
	"github.com/mcncl/deskview/internal/locator"
	"github.com/mcncl/deskview/internal/models"
	"github.com/mcncl/deskview/internal/servicedesk"
	"github.com/mcncl/deskview/internal/tabular"
)

// State tells the renderer what a Result holds
type State int

const (
	// StateTable holds at least one row and one column.
	StateTable State = iota
	// StateEmpty means the payload had nothing to show at all.
	StateEmpty
	// StateRaw means the payload had values but no usable shape.
	StateRaw
	// StateFailed means no payload could be obtained or decoded.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateTable:
		return "table"
	case StateEmpty:
		return "empty"
	case StateRaw:
		return "raw"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LocateFunc picks the part of a payload that holds the records
type LocateFunc func(models.Value) (models.Value, bool)

// View describes how one command presents its payload.
type View struct {
	Title   string
	Columns []string
	Locate  LocateFunc
	// WholeOnEmpty tabulates the entire payload as one row when the located
	// part yields no table.
	WholeOnEmpty bool
}

// Result is what a command hands to the renderer.
type Result struct {
	State      State
	Title      string
	StatusCode int
	Table      models.Table
	// Raw is the decoded payload, set for StateRaw.
	Raw models.Value
	// RawText is the undecodable body, set for StateFailed when one was received.
	RawText string
	Message string
	Err     error
}

// CreateView presents the response to a create call.
func CreateView(columns []string) View {
	return View{Title: "Create Response", Columns: columns, Locate: locator.LocateCreated, WholeOnEmpty: true}
}

// ListView presents a listing of requests.
func ListView(columns []string) View {
	return View{Title: "Requests Export", Columns: columns, Locate: LocateRecords}
}

// LocateRecords adapts locator.Locate to a LocateFunc
func LocateRecords(v models.Value) (models.Value, bool) {
	records, found := locator.Locate(v)
	if !found {
		return models.Null(), false
	}
	return models.Array(records...), true
}

// Build locates, normalizes and projects value for view.
func Build(value models.Value, view View) Result {
	source := value
	located := false
	if view.Locate != nil {
		if part, found := view.Locate(value); found {
			source, located = part, true
		}
	}

	normalized := tabular.Normalize(source)
	if located && view.WholeOnEmpty && normalized.IsEmpty() && value.Kind() == models.KindObject {
		normalized = tabular.Normalize(value)
	}
	table := tabular.Project(normalized, view.Columns)
	result := Result{Title: view.Title, Table: table}

	switch {
	case !table.IsEmpty():
		result.State = StateTable
	case tabular.HasLeaf(value):
		result.State = StateRaw
		result.Raw = value
		result.Message = "Response has no tabular data; showing raw JSON."
	default:
		result.State = StateEmpty
		result.Message = "No tableable data to display."
	}
	return result
}

// FromResponse builds a Result from the outcome of a client call. A
// response with an error status is still rendered; only transport and
// decode failures produce StateFailed.
func FromResponse(resp *servicedesk.Response, err error, view View) Result {
	if err != nil {
		return failed(view, 0, err)
	}
	if resp == nil {
		return failed(view, 0, errors.NewTransportError("no response received", nil))
	}

	value, err := resp.Decode()
	if err != nil {
		return failed(view, resp.StatusCode, err)
	}

	result := Build(value, view)
	result.StatusCode = resp.StatusCode
	return result
}

func failed(view View, status int, err error) Result {
	raw, _ := errors.RawBody(err)
	return Result{
		State:      StateFailed,
		Title:      view.Title,
		StatusCode: status,
		RawText:    raw,
		Message:    errors.UserFriendlyError(err),
		Err:        err,
	}
}
