package servicedesk

import "strconv"

// DefaultStatus is used when a create call names no status.
const DefaultStatus = "Open"

// CreateInput holds the fields an operator fills in for a new request.
type CreateInput struct {
	Subject       string
	Description   string
	RequesterID   string
	RequesterName string
	Resolution    string
	SiteName      string
	SiteID        string
	AccountName   string
	AccountID     string
	Status        string
}

type createPayload struct {
	Request createRequest `json:"request"`
}

type createRequest struct {
	Subject     string       `json:"subject"`
	Description string       `json:"description,omitempty"`
	Requester   *namedRef    `json:"requester,omitempty"`
	Resolution  *resolution  `json:"resolution,omitempty"`
	Site        *namedRef    `json:"site,omitempty"`
	Account     *namedRef    `json:"account,omitempty"`
	Status      *statusField `json:"status,omitempty"`
}

type namedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type resolution struct {
	Content string `json:"content"`
}

type statusField struct {
	Name string `json:"name"`
}

func ref(id, name string) *namedRef {
	if id == "" && name == "" {
		return nil
	}
	return &namedRef{ID: id, Name: name}
}

// Payload returns the document sent as input_data. Groups with no values
// are left out and ids stay strings.
func (in CreateInput) Payload() any {
	req := createRequest{
		Subject:     in.Subject,
		Description: in.Description,
		Requester:   ref(in.RequesterID, in.RequesterName),
		Site:        ref(in.SiteID, in.SiteName),
		Account:     ref(in.AccountID, in.AccountName),
	}
	if in.Resolution != "" {
		req.Resolution = &resolution{Content: in.Resolution}
	}
	status := in.Status
	if status == "" {
		status = DefaultStatus
	}
	req.Status = &statusField{Name: status}
	return createPayload{Request: req}
}

type listPayload struct {
	ListInfo listInfo `json:"list_info"`
}

type listInfo struct {
	StartIndex     int               `json:"start_index"`
	SearchCriteria []searchCriterion `json:"search_criteria"`
}

type searchCriterion struct {
	Condition       string `json:"condition"`
	Field           string `json:"field"`
	LogicalOperator string `json:"logical_operator"`
	Value           string `json:"value"`
}

// ListPayload returns the input_data document selecting requests whose
// created_time lies in [window.Start, window.End).
func ListPayload(window Window) any {
	return listPayload{
		ListInfo: listInfo{
			StartIndex: 1,
			SearchCriteria: []searchCriterion{
				{
					Condition:       "greater or equal",
					Field:           "created_time",
					LogicalOperator: "and",
					Value:           strconv.FormatInt(EpochMillis(window.Start), 10),
				},
				{
					Condition:       "lesser than",
					Field:           "created_time",
					LogicalOperator: "and",
					Value:           strconv.FormatInt(EpochMillis(window.End), 10),
				},
			},
		},
	}
}
