package searchconsole

import (
	"encoding/json"
	"fmt"

	sc "google.golang.org/api/searchconsole/v1"
)

const (
	summaryNoInspectionResult = "No inspection result found."
	summaryNoIndexStatus      = "No index status result found."
)

// InspectionSummary pairs a one-line description of a URL inspection with the
// raw result. When the result carries an index status, its fields are
// flattened next to "summary" in the JSON form; otherwise the result is kept
// under "inspectionResult".
type InspectionSummary struct {
	Summary          string
	InspectionResult *sc.UrlInspectionResult
}

// Summarize derives an InspectionSummary from a raw inspection response.
// coverageState and pageFetchState are copied verbatim.
func Summarize(resp *sc.InspectUrlIndexResponse) *InspectionSummary {
	var result *sc.UrlInspectionResult
	if resp != nil {
		result = resp.InspectionResult
	}
	if result == nil {
		return &InspectionSummary{Summary: summaryNoInspectionResult}
	}
	status := result.IndexStatusResult
	if status == nil {
		return &InspectionSummary{Summary: summaryNoIndexStatus, InspectionResult: result}
	}
	return &InspectionSummary{
		Summary:          fmt.Sprintf("Coverage: %s, Fetch State: %s", status.CoverageState, status.PageFetchState),
		InspectionResult: result,
	}
}

// Flattened reports whether the result fields are inlined in the JSON form.
func (s InspectionSummary) Flattened() bool {
	return s.InspectionResult != nil && s.InspectionResult.IndexStatusResult != nil
}

// MarshalJSON implements json.Marshaler.
func (s InspectionSummary) MarshalJSON() ([]byte, error) {
	if !s.Flattened() {
		return json.Marshal(struct {
			Summary          string                  `json:"summary"`
			InspectionResult *sc.UrlInspectionResult `json:"inspectionResult,omitempty"`
		}{s.Summary, s.InspectionResult})
	}

	raw, err := json.Marshal(s.InspectionResult)
	if err != nil {
		return nil, fmt.Errorf("marshal inspection result: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flatten inspection result: %w", err)
	}
	summary, err := json.Marshal(s.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	fields["summary"] = summary
	return json.Marshal(fields)
}
