package steps

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// maxReportScanBytes caps how much trailing output is searched for a report.
const maxReportScanBytes = 1024 * 1024

// reANSI matches ANSI escape codes (CSI sequences) that colourised scripts
// embed in their output. We strip these before looking for JSON.
var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHF]`)

// Report is the optional summary a step command prints on stdout. Any JSON
// object in the output that sets at least one of these fields counts; when
// several do, the last one wins, so progress lines printed earlier are
// harmless.
//
//	{"items_processed": 1200, "items_failed": 3, "warnings": ["3 rows skipped"]}
type Report struct {
	ItemsProcessed *int           `json:"items_processed"`
	ItemsFailed    *int           `json:"items_failed"`
	Errors         []string       `json:"errors"`
	Warnings       []string       `json:"warnings"`
	Data           map[string]any `json:"data"`
}

func (r *Report) empty() bool {
	return r.ItemsProcessed == nil && r.ItemsFailed == nil &&
		len(r.Errors) == 0 && len(r.Warnings) == 0 && len(r.Data) == 0
}

// Apply copies the report into result. Counts overwrite, messages append,
// and Data is stored under the "report" key. Reported errors mark the
// result unsuccessful but, since the command exited cleanly, the engine
// still counts the step as completed.
func (r *Report) Apply(result *workflow.ProcessingResult) {
	if r.ItemsProcessed != nil {
		result.ItemsProcessed = *r.ItemsProcessed
	}
	if r.ItemsFailed != nil {
		result.ItemsFailed = *r.ItemsFailed
	}
	for _, e := range r.Errors {
		result.AddError(e)
	}
	for _, w := range r.Warnings {
		result.AddWarning(w)
	}
	if len(r.Data) > 0 {
		if result.Data == nil {
			result.Data = map[string]any{}
		}
		result.Data["report"] = r.Data
	}
}

// ParseReport returns the last report object found in output. It returns
// (nil, false) when output contains none.
func ParseReport(output string) (*Report, bool) {
	if len(output) > maxReportScanBytes {
		output = output[len(output)-maxReportScanBytes:]
	}
	output = strings.TrimPrefix(output, "\xef\xbb\xbf")
	output = reANSI.ReplaceAllString(output, "")

	objects := topLevelObjects(output)
	for i := len(objects) - 1; i >= 0; i-- {
		var r Report
		if err := json.Unmarshal([]byte(objects[i]), &r); err != nil {
			continue
		}
		if !r.empty() {
			return &r, true
		}
	}
	return nil, false
}

// topLevelObjects returns every balanced, valid JSON object in text that is
// not nested inside another one, in order of appearance.
func topLevelObjects(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchingBrace(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if !json.Valid([]byte(candidate)) {
			continue
		}
		out = append(out, candidate)
		i = end
	}
	return out
}

// matchingBrace returns the index of the '}' that closes the '{' at start,
// or -1. Braces inside double-quoted strings, including escaped quotes, are
// ignored.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
