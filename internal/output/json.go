package output

import (
	"encoding/json"

	"github.com/docgate/docgate/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type attemptDocument struct {
	core.Attempt
	DurationMS int64           `json:"duration_ms"`
	Endpoint   string          `json:"endpoint,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// FormatAttempt renders one attempt as a JSON object.
func (f *JSONFormatter) FormatAttempt(attempt core.Attempt, result *core.SubmissionResult) (string, error) {
	doc := attemptDocument{Attempt: attempt, DurationMS: attempt.Duration().Milliseconds()}
	if result != nil {
		doc.Endpoint = result.Endpoint
		if json.Valid(result.Body) {
			doc.Response = json.RawMessage(result.Body)
		} else if len(result.Body) > 0 {
			quoted, err := json.Marshal(string(result.Body))
			if err != nil {
				return "", err
			}
			doc.Response = quoted
		}
	}
	return f.marshal(doc)
}

// FormatAttempts renders journal entries as a JSON array.
func (f *JSONFormatter) FormatAttempts(attempts []core.Attempt) (string, error) {
	docs := make([]attemptDocument, 0, len(attempts))
	for _, attempt := range attempts {
		docs = append(docs, attemptDocument{Attempt: attempt, DurationMS: attempt.Duration().Milliseconds()})
	}
	return f.marshal(docs)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
