package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/schemas"
	"github.com/jonathan/luxprima/internal/types"
)

// DirectiveError reports an expansion reply that could not be read as a directive.
type DirectiveError struct {
	Message string
	Cause   error
}

func (e *DirectiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid directive: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid directive: %s", e.Message)
}

func (e *DirectiveError) Unwrap() error {
	return e.Cause
}

// DecodeDirective reads a generation reply as a Directive. Code fences and any
// prose around the JSON object are tolerated. Blank entries are dropped.
func DecodeDirective(raw string) (types.Directive, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return types.Directive{}, &DirectiveError{Message: "empty reply"}
	}

	if err := schemas.Directive.ValidateString(cleaned); err != nil {
		var docErr *schemas.DocumentError
		if errors.As(err, &docErr) {
			return types.Directive{}, &DirectiveError{Message: "not JSON", Cause: err}
		}
		return types.Directive{}, &DirectiveError{Message: "schema mismatch", Cause: err}
	}

	var d types.Directive
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return types.Directive{}, &DirectiveError{Message: "decode failed", Cause: err}
	}
	d.Links = compact(d.Links)
	d.SearchTerms = compact(d.SearchTerms)
	return d, nil
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
