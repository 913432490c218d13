package ops

import (
	"strings"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/extract"
	"github.com/hpungsan/mailsift/internal/validate"
)

// MaxCheckChars bounds the text accepted by Check.
const MaxCheckChars = 64 * 1024

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	Text string // a single candidate or free text
}

// Verdict explains the decision for one candidate.
type Verdict struct {
	Candidate string        `json:"candidate"`
	Extracted bool          `json:"extracted"`
	Valid     bool          `json:"valid"`
	Rule      validate.Rule `json:"rule,omitempty"`
	Canonical string        `json:"canonical,omitempty"`
}

// CheckOutput contains the result of the Check operation.
type CheckOutput struct {
	Verdicts []Verdict `json:"verdicts"`
	Accepted int       `json:"accepted"`
}

// Check explains what the pipeline does with Text without collecting anything.
// Every extracted candidate gets a verdict. When nothing is extracted from a
// single token, that token is still run through the validator so the caller
// learns which rule it fails.
func Check(input CheckInput) (*CheckOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	if len(text) > MaxCheckChars {
		return nil, errors.NewInvalidRequest("text is too long to check; use scan instead")
	}

	out := &CheckOutput{Verdicts: []Verdict{}}
	for candidate := range extract.Candidates(text) {
		out.Verdicts = append(out.Verdicts, verdict(candidate, true))
	}
	if len(out.Verdicts) == 0 && len(strings.Fields(text)) == 1 {
		out.Verdicts = append(out.Verdicts, verdict(text, false))
	}

	for _, v := range out.Verdicts {
		if v.Valid {
			out.Accepted++
		}
	}
	return out, nil
}

func verdict(candidate string, extracted bool) Verdict {
	res := validate.Check(candidate)
	v := Verdict{
		Candidate: candidate,
		Extracted: extracted,
		Valid:     res.Valid,
		Rule:      res.Rule,
	}
	if res.Valid {
		v.Canonical = address.Canonical(candidate)
	}
	return v
}
