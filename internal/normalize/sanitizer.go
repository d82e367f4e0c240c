package normalize

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer purifies untrusted markup
type Sanitizer interface {
	Sanitize(html string) string
}

// HTMLSanitizer keeps the markup editors usually write in slide bodies and
// strips scripts, event handlers and unsafe URLs.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer creates a sanitizer on the user generated content policy
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &HTMLSanitizer{policy: policy}
}

func (s *HTMLSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
