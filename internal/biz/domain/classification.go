package domain

import "regexp"

// Classification is the structured verdict from the commitment classifier.
// DueDate may be a relative expression ("mañana", "viernes") or an ISO date;
// resolution to a calendar date happens later.
type Classification struct {
	IsCommitment bool   `json:"is_commitment"`
	Assignee     string `json:"assignee"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date"`

	// NoExplicitAssignee is derived by the caller when the message text
	// carries no mention. A commitment without a mention and without this
	// flag is ambiguous and is dropped rather than guessed.
	NoExplicitAssignee bool `json:"-"`
}

var mentionRe = regexp.MustCompile(`<@(U[A-Z0-9]+)>`)

// FirstMention extracts the first <@U...> mention token from raw message
// text. A message with multiple mentions only ever assigns the first one;
// this is deliberate policy, not an oversight.
func FirstMention(text string) (string, bool) {
	m := mentionRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HasMention reports whether the text contains any "@" reference at all.
func HasMention(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] == '@' {
			return true
		}
	}
	return false
}
