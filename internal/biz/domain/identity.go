package domain

// Account links one person's identities across both platforms. A single
// person may hold several ids per system.
type Account struct {
	Email    string
	SlackIDs []string
	AsanaIDs []string
}

// Directory resolves between Slack and Asana user ids from a static table.
// Resolution always returns the first-listed alias; an unmapped user is a
// miss, never an error — callers create tasks without an assignee instead
// of aborting.
type Directory struct {
	accounts []Account
}

// NewDirectory creates a directory over the given accounts.
func NewDirectory(accounts []Account) *Directory {
	return &Directory{accounts: accounts}
}

// ChatUserFor returns the Slack user id mapped to an Asana user gid.
func (d *Directory) ChatUserFor(asanaGID string) (string, bool) {
	for _, acc := range d.accounts {
		for _, gid := range acc.AsanaIDs {
			if gid == asanaGID {
				if len(acc.SlackIDs) == 0 {
					return "", false
				}
				return acc.SlackIDs[0], true
			}
		}
	}
	return "", false
}

// TrackerUserFor returns the Asana user gid mapped to a Slack user id.
func (d *Directory) TrackerUserFor(slackID string) (string, bool) {
	for _, acc := range d.accounts {
		for _, id := range acc.SlackIDs {
			if id == slackID {
				if len(acc.AsanaIDs) == 0 {
					return "", false
				}
				return acc.AsanaIDs[0], true
			}
		}
	}
	return "", false
}

// Len returns the number of loaded accounts.
func (d *Directory) Len() int {
	return len(d.accounts)
}
