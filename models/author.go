package models

// Author is the authorship of a res. The set of implementations is closed:
// AnonymousAuthor and RegisteredAuthor. Code that branches on an Author
// switches over both and treats anything else as a programming error.
type Author interface {
	isAuthor()
}

// AnonymousAuthor posts without an account. Both fields are optional.
type AnonymousAuthor struct {
	Name  string
	Email string
}

// RegisteredAuthor posts as an account; the rendered name is resolved from
// the account's profile at read time.
type RegisteredAuthor struct {
	AccountID int64
}

func (AnonymousAuthor) isAuthor()  {}
func (RegisteredAuthor) isAuthor() {}

// IsBlank reports whether no authorship row needs to be stored.
func (a AnonymousAuthor) IsBlank() bool {
	return a.Name == "" && a.Email == ""
}

// Decision is a moderator's verdict on a reported res.
type Decision int

const (
	DecisionSafe Decision = iota + 1
	DecisionRedact
)

func (d Decision) String() string {
	switch d {
	case DecisionSafe:
		return "safe"
	case DecisionRedact:
		return "redact"
	}
	return "unknown"
}

// ParseDecision accepts "safe", and "out" or "redact" for redaction.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "safe":
		return DecisionSafe, nil
	case "out", "redact":
		return DecisionRedact, nil
	}
	return 0, InvalidArgument("unknown decision %q", s)
}
