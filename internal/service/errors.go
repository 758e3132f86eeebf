package service

import (
	"errors"
	"strings"
)

// Kind classifies a service failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	// KindStorage marks a failure of the attachment blob store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error attaches a Kind to an underlying error. Its message is the underlying
// message unchanged.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost classified error in err's chain.
// Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindInvalid
	}
	return KindInternal
}

func notFound(err error) error {
	return &Error{Kind: KindNotFound, Err: err}
}

func storageFailure(err error) error {
	return &Error{Kind: KindStorage, Err: err}
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type AuditEntry struct {
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Changes      string
}
