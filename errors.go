package shardspec

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidMesh       = "invalid_mesh"
	CodeInvalidAssignment = "invalid_assignment"
	CodeUnknownAxis       = "unknown_axis"
	CodeDuplicateAxis     = "duplicate_axis"
	// Layout documents
	CodeParseError   = "parse_error"
	CodeDuplicateKey = "duplicate_key"
	// Apply-time codes (structural mismatch between a tree and a partition)
	CodeUnknownPartition = "unknown_partition"
	CodeRankMismatch     = "rank_mismatch"
	CodeUnsupportedLeaf  = "unsupported_leaf"
	// Delegated primitive failures
	CodeConstraintFailed = "constraint_failed"
)

// Sentinel errors carried as Issue.Cause. Match them with errors.Is on the
// returned Issues.
var (
	ErrInvalidMesh       = errors.New("shardspec: invalid mesh")
	ErrInvalidAssignment = errors.New("shardspec: invalid axis assignment")
	ErrUnknownAxis       = errors.New("shardspec: unknown mesh axis")
	ErrDuplicateAxis     = errors.New("shardspec: duplicate mesh axis")
	ErrUnknownPartition  = errors.New("shardspec: unknown partition")
	ErrRankMismatch      = errors.New("shardspec: rank mismatch")
	ErrUnsupportedLeaf   = errors.New("shardspec: unsupported leaf")
)

var codeCauses = map[string]error{
	CodeInvalidMesh:       ErrInvalidMesh,
	CodeInvalidAssignment: ErrInvalidAssignment,
	CodeUnknownAxis:       ErrUnknownAxis,
	CodeDuplicateAxis:     ErrDuplicateAxis,
	CodeUnknownPartition:  ErrUnknownPartition,
	CodeRankMismatch:      ErrRankMismatch,
	CodeUnsupportedLeaf:   ErrUnsupportedLeaf,
}

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer into the layout or the applied tree (for example: /array_partitions/vertical/0).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Sentinel or underlying error.
	// Params carries structured parameters (e.g., {"partition":"vertical", "axis":"z"}).
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. unknown_axis at /array_partitions/p/0: ...
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			b.WriteString(": ")
			b.WriteString(it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes every issue cause so errors.Is can match the sentinels.
func (iss Issues) Unwrap() []error {
	out := make([]error, 0, len(iss))
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// HasCode reports whether any issue carries the given code.
func (iss Issues) HasCode(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// toIssues maps arbitrary errors into Issues, keeping existing Issues as-is.
func toIssues(path string, err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	return AppendIssues(nil, Issue{Path: path, Code: CodeConstraintFailed, Message: err.Error(), Cause: err})
}
