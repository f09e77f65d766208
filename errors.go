package graver

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeParseError       = "parse_error"
	CodeInvalidToken     = "invalid_token"
	CodeUnterminated     = "unterminated"
	CodeUnknownField     = "unknown_field"
	CodeUnresolvedType   = "unresolved_type"
	CodeUnresolvedName   = "unresolved_name"
	CodeIncompleteSchema = "incomplete_schema"
	CodeDuplicateKey     = "duplicate_key"
	CodeUplinkUnresolved = "uplink_unresolved"
	CodeUnsupportedType  = "unsupported_type"
	CodeIO               = "io_error"
)

// Issue represents a single serialization or deserialization failure.
type Issue struct {
	Path    string // Slash-joined field path (for example: /Layers/2/Name).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	Offset  int64 // Byte offset in the input (-1 when unknown or not reading).
	Line    int   // 1-based input line, 0 when unknown.
	Col     int   // 1-based input column, 0 when unknown.
}

// Issues is a collection of failures that implements error.
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
		switch {
		case it.Line > 0:
			fmt.Fprintf(b, "%s at %d:%d", it.Code, it.Line, it.Col)
		case it.Path != "":
			fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		default:
			b.WriteString(it.Code)
		}
		if it.Message != "" {
			fmt.Fprintf(b, " (%s)", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
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

func singleIssue(code, msg string) Issues {
	return Issues{Issue{Code: code, Message: msg, Offset: -1}}
}

func issuef(code, format string, args ...any) Issues {
	return Issues{Issue{Code: code, Message: fmt.Sprintf(format, args...), Offset: -1}}
}
