package preprocessor

import (
	"fmt"
	"go/ast"
	"strings"
)

// DirectiveName is the comment directive that opts a function into
// timing instrumentation:
//
//	//timed:instrument(name = "DatabaseQuery", level = "debug", threshold = "10ms")
//	func LoadUser(ctx context.Context, id int64) (*User, error) { ... }
//
// The argument list is optional; a bare //timed:instrument uses the
// defaults.
const DirectiveName = "timed:instrument"

// FindDirective scans a declaration's doc comments for the timed
// directive. It returns the raw argument text (the interior of the
// parentheses, which may be empty) and whether a directive was found.
func FindDirective(doc *ast.CommentGroup) (string, bool, error) {
	if doc == nil {
		return "", false, nil
	}
	for _, comment := range doc.List {
		rest, ok := strings.CutPrefix(comment.Text, "//"+DirectiveName)
		if !ok {
			continue
		}
		if strings.TrimSpace(rest) == "" {
			return "", true, nil
		}
		if rest[0] != '(' {
			// A longer directive word, not ours.
			continue
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasSuffix(rest, ")") {
			return "", false, fmt.Errorf("%w: missing closing parenthesis", ErrMalformedArgument)
		}
		return rest[1 : len(rest)-1], true, nil
	}
	return "", false, nil
}
