package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/kailas-cloud/contextq/internal/domain"
)

const (
	startTag = "{"
	endTag   = "}"

	tagContext  = "context"
	tagQuestion = "question"
)

// ContextSeparator separates document contents in the rendered context block.
const ContextSeparator = "\n\n---\n\n"

// JoinContext joins document contents into the context block, preserving order.
func JoinContext(contents []string) string {
	return strings.Join(contents, ContextSeparator)
}

// Composer renders the final prompt from a template, a context block and the question.
type Composer struct{}

// NewComposer creates a Composer.
func NewComposer() *Composer { return &Composer{} }

// Compose substitutes {context} and {question} in a single pass: substituted
// values are never re-scanned, and any other {tag} is written back unchanged.
// Both placeholders must be present.
func (c *Composer) Compose(tmpl, contextText, question string) (string, error) {
	for _, tag := range []string{tagContext, tagQuestion} {
		if !strings.Contains(tmpl, startTag+tag+endTag) {
			return "", fmt.Errorf("%w: missing %s%s%s placeholder",
				domain.ErrTemplateComposition, startTag, tag, endTag)
		}
	}

	values := map[string]string{
		tagContext:  contextText,
		tagQuestion: question,
	}

	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, startTag, endTag,
		func(w io.Writer, tag string) (int, error) {
			var n int
			// "{a {context}" yields tag "a {context"; only the innermost brace opens a placeholder.
			if i := strings.LastIndex(tag, startTag); i >= 0 {
				m, err := io.WriteString(w, startTag+tag[:i])
				n += m
				if err != nil {
					return n, err
				}
				tag = tag[i+len(startTag):]
			}
			v, ok := values[tag]
			if !ok {
				v = startTag + tag + endTag
			}
			m, err := io.WriteString(w, v)
			return n + m, err
		})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTemplateComposition, err)
	}
	return out, nil
}
