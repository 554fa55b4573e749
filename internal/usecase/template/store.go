package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/query"
)

// DefaultDir is the template root used when none is configured.
const DefaultDir = "Prompt_Templates"

// FragmentFile is the file name of every policy fragment.
const FragmentFile = "template.txt"

// Fragment scopes, in composition order.
const (
	ScopeAccounts = "accounts"
	ScopeRoles    = "roles"
	ScopeUsers    = "users"
)

// Template is a prompt template containing {context} and {question} placeholders.
type Template string

// Store loads policy fragments from a directory tree and layers them over Base.
// Fragments are read on every call; edits on disk apply to the next query.
type Store struct {
	dir    string
	base   string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir (DefaultDir when empty).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir, base: Base, logger: zap.NewNop()}
}

// WithLogger sets the logger used for unreadable fragment warnings.
func (s *Store) WithLogger(l *zap.Logger) *Store {
	s.logger = l
	return s
}

// WithBase overrides the base instruction template.
func (s *Store) WithBase(base string) *Store {
	s.base = base
	return s
}

// Dir returns the template root directory.
func (s *Store) Dir() string { return s.dir }

// LoadFragment returns the file contents at path, or "" when the file is
// missing or unreadable. It never fails.
func (s *Store) LoadFragment(path string) string {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from validated identifiers
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("template fragment unreadable",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return ""
	}
	return string(data)
}

// Compose layers the account, role and user fragments (in that order) over the
// base template. Each non-empty fragment is followed by a newline; missing
// fragments contribute nothing.
func (s *Store) Compose(account, role, user string) (Template, error) {
	var b strings.Builder
	for _, f := range []struct{ scope, id string }{
		{ScopeAccounts, account},
		{ScopeRoles, role},
		{ScopeUsers, user},
	} {
		path, err := s.fragmentPath(f.scope, f.id)
		if err != nil {
			return "", err
		}
		if frag := s.LoadFragment(path); frag != "" {
			b.WriteString(frag)
			b.WriteByte('\n')
		}
	}
	b.WriteString(s.base)
	return Template(b.String()), nil
}

// fragmentPath resolves <dir>/<scope>/<id>/template.txt and checks the result
// stays inside <dir>/<scope>.
func (s *Store) fragmentPath(scope, id string) (string, error) {
	if err := query.ValidateIdentifier(id); err != nil {
		return "", fmt.Errorf("%s fragment: %w", strings.TrimSuffix(scope, "s"), err)
	}

	root, err := filepath.Abs(filepath.Join(s.dir, scope))
	if err != nil {
		return "", fmt.Errorf("resolve template dir: %w", err)
	}
	path := filepath.Join(root, id, FragmentFile)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes template directory", domain.ErrInvalidIdentifier, id)
	}
	return path, nil
}
