// Package credentials loads per-connector credential sets from the
// workspace's .env files.
//
// Files live at <workspace>/connectors/<connector>/.env, or
// <workspace>/connectors/<connector>/<account>/.env for a named account.
// Process environment variables take precedence over file values, and file
// values are exported into the environment for keys that are not set.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorewood/patchbay/internal/envfile"
	"github.com/gorewood/patchbay/internal/output"
)

// FileName is the credential file name inside a connector directory.
const FileName = ".env"

// Loader resolves and reads credential files under a workspace root.
type Loader struct {
	Root string

	// Getenv and Setenv default to the process environment.
	Getenv func(string) string
	Setenv func(string, string) error
}

// NewLoader returns a Loader backed by the process environment.
func NewLoader(root string) *Loader {
	return &Loader{
		Root:   root,
		Getenv: os.Getenv,
		Setenv: os.Setenv,
	}
}

// NewIsolatedLoader returns a Loader that reads the process environment
// but never writes to it. Long-running processes that serve several
// accounts use it so one account's file values never shadow another's.
func NewIsolatedLoader(root string) *Loader {
	return &Loader{
		Root:   root,
		Getenv: os.Getenv,
		Setenv: func(string, string) error { return nil },
	}
}

// Set is the credential set for one connector and account.
type Set struct {
	Connector string
	Account   string
	Path      string
	values    map[string]string
}

// Get returns the value for key, or "" if it has none.
func (s *Set) Get(key string) string {
	return s.values[key]
}

// GetOr returns the value for key, or fallback when it has none.
func (s *Set) GetOr(key, fallback string) string {
	if v := s.values[key]; v != "" {
		return v
	}
	return fallback
}

// Require returns the value for key or a MissingCredentialError.
func (s *Set) Require(key string) (string, error) {
	if v := s.values[key]; v != "" {
		return v, nil
	}
	return "", &MissingCredentialError{Connector: s.Connector, Key: key, Path: s.Path}
}

// Keys lists the keys that have values, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k, v := range s.values {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// NewSet builds a Set from explicit values.
func NewSet(connector, account, path string, values map[string]string) *Set {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Set{Connector: connector, Account: account, Path: path, values: copied}
}

// MissingCredentialError reports a credential file or key that is absent.
type MissingCredentialError struct {
	Connector   string
	Key         string
	Path        string
	FileMissing bool
}

func (e *MissingCredentialError) Error() string {
	if e.FileMissing && e.Key == "" {
		return fmt.Sprintf("%s: credential file not found: %s", e.Connector, e.Path)
	}
	if e.FileMissing {
		return fmt.Sprintf("%s: credential file not found: %s (add %s=... to it)", e.Connector, e.Path, e.Key)
	}
	return fmt.Sprintf("%s: missing %s: add %s=... to %s", e.Connector, e.Key, e.Key, e.Path)
}

// ExitCode implements output.ExitCoder.
func (e *MissingCredentialError) ExitCode() int {
	return output.ExitConfigError
}

// ErrInvalidAccount is returned for account names that are not a single
// path element.
var ErrInvalidAccount = errors.New("invalid account name")

// ValidateAccount checks that an account name is a plain directory name.
func ValidateAccount(account string) error {
	if account == "" {
		return nil
	}
	if account == "." || account == ".." || strings.ContainsAny(account, `/\`) || strings.HasPrefix(account, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	return nil
}

// Dir returns the directory holding a connector's credential file.
func (l *Loader) Dir(connector, account string) string {
	dir := filepath.Join(l.Root, "connectors", connector)
	if account != "" {
		dir = filepath.Join(dir, account)
	}
	return dir
}

// Path returns the credential file path for a connector and account.
func (l *Loader) Path(connector, account string) string {
	return filepath.Join(l.Dir(connector, account), FileName)
}

// Load reads the credential file for connector/account and checks that
// every required key has a value. Environment values win over file values.
// The file must exist even when the environment supplies every key.
func (l *Loader) Load(connector, account string, required []string) (*Set, error) {
	if err := ValidateAccount(account); err != nil {
		return nil, output.NewUserError(err.Error())
	}
	path := l.Path(connector, account)

	fileValues, err := envfile.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			key := ""
			if len(required) > 0 {
				key = required[0]
			}
			return nil, &MissingCredentialError{Connector: connector, Key: key, Path: path, FileMissing: true}
		}
		return nil, output.NewConfigError(fmt.Sprintf("%s: cannot read credentials", connector), err)
	}

	values := make(map[string]string, len(fileValues))
	for key, fileValue := range fileValues {
		if envValue := l.getenv(key); envValue != "" {
			values[key] = envValue
			continue
		}
		values[key] = fileValue
		if fileValue != "" {
			_ = l.setenv(key, fileValue)
		}
	}
	for _, key := range required {
		if _, ok := values[key]; !ok {
			values[key] = l.getenv(key)
		}
	}

	set := &Set{Connector: connector, Account: account, Path: path, values: values}
	for _, key := range required {
		if set.values[key] == "" {
			return nil, &MissingCredentialError{Connector: connector, Key: key, Path: path}
		}
	}
	return set, nil
}

// Accounts lists sub-account directories of a connector that contain a
// credential file, sorted.
func (l *Loader) Accounts(connector string) ([]string, error) {
	entries, err := os.ReadDir(l.Dir(connector, ""))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing accounts for %s: %w", connector, err)
	}

	var accounts []string
	for _, entry := range entries {
		if !entry.IsDir() || ValidateAccount(entry.Name()) != nil {
			continue
		}
		if _, err := os.Stat(l.Path(connector, entry.Name())); err == nil {
			accounts = append(accounts, entry.Name())
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// ScaffoldKey is one line of a scaffolded credential file.
type ScaffoldKey struct {
	Name        string
	Description string
	Optional    bool
}

// Scaffold writes a template credential file listing keys. It never
// overwrites: an existing file yields a conflict error.
func (l *Loader) Scaffold(connector, account, title string, keys []ScaffoldKey) (string, error) {
	if err := ValidateAccount(account); err != nil {
		return "", output.NewUserError(err.Error())
	}
	path := l.Path(connector, account)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", output.NewSystemErrorWithCause("creating credential directory", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", output.NewConflictError("credential file already exists: " + path)
		}
		return "", output.NewSystemErrorWithCause("creating credential file", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s credentials\n", title)
	if account != "" {
		fmt.Fprintf(&b, "# account: %s\n", account)
	}
	for _, key := range keys {
		b.WriteString("\n")
		desc := key.Description
		if key.Optional {
			desc += " (optional)"
		}
		fmt.Fprintf(&b, "# %s\n%s=\n", desc, key.Name)
	}

	if _, err := file.WriteString(b.String()); err != nil {
		_ = file.Close()
		return "", output.NewSystemErrorWithCause("writing credential file", err)
	}
	if err := file.Close(); err != nil {
		return "", output.NewSystemErrorWithCause("writing credential file", err)
	}
	return path, nil
}

func (l *Loader) getenv(key string) string {
	if l.Getenv == nil {
		return os.Getenv(key)
	}
	return l.Getenv(key)
}

func (l *Loader) setenv(key, value string) error {
	if l.Setenv == nil {
		return os.Setenv(key, value)
	}
	return l.Setenv(key, value)
}
