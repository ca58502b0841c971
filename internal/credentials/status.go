package credentials

import (
	"io/fs"
	"os"
	"time"

	"github.com/gorewood/patchbay/internal/envfile"
)

// Status describes a credential file without exposing its values.
type Status struct {
	Connector  string      `json:"connector"`
	Account    string      `json:"account,omitempty"`
	Path       string      `json:"path"`
	FileExists bool        `json:"file_exists"`
	Mode       fs.FileMode `json:"-"`
	ModTime    time.Time   `json:"modified,omitzero"`
	Present    []string    `json:"present,omitempty"`
	Missing    []string    `json:"missing,omitempty"`
	ReadError  string      `json:"read_error,omitempty"`
}

// Exposed reports whether group or other users can read the file.
func (s Status) Exposed() bool {
	return s.FileExists && s.Mode.Perm()&0o077 != 0
}

// Complete reports whether the file exists and no required key is missing.
func (s Status) Complete() bool {
	return s.FileExists && s.ReadError == "" && len(s.Missing) == 0
}

// Inspect reports which of keys have values for connector/account. It
// reads the file but never modifies the environment.
func (l *Loader) Inspect(connector, account string, keys []string) Status {
	status := Status{Connector: connector, Account: account, Path: l.Path(connector, account)}

	info, err := os.Stat(status.Path)
	if err != nil {
		status.Missing = append(status.Missing, keys...)
		return status
	}
	status.FileExists = true
	status.Mode = info.Mode()
	status.ModTime = info.ModTime()

	values, err := envfile.Read(status.Path)
	if err != nil {
		status.ReadError = err.Error()
		return status
	}
	for _, key := range keys {
		if values[key] != "" || l.getenv(key) != "" {
			status.Present = append(status.Present, key)
		} else {
			status.Missing = append(status.Missing, key)
		}
	}
	return status
}
