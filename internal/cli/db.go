package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/store"
)

// Error codes used in JSON error responses.
const (
	CodeScenario = "E001" // scenario could not be loaded or executed
	CodeDatabase = "E002" // journal database could not be opened
	CodeJournal  = "E003" // journal could not be read
)

// databasePath resolves --db against REDUX_DB.
func (o *RootOptions) databasePath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.DBPath
}

// openJournal opens an existing journal for reading.
func (o *RootOptions) openJournal(cmd *cobra.Command, flag string) (*store.Store, error) {
	path := o.databasePath(flag)
	if path == "" {
		return nil, o.fail(cmd, CodeDatabase, NewExitError(ExitCommandError, "database path required (--db or REDUX_DB)"))
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, o.fail(cmd, CodeDatabase, NewExitError(ExitCommandError, "database not found: "+path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, o.fail(cmd, CodeDatabase, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	return st, nil
}

// fail reports err in JSON mode and returns it. In text mode the caller's
// error is printed by main.
func (o *RootOptions) fail(cmd *cobra.Command, code string, err *ExitError) error {
	if o.Format == "json" {
		var details any
		if err.Err != nil {
			details = err.Err.Error()
		}
		_ = o.formatter(cmd).Error(code, err.Message, details)
	}
	return err
}
