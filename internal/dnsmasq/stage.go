package dnsmasq

import (
	"errors"
	"fmt"
	"os"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

// WriteStaged renders conf into the staged path. The file is held under an
// exclusive lock while it is truncated and written, so concurrent renderers
// queue up instead of interleaving. The lock is released and the file closed
// on every return path.
func (r *Renderer) WriteStaged(conf *config.Config) (err error) {
	path := r.Paths.StagedConf
	if err := conf.CheckSingleLine(); err != nil {
		return err
	}

	// Open without O_TRUNC: truncating before the lock is held would clobber
	// a file another renderer is still writing.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("cannot open %s for writing, unable to update dnsmasq configuration: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close %s: %w", path, cerr)
		}
	}()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("cannot open %s in exclusive mode: %w", path, err)
	}
	defer func() {
		if uerr := unlockFile(f); uerr != nil {
			err = errors.Join(err, fmt.Errorf("cannot release lock on %s: %w", path, uerr))
		}
	}()

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("cannot truncate %s: %w", path, err)
	}
	if err := r.Render(f, conf); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot flush %s to disk: %w", path, err)
	}
	return nil
}
