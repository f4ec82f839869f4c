package patcher

import (
	"fmt"
	"os"

	"github.com/distropatch/spatch"
	"github.com/distropatch/spatch/internal/treewalk"
	"golang.org/x/xerrors"
)

// backupRename moves path aside to the first unused "path.sbk.N" sibling,
// N in [0, BackupSuffixLimit). The renamed file doubles as the delta
// source for an in-place upgrade and as the rollback copy if the frame
// fails. Exhausting all suffixes fails the frame.
func backupRename(path string) (string, error) {
	for i := 0; i < spatch.BackupSuffixLimit; i++ {
		bak := fmt.Sprintf("%s.sbk.%d", path, i)
		if treewalk.Exists(bak) {
			continue
		}
		if err := os.Rename(path, bak); err != nil {
			return "", xerrors.Errorf("backupRename(%s): %w", path, err)
		}
		return bak, nil
	}
	return "", xerrors.Errorf("backupRename(%s): all %d backup suffixes in use: %w", path, spatch.BackupSuffixLimit, spatch.ErrIOFail)
}

// backupRestore undoes a backupRename after a failed frame: any partial
// output at path is removed and the backup is moved back.
func backupRestore(bak, path string) error {
	if treewalk.Exists(path) {
		if err := os.Remove(path); err != nil {
			return xerrors.Errorf("backupRestore(%s): %w", path, err)
		}
	}
	if err := os.Rename(bak, path); err != nil {
		return xerrors.Errorf("backupRestore(%s): %w", path, err)
	}
	return nil
}
