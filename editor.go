// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Editor wraps a decoded archive file in a virtual filesystem and writes
// mutations back in one commit with backup rotation.
type Editor struct {
	fs   *Filesystem
	path string
	opts EditOptions
}

// OpenEditor decodes the archive at path into an editable file tree.
func OpenEditor(path string, opts EditOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, ErrInvalidEntryPath
	}

	opts.applyDefaults()

	a, err := Open(trimmedPath)
	if err != nil {
		return nil, err
	}

	return &Editor{
		path: trimmedPath,
		fs:   NewFilesystem(a),
		opts: opts,
	}, nil
}

// Filesystem returns the editable file tree. Mutations become visible on
// disk only after Commit.
func (e *Editor) Filesystem() *Filesystem {
	if e == nil {
		return nil
	}

	return e.fs
}

// Commit re-encodes the edited tree over the original file. The previous
// file is moved to `<archive>.bak` first and restored when the write fails.
func (e *Editor) Commit(ctx context.Context) error {
	if e == nil {
		return ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	backupPath := e.path + ".bak"
	if err := prepareBackupSlot(backupPath, e.opts.BackupKeep); err != nil {
		return err
	}

	if err := os.Rename(e.path, backupPath); err != nil {
		return fmt.Errorf("move archive to backup: %w", err)
	}

	if err := e.fs.Archive().EncodeFile(e.path); err != nil {
		rollbackErr := rollbackFromBackup(e.path, backupPath)
		if rollbackErr != nil {
			return fmt.Errorf("%v (rollback failed: %v)", err, rollbackErr)
		}

		return err
	}

	if e.opts.BackupKeep == 0 {
		if err := removeIfExists(backupPath); err != nil {
			return fmt.Errorf("remove backup: %w", err)
		}
	}

	return nil
}

// prepareBackupSlot rotates/removes existing backup generations before a
// new commit.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	switch keep {
	case 0, 1:
		return removeIfExists(backupPath)
	default:
		oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
		if err := removeIfExists(oldest); err != nil {
			return err
		}

		for i := keep - 2; i >= 1; i-- {
			from := fmt.Sprintf("%s.%d", backupPath, i)
			to := fmt.Sprintf("%s.%d", backupPath, i+1)
			if err := renameIfExists(from, to); err != nil {
				return err
			}
		}

		return renameIfExists(backupPath, backupPath+".1")
	}
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// rollbackFromBackup restores backup on failed commit.
func rollbackFromBackup(path string, backupPath string) error {
	_ = os.Remove(path)

	if err := os.Rename(backupPath, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}
