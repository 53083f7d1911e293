// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractWorkItem stores one selected member with prepared output paths.
type extractWorkItem struct {
	name       string
	relPath    string
	relDir     string
	data       []byte
	decompress bool
}

// Extract writes selected members to dstDir. Member names become relative
// paths under dstDir; absolute names and traversal segments are rejected.
// Extraction is parallelized by MaxWorkers; on failure it returns the first
// encountered error.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if a == nil {
		return ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	include, err := opts.includeMatcher()
	if err != nil {
		return err
	}

	decompress, err := opts.decompressMatcher()
	if err != nil {
		return err
	}

	workItems, err := prepareExtractWorkItems(a, include, decompress)
	if err != nil {
		return err
	}

	if len(workItems) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	errCh := make(chan error, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for task := range taskCh {
				err := extractPreparedMember(ctx, dstRootAbs, task, opts.OnEntryDone)
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		})
	}

	for _, task := range workItems {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- task:
		}
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}

// prepareExtractWorkItems selects members by rule and prepares relative
// filesystem paths.
func prepareExtractWorkItems(a *Archive, include *ruleMatcher, decompress *ruleMatcher) ([]extractWorkItem, error) {
	workItems := make([]extractWorkItem, 0, a.Len())
	for name, data := range a.Files() {
		if strings.TrimSpace(name) == "" {
			continue
		}

		if include != nil && !include.Match(name) {
			continue
		}

		normalized, err := normalizeExtractMemberPath(name)
		if err != nil {
			return nil, fmt.Errorf("normalize member path %s: %w", name, err)
		}

		relPath := filepath.FromSlash(normalized)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			name:       name,
			relPath:    relPath,
			relDir:     relDir,
			data:       data,
			decompress: decompress.Match(name),
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedMember writes one prepared work item to the destination root.
func extractPreparedMember(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	onEntryDone func(name string, written int64, outputPath string),
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := task.data
	if task.decompress {
		decompressed, err := DecompressMember(data)
		if err != nil {
			return fmt.Errorf("decompress %s: %w", task.name, err)
		}

		data = decompressed
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", task.name, err)
	}

	if onEntryDone != nil {
		onEntryDone(task.name, int64(len(data)), outPath)
	}

	return nil
}

// normalizeExtractMemberPath normalizes a member name and rejects
// absolute and traversal inputs.
func normalizeExtractMemberPath(name string) (string, error) {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with a drive-root
// prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether b is an ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
