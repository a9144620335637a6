// Package storage owns the on-disk layout: raw diagnostic responses, the
// per-account event trees and the merge outputs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyp0633/calsync/davclient"
)

// Directory names below the data root.
const (
	TempDirName   = "temp"
	MergedDirName = "merged"
	PublicDirName = "public"
)

// Paths is the storage layout rooted at one data directory.
type Paths struct {
	Root   string
	Temp   string
	Merged string
	Public string
}

// DefaultPaths lays out temp, merged and public under root.
func DefaultPaths(root string) Paths {
	if root == "" {
		root = "."
	}
	return Paths{
		Root:   root,
		Temp:   filepath.Join(root, TempDirName),
		Merged: filepath.Join(root, MergedDirName),
		Public: filepath.Join(root, PublicDirName),
	}
}

// EnsureDirs creates every directory of the layout.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.Root, p.Temp, p.Merged, p.Public} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DiagnosticPath is where the raw response of one operation is kept.
func (p Paths) DiagnosticPath(vendor, operation, username string) string {
	return filepath.Join(p.Temp, fmt.Sprintf("%s_%s_%s.xml", vendor, operation, username))
}

// EventsPrefix is the directory name prefix shared by every account of kind.
func EventsPrefix(kind davclient.Kind) string {
	return string(kind) + "_events_"
}

// AccountDir is the event tree of one account.
func (p Paths) AccountDir(kind davclient.Kind, username string) string {
	return filepath.Join(p.Root, EventsPrefix(kind)+username)
}

// AccountDirs lists the event trees of every account of kind, sorted.
func (p Paths) AccountDirs(kind davclient.Kind) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.Root, EventsPrefix(kind)+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s event directories: %w", kind, err)
	}
	var dirs []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, m)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// EventFiles returns every .ics file below the event trees of kind, in
// lexical path order.
func (p Paths) EventFiles(kind davclient.Kind) ([]string, error) {
	dirs, err := p.AccountDirs(kind)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".ics") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// collectionDirName keeps the display name but strips path separators.
func collectionDirName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return davclient.UnknownCalendar
	}
	return name
}
