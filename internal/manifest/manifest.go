// Package manifest snapshots the object set of an application into versioned
// manifests and checks manifests against the files on disk.
//
// A manifest lives at <app>/versions/<version>/manifest.yaml. It is written
// only after the snapshot is complete in memory, and always through an atomic
// replace, so an interrupted command never leaves a partial manifest. Once a
// check passes the manifest is locked and never rewritten again.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/dbobj/internal/checksum"
	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/files/scanner"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Manager reads and writes the manifests of one application.
type Manager struct {
	fs      filesystem.FileSystemProvider
	scanner *scanner.Scanner
	appDir  string
	app     string
	logger  dbobj.Logger
	now     func() time.Time
}

// NewManager creates a manager for the application rooted at appDir.
func NewManager(fsProvider filesystem.FileSystemProvider, appDir, app string, logger dbobj.Logger) *Manager {
	return &Manager{
		fs:      fsProvider,
		scanner: scanner.NewScannerWithFS(checksum.New(), fsProvider),
		appDir:  appDir,
		app:     app,
		logger:  logger,
		now:     time.Now,
	}
}

// Changed is an object whose definition changed since the snapshot.
type Changed struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Recorded string `json:"recorded"`
	Current  string `json:"current"`
}

// CheckResult is the outcome of CheckVersion. The check passed when
// Report.OK() is true; Changed entries are warnings only.
type CheckResult struct {
	Manifest *dbobj.VersionManifest
	Report   *dbobj.Report
	Changed  []Changed
}

// ManifestPath returns the manifest file of version.
func (m *Manager) ManifestPath(version string) string {
	return filepath.Join(m.appDir, dbobj.VersionsDir, version, dbobj.ManifestFileName)
}

// ValidateVersionID rejects identifiers that cannot be used as a directory name.
func ValidateVersionID(version string) error {
	switch {
	case strings.TrimSpace(version) == "":
		return fmt.Errorf("version identifier is empty: %w", dbobj.ErrInvalidConfig)
	case version == "." || version == "..", strings.ContainsAny(version, `/\`):
		return fmt.Errorf("invalid version identifier %q: %w", version, dbobj.ErrInvalidConfig)
	}
	return nil
}

// NewVersion snapshots the current object set as version. It refuses when the
// scan reports any error. An existing manifest is replaced only with force,
// and a locked one never.
func (m *Manager) NewVersion(version string, force bool) (*dbobj.VersionManifest, error) {
	if err := ValidateVersionID(version); err != nil {
		return nil, err
	}

	existing, err := m.Load(version)
	switch {
	case err == nil && existing.Locked:
		return nil, fmt.Errorf("version %s: %w", version, dbobj.ErrManifestLocked)
	case err == nil && !force:
		return nil, fmt.Errorf("version %s: %w (use --force to replace it)", version, dbobj.ErrManifestExists)
	case err != nil && !errors.Is(err, dbobj.ErrManifestNotFound):
		return nil, err
	}

	result, err := m.scanner.ScanApplication(m.appDir)
	if err != nil {
		return nil, err
	}
	if !result.Report.OK() {
		return nil, fmt.Errorf("cannot snapshot version %s: %w", version, result.Report.Err())
	}

	manifest := &dbobj.VersionManifest{
		Version:     version,
		ID:          uuid.New().String(),
		Application: m.app,
		CreatedAt:   m.now().UTC().Truncate(time.Second),
	}
	for _, obj := range result.Registry.All() {
		rec, _ := result.FileFor(obj.Path)
		manifest.Objects = append(manifest.Objects, dbobj.ManifestEntry{
			Name:     obj.Name,
			Kind:     obj.Kind,
			Path:     obj.Path,
			Checksum: rec.Checksum,
			ID:       ObjectID(m.app, obj.Kind, obj.Name).String(),
		})
	}

	if err := m.save(manifest); err != nil {
		return nil, err
	}
	m.logger.Verbose("Wrote %s with %d objects", m.ManifestPath(version), len(manifest.Objects))
	return manifest, nil
}

// CheckVersion compares the objects declared by version with the objects
// that currently parse, in both directions, collecting every discrepancy.
// A passing check locks the manifest.
func (m *Manager) CheckVersion(version string) (*CheckResult, error) {
	if err := ValidateVersionID(version); err != nil {
		return nil, err
	}
	manifest, err := m.Load(version)
	if err != nil {
		return nil, err
	}
	scan, err := m.scanner.ScanApplication(m.appDir)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Manifest: manifest, Report: &dbobj.Report{}}
	res.Report.Merge(scan.Report)

	declared := make(map[string]bool, len(manifest.Objects))
	for _, entry := range manifest.Objects {
		declared[entry.Name] = true
		obj, ok := scan.Registry.Lookup(entry.Name)
		if !ok {
			res.Report.Add(&dbobj.MissingObjectError{Version: version, Name: entry.Name, File: entry.Path})
			continue
		}
		rec, _ := scan.FileFor(obj.Path)
		if entry.Checksum != "" && rec.Checksum != entry.Checksum {
			res.Changed = append(res.Changed, Changed{Name: entry.Name, Path: obj.Path, Recorded: entry.Checksum, Current: rec.Checksum})
			res.Report.Warn("%s (%s) changed since version %s was created", entry.Name, obj.Path, version)
		}
	}
	for _, obj := range scan.Registry.All() {
		if !declared[obj.Name] {
			res.Report.Add(&dbobj.OrphanFileError{Version: version, File: obj.Path, Name: obj.Name})
		}
	}

	if !res.Report.OK() || manifest.Locked {
		return res, nil
	}

	checkedAt := m.now().UTC().Truncate(time.Second)
	manifest.Locked = true
	manifest.CheckedAt = &checkedAt
	if err := m.save(manifest); err != nil {
		return nil, err
	}
	m.logger.Verbose("Locked version %s", version)
	return res, nil
}

// Load reads the manifest of version.
func (m *Manager) Load(version string) (*dbobj.VersionManifest, error) {
	path := m.ManifestPath(version)
	data, err := m.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("version %s: %w", version, dbobj.ErrManifestNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var manifest dbobj.VersionManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", path, dbobj.ErrInvalidConfig, err)
	}
	if manifest.Version != version {
		return nil, fmt.Errorf("%s declares version %q: %w", path, manifest.Version, dbobj.ErrInvalidConfig)
	}
	return &manifest, nil
}

// List returns every readable manifest of the application, oldest first.
// Version directories without a manifest are skipped.
func (m *Manager) List() ([]*dbobj.VersionManifest, error) {
	dir := filepath.Join(m.appDir, dbobj.VersionsDir)
	if _, err := m.fs.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []*dbobj.VersionManifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifest, err := m.Load(e.Name())
		if err != nil {
			if errors.Is(err, dbobj.ErrManifestNotFound) {
				m.logger.Verbose("Skipping %s: no %s", e.Name(), dbobj.ManifestFileName)
				continue
			}
			return nil, err
		}
		out = append(out, manifest)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (m *Manager) save(manifest *dbobj.VersionManifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return m.fs.WriteFile(m.ManifestPath(manifest.Version), data)
}
