package scanner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/vvka-141/dbobj/internal/checksum"
	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/internal/tags"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// FileRecord describes one scanned file. When the file did not parse, Object
// is empty and Err holds the parse or tag error.
type FileRecord struct {
	Path        string
	Kind        dbobj.ObjectKind
	Object      string
	Checksum    string
	ChecksumRaw string
	Err         error
}

// Result is the outcome of scanning one application directory.
type Result struct {
	Registry *registry.Registry
	Files    []FileRecord
	Report   *dbobj.Report
}

// FileFor returns the record of the file at rel.
func (r *Result) FileFor(rel string) (FileRecord, bool) {
	for _, f := range r.Files {
		if f.Path == rel {
			return f, true
		}
	}
	return FileRecord{}, false
}

// Scanner is safe for concurrent use as long as its calculator and provider are.
type Scanner struct {
	calculator checksum.Calculator
	fsProvider filesystem.FileSystemProvider
}

// NewScanner scans the OS filesystem. Panics if calculator is nil.
func NewScanner(calculator checksum.Calculator) *Scanner {
	return NewScannerWithFS(calculator, filesystem.NewOSFileSystem())
}

// NewScannerWithFS scans through a custom provider. Panics on nil arguments.
func NewScannerWithFS(calculator checksum.Calculator, fsProvider filesystem.FileSystemProvider) *Scanner {
	if calculator == nil {
		panic("calculator cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{calculator: calculator, fsProvider: fsProvider}
}

// ScanApplication scans appDir/tables and appDir/functions. Missing
// directories are treated as empty. The returned error is reserved for I/O
// failures; problems in the files themselves are collected in Result.Report.
func (s *Scanner) ScanApplication(appDir string) (*Result, error) {
	result := &Result{Report: &dbobj.Report{}}
	var parsed []*dbobj.SchemaObject

	for _, kind := range []dbobj.ObjectKind{dbobj.KindTable, dbobj.KindFunction} {
		sub := filepath.Join(appDir, kind.Dir())
		if info, err := s.fsProvider.Stat(sub); err != nil || !info.IsDir() {
			continue
		}
		dir, err := s.fsProvider.Open(sub)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", sub, err)
		}

		err = dir.Walk(func(file filesystem.File, err error) error {
			if err != nil {
				return fmt.Errorf("error walking %s: %w", sub, err)
			}
			if file.Info().IsDir() || !strings.EqualFold(path.Ext(file.RelativePath()), dbobj.SQLExtension) {
				return nil
			}
			rel := path.Join(kind.Dir(), file.RelativePath())
			rec, obj, err := s.processFile(file, rel, kind)
			if err != nil {
				return err
			}
			result.Files = append(result.Files, rec)
			if rec.Err != nil {
				result.Report.Add(rec.Err)
				return nil
			}
			parsed = append(parsed, obj)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	reg, dupReport := registry.Populate(parsed)
	result.Registry = reg
	result.Report.Merge(dupReport)
	return result, nil
}

// processFile returns an error only when the file cannot be read; parse
// failures are recorded on the FileRecord.
func (s *Scanner) processFile(file filesystem.File, rel string, kind dbobj.ObjectKind) (FileRecord, *dbobj.SchemaObject, error) {
	content, err := file.ReadContent()
	if err != nil {
		return FileRecord{}, nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	rec := FileRecord{
		Path:        rel,
		Kind:        kind,
		Checksum:    s.calculator.CalculateNormalized(content),
		ChecksumRaw: s.calculator.CalculateRaw(content),
	}
	obj, err := tags.Parse(rel, string(content))
	if err != nil {
		rec.Err = err
		return rec, nil, nil
	}
	rec.Object = obj.Name
	return rec, obj, nil
}
