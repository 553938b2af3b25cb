package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	JobSpecFile = "vaga.json"
	ResultsFile = "resultados.json"
)

// File keeps state as JSON documents in a directory.
type File struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{dir: dir, logger: logger}, nil
}

func (f *File) LoadJobSpec(_ context.Context) (screening.JobSpec, error) {
	data, err := f.read(JobSpecFile)
	if err != nil {
		return screening.JobSpec{}, err
	}
	return decodeJobSpec(data, f.path(JobSpecFile), f.logger), nil
}

func (f *File) SaveJobSpec(_ context.Context, job screening.JobSpec) error {
	return f.write(JobSpecFile, job)
}

func (f *File) LoadResults(_ context.Context) (screening.ResultSet, error) {
	data, err := f.read(ResultsFile)
	if err != nil {
		return nil, err
	}
	return decodeResults(data, f.path(ResultsFile), f.logger), nil
}

func (f *File) SaveResults(_ context.Context, results screening.ResultSet) error {
	return f.write(ResultsFile, normalize(results))
}

func (f *File) Close() error {
	return nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *File) read(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// write replaces the file through a rename so readers never see a partial document.
func (f *File) write(name string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, f.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
