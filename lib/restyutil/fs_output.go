package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes every instrumented http message into its own file
// under a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` and recreates it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear http dump directory: %w", err)
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create http dump directory: %w", err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Directory() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
