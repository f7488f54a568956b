package download

import (
	"os"
	"path/filepath"
)

// partialFile is written next to its destination and only moved into place
// once complete, an interrupted download never leaves a truncated file at
// the destination.
type partialFile struct {
	*os.File
	destination string
	committed   bool
}

func newPartialFile(destination string) (*partialFile, error) {
	f, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".*.part")
	if err != nil {
		return nil, err
	}
	return &partialFile{File: f, destination: destination}, nil
}

func (f *partialFile) commit() error {
	err := f.Close()
	if err != nil {
		return err
	}
	err = os.Rename(f.Name(), f.destination)
	if err != nil {
		return err
	}
	f.committed = true
	return nil
}

func (f *partialFile) discard() {
	if f.committed {
		return
	}
	f.Close()
	os.Remove(f.Name())
}
