package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

// snapshot is the on-disk form of a Static provider.
type snapshot struct {
	Version       int                          `msgpack:"version"`
	DefaultSchema string                       `msgpack:"default_schema"`
	Objects       map[string]*DatabaseObject   `msgpack:"objects"`
	Mappings      map[string]map[string]string `msgpack:"mappings"`
	ForeignKeys   []ForeignKey                 `msgpack:"foreign_keys"`
}

// SaveSnapshot writes s in msgpack form so that validation can later run
// without a database connection.
func SaveSnapshot(w io.Writer, s *Static) error {
	snap := snapshot{
		Version:       snapshotVersion,
		DefaultSchema: s.defaultSchema,
		Objects:       s.objects,
		Mappings:      s.mappings,
		ForeignKeys:   s.foreignKeys,
	}
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encoding metadata snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(r io.Reader) (*Static, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding metadata snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("metadata snapshot version %d not supported (want %d)", snap.Version, snapshotVersion)
	}

	s := NewStatic(snap.DefaultSchema)
	for name, obj := range snap.Objects {
		s.AddObject(name, obj)
	}
	for name, m := range snap.Mappings {
		s.SetMappings(name, m)
	}
	for _, fk := range snap.ForeignKeys {
		s.AddForeignKey(fk)
	}
	return s, nil
}

// SaveSnapshotFile writes s to path, replacing any existing file.
func SaveSnapshotFile(path string, s *Static) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing snapshot: %w", cerr)
		}
	}()
	return SaveSnapshot(f, s)
}

// LoadSnapshotFile reads the snapshot at path.
func LoadSnapshotFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f)
}
