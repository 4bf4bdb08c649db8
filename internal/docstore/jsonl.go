package docstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// maxLine bounds a single snapshot line; records holding large blobs exceed
// bufio.Scanner's 64 KiB default.
const maxLine = 64 << 20

// readSnapshot reads the snapshot at path. A missing file is an empty store.
// Lines that fail to parse are logged and skipped so one torn record cannot
// make the whole store unreadable.
func readSnapshot(path string) ([]record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.WithFields(log.Fields{"path": path, "line": lineNo}).WithError(err).Warn("skipping malformed record")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeSnapshot atomically replaces the snapshot at path using the
// temp-file, fsync, rename pattern.
func writeSnapshot(path string, records []record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		err = multierr.Append(err, tmp.Close())
		return multierr.Append(err, os.Remove(tmpName))
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := range records {
		// Encode terminates each value with a newline.
		if err := enc.Encode(&records[i]); err != nil {
			return fail(fmt.Errorf("writing record %s: %w", records[i].Key, err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return multierr.Append(fmt.Errorf("closing temp file: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return multierr.Append(fmt.Errorf("renaming temp file: %w", err), os.Remove(tmpName))
	}
	return nil
}
