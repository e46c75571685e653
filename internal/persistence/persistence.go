// Package persistence implements blinkdb's snapshot format: a
// line-oriented file, one binding per line, loaded in full on start and
// overwritten in full on clean shutdown. It is not a log — there is no
// crash durability beyond the last clean shutdown, matching spec.
package persistence

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"blinkdb/internal/keyspace"
	"blinkdb/internal/log"
	"blinkdb/internal/value"
)

// Load reads path if it exists and installs every well-formed line into
// ks, in file order, so recency reflects the order keys were written.
// A line that fails to parse is skipped and counted rather than treated
// as fatal; the count is logged once when loading finishes. A missing
// file is not an error — the store simply starts empty.
func Load(path string, ks *keyspace.Keyspace) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("persistence: no snapshot at %s, starting empty", path)
			return nil
		}
		return fmt.Errorf("persistence: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var loaded, skipped int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key, v, err := parseLine(line)
		if err != nil {
			skipped++
			continue
		}
		ks.LoadBinding(key, v)
		ks.TouchLoaded(key)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("persistence: read %s: %w", path, err)
	}

	if skipped > 0 {
		log.Warnf("persistence: skipped %d malformed line(s) loading %s", skipped, path)
	}
	log.Infof("persistence: loaded %d key(s) from %s", loaded, path)
	return nil
}

// parseLine splits a "<tag> <key> <body>" line and decodes the body per
// the tag's grammar.
func parseLine(line []byte) (string, *value.Value, error) {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return "", nil, fmt.Errorf("persistence: missing tag separator")
	}
	tag := line[:sp1]
	if len(tag) != 1 {
		return "", nil, fmt.Errorf("persistence: tag must be one byte")
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 < 0 {
		return "", nil, fmt.Errorf("persistence: missing key separator")
	}
	key := rest[:sp2]
	body := rest[sp2+1:]

	v, err := value.Decode(tag[0], body)
	if err != nil {
		return "", nil, err
	}
	return string(key), v, nil
}

// Save snapshots every live key in ks to path, overwriting any prior
// contents. It writes to a temporary file in the same directory and
// renames it into place so a crash mid-write cannot corrupt the previous
// snapshot.
func Save(path string, ks *keyspace.Keyspace) error {
	snapshot := ks.Snapshot()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".blinkdb-snapshot-*")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	var writeErrs error
	w := bufio.NewWriter(tmp)
	for key, v := range snapshot {
		if _, err := fmt.Fprintf(w, "%c %s ", v.Tag(), key); err != nil {
			writeErrs = multierr.Append(writeErrs, err)
			continue
		}
		if _, err := w.Write(v.Encode()); err != nil {
			writeErrs = multierr.Append(writeErrs, err)
			continue
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			writeErrs = multierr.Append(writeErrs, err)
		}
	}
	flushErr := w.Flush()
	syncErr := tmp.Sync()
	closeErr := tmp.Close()

	allErrs := multierr.Combine(writeErrs, flushErr, syncErr, closeErr)
	if allErrs != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: save %s: %w", path, allErrs)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename into %s: %w", path, err)
	}

	log.Infof("persistence: saved %d key(s) to %s", len(snapshot), path)
	return nil
}
