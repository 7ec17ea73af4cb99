package policy

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/greypolicy/internal/logging"
)

// ReadFile merges the policy file name from fsys over prior and returns the
// result. prior itself is never modified.
//
// A missing file, a path that is not a regular file, and unreadable files
// leave prior unchanged. Malformed lines and unknown keys are logged and
// skipped. A value that cannot be coerced to its schema type aborts the
// whole file: prior is returned together with a *CoercionError.
func ReadFile(fsys fs.FS, name string, prior Settings, schema Schema, log *logging.Leveled) (Settings, error) {
	merged, _, err := readFile(fsys, name, prior, schema, log)
	return merged, err
}

// readFile also reports whether the file contributed to the result.
func readFile(fsys fs.FS, name string, prior Settings, schema Schema, log *logging.Leveled) (Settings, bool, error) {
	if prior == nil {
		prior = Settings{}
	}

	info, err := fs.Stat(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return prior, false, nil
	}
	if err != nil {
		log.Logger().Error("cannot stat policy file", zap.String("path", name), zap.Error(err))
		return prior, false, nil
	}
	if !info.Mode().IsRegular() {
		log.Logger().Error("policy path is not a regular file",
			zap.String("path", name),
			zap.Stringer("mode", info.Mode()),
		)
		return prior, false, nil
	}

	log.V(3).Info("loading policy file", zap.String("path", name))

	file, err := fsys.Open(name)
	if err != nil {
		log.Logger().Error("cannot open policy file", zap.String("path", name), zap.Error(err))
		return prior, false, nil
	}
	defer file.Close()

	working := prior.Clone()
	reader := bufio.NewReader(file)

	lineNo := 0
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			log.Logger().Error("cannot read policy file", zap.String("path", name), zap.Error(readErr))
			return prior, false, nil
		}
		if line == "" {
			break
		}
		lineNo++

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry, raw, found := strings.Cut(line, "=")
		entry = strings.TrimSpace(entry)
		raw = strings.TrimSpace(raw)
		if !found || entry == "" || raw == "" {
			log.Logger().Error("cannot parse policy line",
				zap.String("path", name),
				zap.Int("line", lineNo),
				zap.String("text", line),
			)
			continue
		}

		key, kind, ok := schema.Lookup(entry)
		if !ok {
			log.Logger().Error("unknown policy setting",
				zap.String("path", name),
				zap.Int("line", lineNo),
				zap.String("name", entry),
			)
			continue
		}

		value, err := Coerce(kind, raw)
		if err != nil {
			cerr := &CoercionError{
				Path:  name,
				Line:  lineNo,
				Key:   key,
				Kind:  kind,
				Value: raw,
				Err:   err,
			}
			log.Logger().Error("policy value has wrong type, file discarded", zap.Error(cerr))
			return prior, false, cerr
		}

		log.V(4).Info("found policy entry", zap.String("name", entry), zap.String("value", raw))
		working[key] = value
	}

	return working, true, nil
}
