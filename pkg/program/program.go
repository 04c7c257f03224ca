// Package program reads and writes picasso program files (.exp).
package program

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the conventional program file extension.
const Ext = ".exp"

// MaxSourceSize is the largest program file accepted, in bytes.
const MaxSourceSize = 128 * 1024

// Read returns the program text in r with // comments stripped, every line
// trimmed and blank lines dropped. Lines are joined with newlines.
func Read(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return "", fmt.Errorf("read program: %w", err)
	}
	if len(raw) > MaxSourceSize {
		return "", fmt.Errorf("program exceeds maximum size of %d bytes", MaxSourceSize)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 4096), MaxSourceSize+1)
	for sc.Scan() {
		line := strings.TrimSpace(StripComment(sc.Text()))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read program: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// ReadFile reads the program file at path.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	src, err := Read(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// StripComment removes a trailing // comment from line. Slashes inside
// double-quoted file names are kept.
func StripComment(line string) string {
	inStr := false
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; {
		case inStr && ch == '\\':
			i++
		case ch == '"':
			inStr = !inStr
		case !inStr && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// WriteFile saves src to path, adding the .exp extension when path has none.
// It returns the path written.
func WriteFile(path, src string) (string, error) {
	if filepath.Ext(path) == "" {
		path += Ext
	}
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return "", fmt.Errorf("write program: %w", err)
	}
	return path, nil
}

// Name derives a program name from a file path: the base name without its
// extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
