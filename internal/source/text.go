package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tubegen/internal/mathutil"
)

// textReader decodes r to UTF-8. Without an explicit encoding a byte order
// mark selects UTF-16, anything else passes through as UTF-8.
func textReader(r io.Reader, opt Options) (io.Reader, error) {
	if opt.Encoding == "" {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	enc, err := htmlindex.Get(opt.Encoding)
	if err != nil {
		return nil, fmt.Errorf("source: encoding %q: %w", opt.Encoding, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func readText(r io.Reader, opt Options) (string, error) {
	tr, err := textReader(r, opt)
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(tr)
	if err != nil {
		return "", fmt.Errorf("source: read: %w", err)
	}
	return string(raw), nil
}

// parseTuples reads "x y, x y, ..." coordinate lists. Malformed tuples are
// skipped.
func parseTuples(block string) []mathutil.Vec2 {
	var out []mathutil.Vec2
	for _, tup := range strings.Split(block, ",") {
		parts := strings.Fields(strings.TrimSpace(tup))
		if len(parts) < 2 {
			continue
		}
		x, err1 := strconv.ParseFloat(parts[0], 64)
		y, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, mathutil.Vec2{x, y})
	}
	return out
}
