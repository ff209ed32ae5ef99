// Package textenc decodes input files whose charset is chosen by configuration
// and folds labels for accent-insensitive comparison.
package textenc

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Names lists the accepted charset names.
var Names = []string{"utf-8", "latin1", "windows-1252"}

// Validate reports whether name is an accepted charset.
func Validate(name string) error {
	_, err := decoder(name)
	return err
}

// NewReader wraps r so that it yields UTF-8 decoded from the named charset.
// For utf-8 a leading BOM is dropped and invalid sequences become U+FFFD.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	t, err := decoder(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, t), nil
}

func decoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return xunicode.BOMOverride(xunicode.UTF8.NewDecoder()), nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Fold lower-cases s, trims it and strips diacritics, so "Variável" and
// "VARIAVEL" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
