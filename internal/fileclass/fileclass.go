// Package fileclass maps source file names to their scope class.
package fileclass

import (
	"path/filepath"
	"strings"

	"github.com/phobologic/impactscan/internal/model"
)

// DefaultScriptPrefix marks script routines. It is checked before the
// official prefixes.
const DefaultScriptPrefix = "aba"

// DefaultOfficialPrefixes lists the name prefixes of in-scope routines.
var DefaultOfficialPrefixes = []string{
	"gap", "pro", "fis", "cli", "fat", "est", "com", "fin", "ctb", "cpg", "crc",
	"ven", "nfe", "ped", "trb", "liv", "cad", "rel", "int", "exp", "sped", "log",
}

var programTypes = map[string]string{
	".mac": "Rotina MAC",
	".int": "Rotina INT",
	".inc": "Include",
	".cls": "Classe",
	".csp": "Página CSP",
	".rtn": "Rotina",
	".bas": "Basic",
}

// Classifier is a prefix table. The zero value is not usable; use New or Default.
type Classifier struct {
	script   string
	official []string
}

// New builds a Classifier. Prefixes are compared lower-cased; empty entries are ignored.
func New(scriptPrefix string, official []string) *Classifier {
	c := &Classifier{script: strings.ToLower(strings.TrimSpace(scriptPrefix))}
	for _, p := range official {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.official = append(c.official, p)
		}
	}
	return c
}

var defaultClassifier = New(DefaultScriptPrefix, DefaultOfficialPrefixes)

// Default returns the classifier built from the default prefix table.
func Default() *Classifier {
	return defaultClassifier
}

// Classify returns the class of file using the default prefix table.
func Classify(file string) model.FileClass {
	return defaultClassifier.Classify(file)
}

// Classify returns the class of file. Only the base name counts, so
// transcripts produced with or without directories agree.
func (c *Classifier) Classify(file string) model.FileClass {
	name := strings.ToLower(BaseName(file))
	if c.script != "" && strings.HasPrefix(name, c.script) {
		return model.Script
	}
	for _, p := range c.official {
		if strings.HasPrefix(name, p) {
			return model.Official
		}
	}
	return model.NonOfficial
}

// BaseName strips any directory part, accepting both separators.
func BaseName(file string) string {
	if i := strings.LastIndexAny(file, `/\`); i >= 0 {
		return file[i+1:]
	}
	return file
}

// Prefix returns the first three characters of the base name, upper-cased.
func Prefix(file string) string {
	r := []rune(BaseName(file))
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// ProgramType describes the kind of source from its extension.
func ProgramType(file string) string {
	ext := strings.ToLower(filepath.Ext(BaseName(file)))
	if ext == "" {
		return "Desconhecido"
	}
	if t, ok := programTypes[ext]; ok {
		return t
	}
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}
