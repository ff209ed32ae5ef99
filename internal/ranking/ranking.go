// Package ranking orders files by how many critical findings they carry.
package ranking

import (
	"sort"

	"github.com/phobologic/impactscan/internal/model"
)

// FileCount is the number of critical findings in one file.
type FileCount struct {
	File       string
	Count      int
	Categories map[model.Category]int
}

// TopFiles returns files ordered by critical count descending, then name.
// If n is <= 0 or >= the number of files, all files are returned.
func TopFiles(records []model.CriticalRecord, n int) []FileCount {
	byFile := make(map[string]*FileCount)
	for i := range records {
		r := &records[i]
		fc := byFile[r.File]
		if fc == nil {
			fc = &FileCount{File: r.File, Categories: make(map[model.Category]int)}
			byFile[r.File] = fc
		}
		fc.Count++
		fc.Categories[r.Category]++
	}

	files := make([]FileCount, 0, len(byFile))
	for _, fc := range byFile {
		files = append(files, *fc)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Count != files[j].Count {
			return files[i].Count > files[j].Count
		}
		return files[i].File < files[j].File
	})

	if n <= 0 || n >= len(files) {
		return files
	}
	return files[:n]
}

// FilterByClass returns the records whose file class is class.
func FilterByClass(records []model.CriticalRecord, class model.FileClass) []model.CriticalRecord {
	var out []model.CriticalRecord
	for i := range records {
		if records[i].FileClass == class {
			out = append(out, records[i])
		}
	}
	return out
}

// DistinctFiles counts the different files among records.
func DistinctFiles(records []model.CriticalRecord) int {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		seen[records[i].File] = struct{}{}
	}
	return len(seen)
}
