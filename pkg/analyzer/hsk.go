package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// HSKTable maps a word to its HSK level (1-6).
type HSKTable map[string]int

// Level returns the graded level of word, or LevelNone when the word is
// absent or carries a value outside 1-6.
func (t HSKTable) Level(word string) int {
	if lvl, ok := t[word]; ok && lvl >= 1 && lvl <= 6 {
		return lvl
	}
	return LevelNone
}

// LoadHSK reads a table from a JSON object ({"我": 1, ...}) or, when the
// path ends in .xlsx, from a spreadsheet with word and level columns.
func LoadHSK(path string) (HSKTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadHSKXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var table HSKTable
	if err := json.NewDecoder(f).Decode(&table); err != nil {
		return nil, fmt.Errorf("parse hsk table %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("hsk table %s: empty", path)
	}
	return table, nil
}

// LoadHSKXLSX reads column A (word) and column B (level) of the first
// sheet. Rows without a word or a numeric level are skipped.
func LoadHSKXLSX(path string) (HSKTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read hsk sheet %s: %w", path, err)
	}

	table := make(HSKTable, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		word := strings.TrimSpace(row[0])
		lvl, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if word == "" || err != nil {
			continue
		}
		table[word] = lvl
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("hsk table %s: no usable rows", path)
	}
	return table, nil
}
