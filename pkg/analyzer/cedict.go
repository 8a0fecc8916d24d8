package analyzer

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Entry is one CC-CEDICT entry for a simplified form. A simplified form
// with several readings has several entries.
type Entry struct {
	Traditional string
	Pinyin      string
	Definitions []string
}

// Dict indexes CC-CEDICT entries by simplified form.
type Dict map[string][]Entry

// CC-CEDICT line grammar: 學習 学习 [xue2 xi2] /to study/to learn/
var cedictLine = regexp.MustCompile(`^(\S+)\s(\S+)\s\[(.+?)\]\s/(.+)/$`)

// LoadCEDICT parses a CC-CEDICT text file. Comment and malformed lines
// are skipped; an unreadable file is an error.
func LoadCEDICT(path string) (Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dict := make(Dict)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := cedictLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dict[m[2]] = append(dict[m[2]], Entry{
			Traditional: m[1],
			Pinyin:      m[3],
			Definitions: strings.Split(m[4], "/"),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cedict %s: %w", path, err)
	}
	if len(dict) == 0 {
		return nil, fmt.Errorf("cedict %s: no entries", path)
	}
	return dict, nil
}

// Lookup merges all entries for word: the reported pinyin comes from the
// first entry, definitions are the concatenation of every entry's
// definition list in entry order. An unknown word returns empty values.
func (d Dict) Lookup(word string) (pinyin string, definitions []string) {
	entries := d[word]
	if len(entries) == 0 {
		return "", nil
	}
	pinyin = entries[0].Pinyin
	for _, e := range entries {
		definitions = append(definitions, e.Definitions...)
	}
	return pinyin, definitions
}
