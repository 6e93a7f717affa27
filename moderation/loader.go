package moderation

import (
	"bufio"
	"os"
	"strings"
)

// LoadWords reads a word list from disk, one word per line. Blank lines and
// lines starting with '#' are skipped, duplicates are collapsed. A scanner is
// used so both \n and \r\n line endings parse the same way.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	unique := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		unique[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return words, nil
}
