package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads directory names from a file and adds them to the policy.
// Format:
//
//	name        → excluded directory name
//	# comment   → skip
//	blank line  → skip
func (p *Policy) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := p.Add(line); err != nil {
			return fmt.Errorf("exclude file %s line %d: %w", path, lineNum, err)
		}
	}

	return scanner.Err()
}
