package gpu

import "strings"

// findBlock returns the lines between the first line containing trigger
// and the following terminator line (a line of only '=' characters),
// exclusive of both. Returns nil if trigger is never found.
func findBlock(rawText, trigger string) []string {
	lines := strings.Split(rawText, "\n")
	i := 0
	for i < len(lines) && !strings.Contains(lines[i], trigger) {
		i++
	}
	if i >= len(lines) {
		return nil
	}
	i++
	var block []string
	for i < len(lines) && !isTerminator(lines[i]) {
		block = append(block, lines[i])
		i++
	}
	return block
}

// isTerminator reports whether s consists only of '=' characters
// (rocm-smi's section-closing rule line). An empty string satisfies
// this vacuously, matching the original's all()-over-zero-chars rule.
func isTerminator(s string) bool {
	for _, c := range s {
		if c != '=' {
			return false
		}
	}
	return true
}
