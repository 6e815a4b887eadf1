package search

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	codeFenceRE  = regexp.MustCompile("^```.*$")
	headingRE    = regexp.MustCompile(`^#{1,6}\s+`)
	imageRE      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRE       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	emphasisRE   = regexp.MustCompile("[*_`~]+")
	blockquoteRE = regexp.MustCompile(`^>\s*`)
)

// StripMarkdown flattens Markdown into plain text suitable for indexing:
// fenced code blocks are dropped, headings/blockquote markers and emphasis
// characters removed, links reduced to their text, images discarded, and
// table rows collapsed into space-joined cell text.
//
// Notes:
//   - Separator-only table rows (|---|---|) are skipped entirely.
//   - Output lines are joined with single newlines; no trailing newline.
func StripMarkdown(src string) string {
	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inFence := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if codeFenceRE.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence || line == "" {
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			raw := strings.Trim(line, "|")
			cols := strings.Split(raw, "|")

			allSep := true
			cleaned := make([]string, 0, len(cols))
			for _, c := range cols {
				cell := strings.TrimSpace(c)
				if cell != "" {
					cleaned = append(cleaned, cell)
				}
				tmp := strings.ReplaceAll(cell, ":", "")
				tmp = strings.ReplaceAll(tmp, "-", "")
				if strings.TrimSpace(tmp) != "" {
					allSep = false
				}
			}
			if allSep || len(cleaned) == 0 {
				continue
			}
			line = strings.Join(cleaned, " ")
		}

		line = headingRE.ReplaceAllString(line, "")
		line = blockquoteRE.ReplaceAllString(line, "")
		line = imageRE.ReplaceAllString(line, "")
		line = linkRE.ReplaceAllString(line, "$1")
		line = emphasisRE.ReplaceAllString(line, "")

		if line = strings.TrimSpace(line); line != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line)
		}
	}

	return b.String()
}
