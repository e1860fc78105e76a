package wiki

import "strings"

// RelativePath returns the link from page from to page to. The directory of
// from is compared segment by segment with the full path of to; each
// unmatched directory segment of from becomes "..", followed by the
// remaining segments of to. Pages in the same directory link by bare file
// name. A target that is a directory of from yields ".".
func RelativePath(from, to string) string {
	fromDir := splitSegments(from)
	if len(fromDir) > 0 {
		fromDir = fromDir[:len(fromDir)-1]
	}
	target := splitSegments(to)

	common := 0
	for common < len(fromDir) && common < len(target) && fromDir[common] == target[common] {
		common++
	}

	parts := make([]string, 0, len(fromDir)-common+len(target)-common)
	for i := common; i < len(fromDir); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, target[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}
