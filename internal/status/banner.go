package status

import (
	"fmt"
	"strings"
	"time"
)

const (
	bannerStart = "<!-- codewiki:stale -->"
	bannerEnd   = "<!-- /codewiki:stale -->"
)

// FormatBanner returns the warning text for a stale page.
func FormatBanner(s StalePage) string {
	days := "less than a day"
	switch {
	case s.DaysStale == 1:
		days = "1 day"
	case s.DaysStale > 1:
		days = fmt.Sprintf("%d days", s.DaysStale)
	}
	return fmt.Sprintf("> **Warning:** this page may be out of date. Its sources changed %s after it was generated "+
		"(latest change %s in `%s`).", days, s.NewestSource.UTC().Format(time.DateOnly), s.NewestFile)
}

// InjectBanner prepends banner to content between marker comments. An
// existing banner is replaced, so injecting twice equals injecting once.
func InjectBanner(content, banner string) string {
	return bannerStart + "\n" + banner + "\n" + bannerEnd + "\n\n" + RemoveBanner(content)
}

// RemoveBanner strips a banner added by InjectBanner and returns the page as
// it was before.
func RemoveBanner(content string) string {
	if !strings.HasPrefix(content, bannerStart) {
		return content
	}
	end := strings.Index(content, bannerEnd)
	if end < 0 {
		return content
	}
	rest := content[end+len(bannerEnd):]
	rest = strings.TrimPrefix(rest, "\n")
	return strings.TrimPrefix(rest, "\n")
}

// HasBanner reports whether content starts with a staleness banner.
func HasBanner(content string) bool {
	return strings.HasPrefix(content, bannerStart) && strings.Contains(content, bannerEnd)
}
