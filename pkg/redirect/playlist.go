package redirect

import "strings"

func isPlaylistURL(rawURL string) bool {
	u := rawURL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}

	return strings.HasSuffix(u, ".pls") ||
		strings.HasSuffix(u, ".m3u") ||
		strings.HasSuffix(u, ".m3u8")
}

// firstPlaylistEntry picks the first stream URL out of a PLS or M3U body,
// or "" if none is present. Both formats are line-oriented: PLS carries
// `FileN=<url>` entries, M3U carries bare URLs between comment lines.
func firstPlaylistEntry(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// PLS entry
		if strings.HasPrefix(line, "File") {
			if _, value, found := strings.Cut(line, "="); found {
				if value = strings.TrimSpace(value); value != "" {
					return value
				}
			}
			continue
		}

		// M3U entry: any non-comment URL line
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line
		}
	}

	return ""
}
