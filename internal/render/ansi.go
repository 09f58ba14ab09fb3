package render

import (
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// ANSI renders the document for a terminal. Where regions overlap the last
// registered region colors the byte. Unstyled regions are drawn as plain
// underlined links in the link color.
func ANSI(d *Document, profile termenv.Profile, now time.Time) string {
	text := d.Text
	if text == "" {
		return ""
	}

	owner := make([]int, len(text))
	for i := range owner {
		owner[i] = -1
	}
	for _, r := range d.regions {
		for i := r.Item.Start; i < r.Item.End && i < len(text); i++ {
			owner[i] = r.Index
		}
	}

	var b strings.Builder
	for start := 0; start < len(text); {
		end := start + 1
		for end < len(text) && owner[end] == owner[start] {
			end++
		}
		seg := text[start:end]
		if owner[start] < 0 {
			b.WriteString(seg)
		} else {
			c, _ := d.ColorAt(owner[start], now)
			style := profile.String(seg)
			if !d.regions[owner[start]].Styled {
				style = style.Underline()
			}
			b.WriteString(style.Foreground(profile.Color(c.Hex())).String())
		}
		start = end
	}
	return b.String()
}
