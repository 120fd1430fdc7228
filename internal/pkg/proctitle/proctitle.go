package proctitle

import (
	"errors"
	"strings"
)

const maxLen = 15

var errEmpty = errors.New("empty process title")

func clip(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > maxLen {
		title = title[:maxLen]
	}
	return title
}
