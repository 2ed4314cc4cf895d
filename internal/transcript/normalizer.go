package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize flattens WEBVTT subtitle input into one annotated line per cue,
// formatted as "[MM:SS] text" where MM is total minutes. Plain text passes
// through unchanged. Malformed subtitle input that yields no cues also
// passes through unchanged rather than failing the caller.
func Normalize(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(trimmed), "webvtt") {
		return text, false
	}

	var out []string
	var stamp string
	var cue []string

	flush := func() {
		if stamp != "" && len(cue) > 0 {
			out = append(out, fmt.Sprintf("[%s] %s", stamp, strings.Join(cue, " ")))
		}
		cue = nil
	}

	for _, raw := range strings.Split(trimmed, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "" || isCueIndex(line) || isHeader(line):
			// Blank lines, cue indexes and header lines separate cues.
			flush()
			stamp = ""
		case strings.Contains(line, "-->"):
			flush()
			start := strings.TrimSpace(strings.SplitN(line, "-->", 2)[0])
			stamp = formatStamp(start)
		case stamp != "":
			cue = append(cue, line)
		}
	}
	flush()

	if len(out) == 0 {
		return text, false
	}
	return strings.Join(out, "\n"), true
}

func isCueIndex(line string) bool {
	if line == "" {
		return false
	}
	_, err := strconv.Atoi(line)
	return err == nil
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "webvtt") ||
		strings.HasPrefix(lower, "kind:") ||
		strings.HasPrefix(lower, "language:") ||
		strings.HasPrefix(lower, "note")
}

// formatStamp converts "HH:MM:SS.mmm" (or "MM:SS.mmm") into zero-padded
// total-minutes:seconds. Unparseable stamps become 00:00 rather than
// dropping the cue.
func formatStamp(ts string) string {
	ts = strings.SplitN(ts, ".", 2)[0]
	parts := strings.Split(ts, ":")

	var h, m, s int
	switch len(parts) {
	case 3:
		h, _ = strconv.Atoi(parts[0])
		m, _ = strconv.Atoi(parts[1])
		s, _ = strconv.Atoi(parts[2])
	case 2:
		m, _ = strconv.Atoi(parts[0])
		s, _ = strconv.Atoi(parts[1])
	default:
		return "00:00"
	}

	return fmt.Sprintf("%02d:%02d", h*60+m, s)
}
