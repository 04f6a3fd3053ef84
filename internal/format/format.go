// ABOUTME: Text shaping for outbound Telegram messages
// ABOUTME: Escape stripping, list bullet rewriting and size-bounded chunking

package format

import "strings"

// MaxMessageLength is the Telegram limit on a single text message, in characters.
const MaxMessageLength = 4096

// Sanitize removes every backslash from text.
func Sanitize(text string) string {
	return strings.ReplaceAll(text, `\`, "")
}

// FormatList rewrites dash-led lines as bullets and trims every line.
// Numbered lines and everything else pass through trimmed; line count and order are kept.
func FormatList(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "-"); ok {
			lines[i] = "• " + strings.TrimSpace(rest)
			continue
		}
		lines[i] = trimmed
	}
	return strings.Join(lines, "\n")
}

// Chunk splits text into consecutive pieces of at most maxSize characters.
// Joining the pieces reproduces text exactly. Empty text yields no chunks;
// maxSize <= 0 means MaxMessageLength.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = MaxMessageLength
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxSize-1)/maxSize)
	for start := 0; start < len(runes); start += maxSize {
		end := min(start+maxSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
