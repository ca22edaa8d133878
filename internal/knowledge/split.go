package knowledge

// Split cuts text into overlapping fixed-width windows. Chunk i starts at
// i*(window-overlap); the last chunk may be shorter than window. Splitting is
// rune-based so multi-byte text never breaks mid-character.
func Split(text string, window, overlap int) []string {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := window - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; ; start += step {
		end := start + window
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
