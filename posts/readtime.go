package posts

import "strings"

// WordsPerMinute is the reading speed used for ReadingTime.
const WordsPerMinute = 200

// CountWords splits every header and body segment on single spaces and sums
// the pieces. Consecutive spaces and empty texts count as words.
func CountWords(d Detail) int {
	total := 0
	for _, block := range d.Content {
		total += len(strings.Split(block.Header, " "))
		for _, seg := range block.Body {
			total += len(strings.Split(seg.Text, " "))
		}
	}
	return total
}

// ReadingTime returns the reading time of d in whole minutes, rounded up.
func ReadingTime(d Detail) int {
	words := CountWords(d)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
