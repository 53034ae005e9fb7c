package services

import (
	"strconv"
	"unicode"
)

// naturalLess compares strings treating digit runs as numbers,
// so "dish2.jpg" sorts before "dish10.jpg".
func naturalLess(s1, s2 string) bool {
	i, j := 0, 0
	for i < len(s1) && j < len(s2) {
		for i < len(s1) && unicode.IsSpace(rune(s1[i])) {
			i++
		}
		for j < len(s2) && unicode.IsSpace(rune(s2[j])) {
			j++
		}
		if i >= len(s1) || j >= len(s2) {
			break
		}

		if isDigit(s1[i]) && isDigit(s2[j]) {
			si := i
			for i < len(s1) && isDigit(s1[i]) {
				i++
			}
			sj := j
			for j < len(s2) && isDigit(s2[j]) {
				j++
			}
			n1, _ := strconv.Atoi(s1[si:i])
			n2, _ := strconv.Atoi(s2[sj:j])
			if n1 != n2 {
				return n1 < n2
			}
			continue
		}

		if s1[i] != s2[j] {
			return s1[i] < s2[j]
		}
		i++
		j++
	}

	return len(s1)-i < len(s2)-j
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
