package place

import "strings"

// Soundex returns the four-character Soundex code for a word. Words that
// sound alike ("Smith", "Smythe") share a code.
func Soundex(text string) string {
	if len(text) == 0 {
		return ""
	}

	text = strings.ToUpper(text)

	mapping := map[rune]rune{
		'B': '1', 'F': '1', 'P': '1', 'V': '1',
		'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
		'D': '3', 'T': '3',
		'L': '4',
		'M': '5', 'N': '5',
		'R': '6',
	}

	var result strings.Builder
	result.WriteRune(rune(text[0]))

	prevCode := mapping[rune(text[0])]
	for i := 1; i < len(text) && result.Len() < 4; i++ {
		code := mapping[rune(text[i])]
		if code != 0 && code != prevCode {
			result.WriteRune(code)
			prevCode = code
		} else if code == 0 {
			prevCode = 0
		}
	}

	for result.Len() < 4 {
		result.WriteRune('0')
	}

	return result.String()
}

// Metaphone returns the Metaphone code for a word. It captures English
// pronunciation more finely than Soundex ("TH" -> '0', "PH" -> 'F') and is
// the encoder the place matcher uses for phonetic candidates.
func Metaphone(word string) string {
	// Keep letters only.
	var letters []byte
	for _, r := range strings.ToUpper(word) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, byte(r))
		}
	}
	if len(letters) == 0 {
		return ""
	}

	isVowel := func(c byte) bool {
		return c == 'A' || c == 'E' || c == 'I' || c == 'O' || c == 'U'
	}
	at := func(i int) byte {
		if i < 0 || i >= len(letters) {
			return 0
		}
		return letters[i]
	}

	start := 0
	// Initial-letter exceptions.
	switch {
	case len(letters) >= 2 && (string(letters[:2]) == "AE" || string(letters[:2]) == "GN" ||
		string(letters[:2]) == "KN" || string(letters[:2]) == "PN" || string(letters[:2]) == "WR"):
		start = 1
	case letters[0] == 'X':
		letters[0] = 'S'
	case len(letters) >= 2 && string(letters[:2]) == "WH":
		letters = append([]byte{'W'}, letters[2:]...)
	}

	var out strings.Builder
	for i := start; i < len(letters); i++ {
		c := letters[i]

		// Drop doubled letters except C.
		if c != 'C' && i > start && c == letters[i-1] {
			continue
		}

		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			if i == start {
				out.WriteByte(c)
			}
		case 'B':
			// Silent terminal B after M, as in "lamb".
			if !(i == len(letters)-1 && at(i-1) == 'M') {
				out.WriteByte('B')
			}
		case 'C':
			switch {
			case at(i+1) == 'I' && at(i+2) == 'A':
				out.WriteByte('X')
			case at(i+1) == 'H':
				out.WriteByte('X')
				i++
			case at(i+1) == 'I' || at(i+1) == 'E' || at(i+1) == 'Y':
				out.WriteByte('S')
			default:
				out.WriteByte('K')
			}
		case 'D':
			if at(i+1) == 'G' && (at(i+2) == 'E' || at(i+2) == 'I' || at(i+2) == 'Y') {
				out.WriteByte('J')
				i++
			} else {
				out.WriteByte('T')
			}
		case 'G':
			switch {
			case at(i+1) == 'H' && !isVowel(at(i+2)):
				// Silent GH, as in "burgh" or "night".
				i++
			case at(i+1) == 'N':
				// Silent before N, as in "sign".
			case at(i+1) == 'E' || at(i+1) == 'I' || at(i+1) == 'Y':
				out.WriteByte('J')
			default:
				out.WriteByte('K')
			}
		case 'H':
			if isVowel(at(i - 1)) && !isVowel(at(i+1)) {
				// Silent, as in "ah".
			} else {
				out.WriteByte('H')
			}
		case 'K':
			if at(i-1) != 'C' {
				out.WriteByte('K')
			}
		case 'P':
			if at(i+1) == 'H' {
				out.WriteByte('F')
				i++
			} else {
				out.WriteByte('P')
			}
		case 'Q':
			out.WriteByte('K')
		case 'S':
			if at(i+1) == 'H' {
				out.WriteByte('X')
				i++
			} else if at(i+1) == 'I' && (at(i+2) == 'O' || at(i+2) == 'A') {
				out.WriteByte('X')
			} else {
				out.WriteByte('S')
			}
		case 'T':
			if at(i+1) == 'H' {
				out.WriteByte('0')
				i++
			} else if at(i+1) == 'I' && (at(i+2) == 'O' || at(i+2) == 'A') {
				out.WriteByte('X')
			} else {
				out.WriteByte('T')
			}
		case 'V':
			out.WriteByte('F')
		case 'W', 'Y':
			if isVowel(at(i + 1)) {
				out.WriteByte(c)
			}
		case 'X':
			out.WriteString("KS")
		case 'Z':
			out.WriteByte('S')
		default:
			out.WriteByte(c)
		}
	}

	return out.String()
}
