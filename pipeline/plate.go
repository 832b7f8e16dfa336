package pipeline

import "strings"

// OCR engines routinely confuse these glyph pairs; the mapping restores the
// expected character class per plate position.
var charToDigit = map[byte]byte{'O': '0', 'I': '1', 'J': '3', 'A': '4', 'G': '6', 'S': '5'}
var digitToChar = map[byte]byte{'0': 'O', '1': 'I', '3': 'J', '4': 'A', '6': 'G', '5': 'S'}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// NormalizePlate validates a raw OCR read-out against the 7-character plate
// layout (two letters, two digits, three letters) and returns the normalized
// text with confused glyphs mapped back to their expected class. ok is false
// when the text cannot be a plate.
func NormalizePlate(text string) (string, bool) {
	text = strings.ToUpper(strings.ReplaceAll(text, " ", ""))
	if len(text) != 7 {
		return "", false
	}

	out := make([]byte, 7)
	for i := 0; i < 7; i++ {
		b := text[i]
		letterPos := i != 2 && i != 3
		if letterPos {
			switch {
			case isUpper(b):
				out[i] = b
			case digitToChar[b] != 0:
				out[i] = digitToChar[b]
			default:
				return "", false
			}
		} else {
			switch {
			case isDigit(b):
				out[i] = b
			case charToDigit[b] != 0:
				out[i] = charToDigit[b]
			default:
				return "", false
			}
		}
	}
	return string(out), true
}
