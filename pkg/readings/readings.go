// Package readings cleans and validates phonetic readings (furigana).
//
// Normalize folds compatibility forms with NFKC and strips whitespace and a
// fixed set of punctuation, keeping the interpunct and long-vowel mark that
// appear inside readings. IsAcceptable is the local gate that lets a reading
// bypass the external reader.
package readings

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// Interpunct separates words inside a reading (パフューム・フェムル).
	Interpunct = '・'
	// LongVowel is the katakana prolonged sound mark.
	LongVowel = 'ー'
)

// maxPasses bounds the normalize fixed-point loop. Two passes always suffice;
// stripping can only expose new canonical compositions once.
const maxPasses = 4

var stripped = map[rune]bool{}

func init() {
	for _, r := range "「」『』()（）[]［］【】〔〕{}｛｝<>＜＞《》〈〉.,、。，．!！?？\"'“”‘’`~〜～-‐‑–—―−*＊/／\\＼:：;；…‥♪☆★○●◎◇◆□■△▲▽▼" {
		stripped[r] = true
	}
}

// Normalize returns the cleaned form of a reading. It is pure and
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	out := s
	for range maxPasses {
		next := strip(norm.NFKC.String(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}

func strip(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\u200b' || r == '\ufeff' {
			return -1
		}
		if stripped[r] {
			return -1
		}
		return r
	}, s)
}

// IsKatakana reports whether r is a katakana letter or iteration mark.
func IsKatakana(r rune) bool {
	return (r >= 0x30A1 && r <= 0x30FA) || r == 'ヽ' || r == 'ヾ'
}

// IsHiragana reports whether r is a hiragana letter or iteration mark.
func IsHiragana(r rune) bool {
	return (r >= 0x3041 && r <= 0x3096) || r == 'ゝ' || r == 'ゞ'
}

func isMark(r rune) bool {
	return r == Interpunct || r == LongVowel
}

// IsAcceptable reports whether the normalized reading is non-empty, has at
// least one kana letter, and is written entirely in katakana or entirely in
// hiragana (the interpunct and long-vowel mark are allowed in both).
func IsAcceptable(reading string) bool {
	s := Normalize(reading)
	if s == "" {
		return false
	}

	var katakana, hiragana int
	for _, r := range s {
		switch {
		case IsKatakana(r):
			katakana++
		case IsHiragana(r):
			hiragana++
		case isMark(r):
		default:
			return false
		}
	}
	if katakana > 0 && hiragana > 0 {
		return false
	}
	return katakana+hiragana > 0
}

// HasLogographic reports whether s still contains Han characters.
func HasLogographic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
