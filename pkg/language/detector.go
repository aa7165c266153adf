// Package language detects the script and language of an inbound message
// so replies and LLM prompts can be pinned to what the user actually
// speaks: English, Hindi, Marathi, romanized Hinglish, other Indic
// languages, or mixed-script text.
package language

import (
	"fmt"
	"regexp"
	"strings"
)

// Analysis is the detector output. Instruction is a language-pinning
// directive suitable to prepend to an LLM system prompt.
type Analysis struct {
	Language    string
	Script      string
	Confidence  float64
	Instruction string
}

type scriptRange struct {
	name string
	lo   rune
	hi   rune
}

// Recognized Unicode blocks. Latin covers ASCII letters only; digits and
// punctuation are script-neutral.
var scriptRanges = []scriptRange{
	{"devanagari", 0x0900, 0x097F},
	{"bengali", 0x0980, 0x09FF},
	{"gurmukhi", 0x0A00, 0x0A7F},
	{"gujarati", 0x0A80, 0x0AFF},
	{"tamil", 0x0B80, 0x0BFF},
	{"telugu", 0x0C00, 0x0C7F},
	{"kannada", 0x0C80, 0x0CFF},
	{"malayalam", 0x0D00, 0x0D7F},
}

var scriptLanguage = map[string]string{
	"devanagari": "hi",
	"bengali":    "bn",
	"gurmukhi":   "pa",
	"gujarati":   "gu",
	"tamil":      "ta",
	"telugu":     "te",
	"kannada":    "kn",
	"malayalam":  "ml",
}

// Romanized-Hindi lexical signals. One hit is enough to call Latin text
// Hinglish; these words are rare in natural English.
var hinglishRe = regexp.MustCompile(`(?i)\b(hai|hain|nahi|nahin|kya|kyu|kyun|mujhe|mera|meri|tera|teri|karo|karna|chahiye|bhai|yaar|acha|accha|theek|thik|batao|bata|dedo|de\s?do|wala|wali|paisa|paise|kitna|kitne|jaldi|abhi|ghar|khana|bhej|bhejo|mangwa|mangwao)\b`)

// Marathi-specific lexemes and graphemes that separate mr from hi within
// Devanagari text.
var marathiRe = regexp.MustCompile(`(आहे|आहेत|नाही|काय|मला|तुला|पाहिजे|करायचं|झालं|होतं|ळ)`)

const (
	minorShareThreshold = 0.15
	dominanceThreshold  = 0.7
)

// Analyze identifies the script and language of text by the dominant
// Unicode block, with lexical refinement for Hinglish and Marathi.
func Analyze(text string) Analysis {
	counts := map[string]int{}
	total := 0

	for _, r := range text {
		name := classifyRune(r)
		if name == "" {
			continue
		}
		counts[name]++
		total++
	}

	if total == 0 {
		return finish("en", "latin", 0.5)
	}

	dominant, dominantCount := "", 0
	minor := 0
	for name, n := range counts {
		if n > dominantCount {
			dominant, dominantCount = name, n
		}
		if float64(n)/float64(total) >= minorShareThreshold {
			minor++
		}
	}

	dominance := float64(dominantCount) / float64(total)

	if minor >= 2 && dominance < dominanceThreshold {
		return finish("mixed", dominant, dominance)
	}

	switch dominant {
	case "latin":
		if hinglishRe.MatchString(text) {
			return finish("hinglish", "latin", dominance)
		}
		return finish("en", "latin", dominance)
	case "devanagari":
		if marathiRe.MatchString(text) {
			return finish("mr", "devanagari", dominance)
		}
		return finish("hi", "devanagari", dominance)
	default:
		return finish(scriptLanguage[dominant], dominant, dominance)
	}
}

func classifyRune(r rune) string {
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return "latin"
	}
	for _, sr := range scriptRanges {
		if r >= sr.lo && r <= sr.hi {
			return sr.name
		}
	}
	return ""
}

func finish(lang, script string, confidence float64) Analysis {
	return Analysis{
		Language:    lang,
		Script:      script,
		Confidence:  confidence,
		Instruction: instruction(lang),
	}
}

var languageNames = map[string]string{
	"en":       "English",
	"hi":       "Hindi (Devanagari script)",
	"mr":       "Marathi (Devanagari script)",
	"hinglish": "Hinglish (Hindi written in Latin script)",
	"bn":       "Bengali",
	"pa":       "Punjabi",
	"gu":       "Gujarati",
	"ta":       "Tamil",
	"te":       "Telugu",
	"kn":       "Kannada",
	"ml":       "Malayalam",
	"mixed":    "the same mix of languages the user wrote in",
}

func instruction(lang string) string {
	name, ok := languageNames[lang]
	if !ok {
		name = "English"
	}
	return fmt.Sprintf("Always reply in %s. Do not switch languages unless the user does.", name)
}

// Name returns the human-readable name for a detected language code.
func Name(code string) string {
	if name, ok := languageNames[code]; ok {
		return strings.SplitN(name, " (", 2)[0]
	}
	return "English"
}
