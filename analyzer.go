// ═══════════════════════════════════════════════════════════════════════════════
// TEXT ANALYSIS OVERVIEW
// ═══════════════════════════════════════════════════════════════════════════════
// The index works on token ids, not on characters. Analysis turns raw text into
// the term sequence that is later mapped to ids through the Vocabulary.
//
// ANALYSIS PIPELINE:
// ------------------
//  1. Stop word removal → Drop function words ("the", "a") when enabled
//  2. Tokenization      → Split text into words
//  3. Lowercasing       → Normalize case ("Quick" → "quick")
//  4. Length filtering  → Drop tokens shorter than MinTokenLength
//  5. Stemming          → Reduce words to root form ("running" → "run")
//
// The same pipeline runs over documents at build time and over query text at
// search time, so a query term always meets the exact form that was indexed.
//
// Unlike a bag-of-words index, a phrase index answers multi-token patterns, so
// stop words are kept by default: removing them would glue together words that
// were never adjacent in the source text.
// ═══════════════════════════════════════════════════════════════════════════════

package surf

import (
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	"github.com/kljensen/snowball"
)

// AnalyzerConfig holds configuration options for text analysis
type AnalyzerConfig struct {
	Language        string // Snowball language name (default: "english")
	MinTokenLength  int    // Minimum token length to keep (default: 1)
	EnableStemming  bool   // Whether to apply stemming (default: true)
	EnableStopwords bool   // Whether to remove stopwords (default: false)
}

// DefaultAnalyzerConfig returns the standard analyzer configuration
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Language:        "english",
		MinTokenLength:  1,
		EnableStemming:  true,
		EnableStopwords: false,
	}
}

// stopwordLanguages maps snowball language names to the ISO 639-1 codes the
// stopword lists are keyed by.
var stopwordLanguages = map[string]string{
	"english":   "en",
	"spanish":   "es",
	"french":    "fr",
	"russian":   "ru",
	"swedish":   "sv",
	"norwegian": "nb",
	"hungarian": "hu",
}

// Analyze transforms raw text into terms using the default pipeline
//
// Example:
//
//	terms := Analyze("The Quick Brown Fox Jumps!")
//	// Returns: ["the", "quick", "brown", "fox", "jump"]
func Analyze(text string) []string {
	return AnalyzeWithConfig(text, DefaultAnalyzerConfig())
}

// AnalyzeWithConfig transforms text using a custom configuration
func AnalyzeWithConfig(text string, config AnalyzerConfig) []string {
	if config.EnableStopwords {
		if code, ok := stopwordLanguages[config.language()]; ok {
			text = stopwords.CleanString(text, code, false)
		}
	}

	tokens := tokenize(text)
	tokens = lowercaseFilter(tokens)
	tokens = lengthFilter(tokens, config.MinTokenLength)

	if config.EnableStemming {
		tokens = stemmerFilter(tokens, config.language())
	}

	return tokens
}

func (c AnalyzerConfig) language() string {
	if c.Language == "" {
		return "english"
	}
	return c.Language
}

// tokenize splits text into individual words
//
// Any character that is neither a letter nor a digit is a delimiter:
//
//	"hello-world"      → ["hello", "world"]
//	"user@email.com"   → ["user", "email", "com"]
//	"café"             → ["café"]
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func lowercaseFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = strings.ToLower(token)
	}
	return r
}

// lengthFilter removes tokens shorter than minLength characters (not bytes)
func lengthFilter(tokens []string, minLength int) []string {
	if minLength <= 1 {
		return tokens
	}
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) >= minLength {
			r = append(r, token)
		}
	}
	return r
}

// stemmerFilter reduces words to their root form with the Snowball stemmer
//
//	["running", "quickly", "foxes"] → ["run", "quick", "fox"]
//
// A language snowball does not know leaves the tokens untouched.
func stemmerFilter(tokens []string, language string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		stemmed, err := snowball.Stem(token, language, false)
		if err != nil {
			return tokens
		}
		r[i] = stemmed
	}
	return r
}
