package normaliser

import (
	"strings"
	"unicode/utf8"
)

// minTokenLength is the exclusive lower bound on kept token length.
// Tokens of one or two characters carry no retrieval signal.
const minTokenLength = 2

// Tokenize converts text into cleaned search tokens: lowercase, punctuation
// stripped, split on whitespace, with English stopwords and tokens of length
// <= 2 dropped. Deterministic; English only (multi-language stopword support
// is a documented non-goal).
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	stripped := strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, lowered)

	fields := strings.Fields(stripped)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) <= minTokenLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// isPunct matches the ASCII punctuation set removed before tokenisation.
func isPunct(r rune) bool {
	return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}

// stopwords is the fixed English stopword set (NLTK-derived).
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range stopwordList {
		stopwords[w] = struct{}{}
	}
}

var stopwordList = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"youre", "youve", "youll", "youd", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "shes", "her",
	"hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
	"thatll", "these", "those", "am", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did",
	"doing", "a", "an", "the", "and", "but", "if", "or", "because", "as",
	"until", "while", "of", "at", "by", "for", "with", "about", "against",
	"between", "into", "through", "during", "before", "after", "above",
	"below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
	"under", "again", "further", "then", "once", "here", "there", "when",
	"where", "why", "how", "all", "any", "both", "each", "few", "more",
	"most", "other", "some", "such", "no", "nor", "not", "only", "own",
	"same", "so", "than", "too", "very", "s", "t", "can", "will", "just",
	"don", "dont", "should", "shouldve", "now", "d", "ll", "m", "o", "re",
	"ve", "y", "ain", "aren", "arent", "couldn", "couldnt", "didn",
	"didnt", "doesn", "doesnt", "hadn", "hadnt", "hasn", "hasnt", "haven",
	"havent", "isn", "isnt", "ma", "mightn", "mightnt", "mustn", "mustnt",
	"needn", "neednt", "shan", "shant", "shouldn", "shouldnt", "wasn",
	"wasnt", "weren", "werent", "won", "wont", "wouldn", "wouldnt",
}
