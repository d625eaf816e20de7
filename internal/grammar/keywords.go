package grammar

// keywordList is every reserved word, in display order.
var keywordList = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for",
	"function", "goto", "if", "in", "local", "nil", "not", "or",
	"repeat", "return", "then", "true", "until", "while",
}

// keywordMatchOrder is the ordered-choice order: `elseif` has to precede
// `else` so the choice cannot commit to the shorter prefix.
var keywordMatchOrder = []string{
	"and", "break", "do", "elseif", "else", "end", "false", "for",
	"function", "goto", "if", "in", "local", "nil", "not", "or",
	"repeat", "return", "then", "true", "until", "while",
}

var keywordSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(keywordList))
	for _, kw := range keywordList {
		m[kw] = struct{}{}
	}
	return m
}()

// Keywords returns the reserved words in display order. The slice is a
// copy; callers may reorder it.
func Keywords() []string {
	out := make([]string, len(keywordList))
	copy(out, keywordList)
	return out
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool {
	_, ok := keywordSet[s]
	return ok
}
