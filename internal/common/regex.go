package common

import "regexp"

// CompilePattern compiles a user-authored pattern, case-insensitive unless
// caseSensitive is set.
func CompilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// MatchPattern compiles pattern and matches it against text.
// Returns an error if the pattern is invalid.
func MatchPattern(pattern, text string, caseSensitive bool) (bool, error) {
	re, err := CompilePattern(pattern, caseSensitive)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
