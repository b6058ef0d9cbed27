package ingestion

import "strings"

var extensionToLanguage = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".py":   "python",
	".pyi":  "python",
	".java": "java",
	".go":   "go",
	".cpp":  "cpp",
	".c":    "c",
}

// DetectLanguage maps a file extension (with dot) to a language tag.
func DetectLanguage(ext string) (string, bool) {
	lang, ok := extensionToLanguage[strings.ToLower(ext)]
	return lang, ok
}
