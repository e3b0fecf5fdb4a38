package pipeline

import (
	"path"
	"strings"
)

//nolint:gochecknoglobals // read-only lookup table
var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".cpp":  "cpp",
	".c":    "c",
}

//nolint:gochecknoglobals // read-only lookup table
var testFrameworks = map[string]string{
	"python":     "pytest",
	"javascript": "jest",
	"typescript": "jest",
}

// LanguageFor maps a file extension to a language name. Unknown extensions map to "text".
func LanguageFor(filePath string) string {
	if lang, ok := languages[strings.ToLower(path.Ext(filePath))]; ok {
		return lang
	}
	return "text"
}

// TestFramework returns the test framework generated tests use for lang, or "".
func TestFramework(lang string) string {
	return testFrameworks[lang]
}

// TestFilePath returns where generated tests for filePath are written:
// tests/test_<stem>.py for python, __tests__/<stem>.test.<ext> for js and ts.
func TestFilePath(filePath, lang string) string {
	base := path.Base(filePath)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if lang == "python" {
		return "tests/test_" + stem + ".py"
	}
	return "__tests__/" + stem + ".test" + ext
}

func commentPrefix(lang string) string {
	if lang == "python" {
		return "#"
	}
	return "//"
}

// wantsTests reports whether the tester stage generates tests for filePath.
func wantsTests(filePath string) bool {
	if strings.Contains(strings.ToLower(filePath), "test") {
		return false
	}
	return TestFramework(LanguageFor(filePath)) != ""
}
