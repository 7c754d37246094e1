// Package execution drives a remote code-execution job from submission to
// terminal result over the judge service's submit/poll contract.
package execution

// Judge-side language identifiers, mapped externally to toolchain versions.
const (
	LanguageJavaScript = 63
	LanguagePython     = 71
	LanguageJava       = 62
	LanguageCPP        = 54
)

var languageNames = map[int]string{
	LanguageJavaScript: "JavaScript (Node.js)",
	LanguagePython:     "Python (3.8.1)",
	LanguageJava:       "Java (OpenJDK)",
	LanguageCPP:        "C++ (GCC)",
}

// LanguageName resolves a judge language id to its display name.
func LanguageName(id int) (string, bool) {
	name, ok := languageNames[id]
	return name, ok
}

// SupportedLanguages returns the ids accepted by the dispatcher.
func SupportedLanguages() []int {
	return []int{LanguageJavaScript, LanguagePython, LanguageJava, LanguageCPP}
}
