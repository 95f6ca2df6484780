package executor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"problem_solver/internal/common"
)

type Language struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// languageIDs maps language tags to sandbox language identifiers.
var languageIDs = map[string]int{
	"python":     71,
	"javascript": 63,
	"typescript": 74,
	"java":       62,
	"cpp":        54,
	"c":          50,
	"csharp":     51,
	"go":         60,
	"rust":       73,
	"ruby":       72,
	"php":        68,
	"kotlin":     78,
	"swift":      83,
}

// Blocked patterns cover process spawning, dynamic evaluation and shell access.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bos\.(system|popen|exec[lv]p?e?|spawn[lv]p?e?)\s*\(`),
	regexp.MustCompile(`\bsubprocess\b`),
	regexp.MustCompile(`\b__import__\s*\(`),
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`\bchild_process\b`),
	regexp.MustCompile(`\bexecSync\s*\(`),
	regexp.MustCompile(`Runtime\.getRuntime\s*\(\s*\)\s*\.\s*exec`),
	regexp.MustCompile(`\bProcessBuilder\b`),
	regexp.MustCompile(`\b(system|popen|fork|execve|execl|execvp)\s*\(`),
	regexp.MustCompile(`\b(shell_exec|passthru|proc_open)\s*\(`),
	regexp.MustCompile(`"os/exec"`),
	regexp.MustCompile(`\bexec\.Command\s*\(`),
	regexp.MustCompile(`\b(std::)?process::Command\b`),
	regexp.MustCompile(`\bProcess\.Start\s*\(`),
	regexp.MustCompile(`%x\(|\bKernel\.(system|exec|spawn)\b`),
}

func LanguageID(language string) (int, bool) {
	id, ok := languageIDs[strings.ToLower(strings.TrimSpace(language))]
	return id, ok
}

func SupportedLanguages() []Language {
	out := make([]Language, 0, len(languageIDs))
	for name, id := range languageIDs {
		out = append(out, Language{Name: name, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate runs the pre-flight checks; failures wrap common.ErrValidationFailed.
func Validate(code, language string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: code is empty", common.ErrValidationFailed)
	}
	if _, ok := LanguageID(language); !ok {
		return fmt.Errorf("%w: unsupported language %q", common.ErrValidationFailed, language)
	}
	for _, re := range dangerousPatterns {
		if loc := re.FindStringIndex(code); loc != nil {
			return fmt.Errorf("%w: code contains a blocked call %q", common.ErrValidationFailed, code[loc[0]:loc[1]])
		}
	}
	return nil
}
