package review

import (
	_ "embed"
	"strings"
)

//go:embed prompts/default_prompt.txt
var defaultPromptTemplate string

//go:embed prompts/default_prompt_ahc.txt
var defaultPromptTemplateAhc string

// IsAhcContest reports whether a contest id names a heuristic contest,
// which gets its own prompt variant.
func IsAhcContest(contest string) bool {
	return strings.HasPrefix(strings.ToLower(contest), "ahc")
}

// BuildPrompt assembles the review prompt: the (possibly customized)
// template with `$target_user` substituted, an optional expected
// output example, and the payload itself.
func BuildPrompt(req Request, settings Settings) string {
	isAhc := IsAhcContest(req.Contest)

	template := strings.TrimSpace(settings.PromptTemplate)
	defaultTemplate := defaultPromptTemplate
	example := settings.ExpectedExample
	if isAhc {
		template = strings.TrimSpace(settings.PromptTemplateAhc)
		defaultTemplate = defaultPromptTemplateAhc
		example = settings.ExpectedExampleAhc
	}
	if template == "" {
		template = strings.TrimSpace(defaultTemplate)
	}

	head := strings.ReplaceAll(template, "$target_user", req.TargetUser)

	if settings.ExpectedExampleEnabled {
		example = strings.TrimSpace(example)
		if example != "" {
			example = strings.ReplaceAll(example, "$target_user", req.TargetUser)
			head = head + "\n\n---\n# 期待出力例\n" + example
		}
	}

	return head + "\n\n今回添削対象のデータ：\n" + req.PayloadJSON
}
