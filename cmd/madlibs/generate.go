// cmd/madlibs/generate.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/story"

	"github.com/spf13/cobra"
)

var (
	genTemplate   string
	genPrompt     string
	genAnswers    []string
	genMaxTokens  int
	genJSONOutput bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one story and print it",
	Long: `Generate one story from a stored template or an inline prompt template.

Examples:
  madlibs generate --template bar-joke --answer animal=giraffe
  madlibs generate --prompt "A {animal} walks into a bar." --answer animal=owl --max-tokens 120`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "", "Template slug")
	generateCmd.Flags().StringVarP(&genPrompt, "prompt", "p", "", "Inline prompt template")
	generateCmd.Flags().StringArrayVarP(&genAnswers, "answer", "a", nil, "Answer as key=value (repeatable)")
	generateCmd.Flags().IntVar(&genMaxTokens, "max-tokens", 0, "Token budget for inline prompts (default from config)")
	generateCmd.Flags().BoolVar(&genJSONOutput, "json", false, "Print {story, usage} as JSON")
	generateCmd.MarkFlagsMutuallyExclusive("template", "prompt")
	generateCmd.MarkFlagsOneRequired("template", "prompt")
}

func parseAnswers(pairs []string) (story.Answers, error) {
	answers := make(story.Answers, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid answer %q, want key=value", pair)
		}
		answers[strings.TrimSpace(key)] = value
	}
	return answers, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	answers, err := parseAnswers(genAnswers)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	orch := a.orchestrator(nil)

	var result *story.GenerationResult
	if genTemplate != "" {
		result, err = orch.GenerateForSlug(ctx, genTemplate, answers)
	} else {
		result, err = orch.GenerateStory(ctx, story.Template{}, answers, genPrompt, genMaxTokens)
	}
	if err != nil {
		stdErr := apperrors.Normalize(err)
		return fmt.Errorf("%s: %s", stdErr.Code, stdErr.Message)
	}

	out := cmd.OutOrStdout()
	if genJSONOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"story": result.Text,
			"usage": result.Usage,
		})
	}
	fmt.Fprintln(out, result.Text)
	return nil
}
