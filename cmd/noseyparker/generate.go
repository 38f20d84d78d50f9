package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var generateOutDir string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate shell completions, manpages, or a rule-file JSON schema",
}

var generateShellCompletionsCmd = &cobra.Command{
	Use:       "shell-completions {bash|zsh|fish|powershell}",
	Short:     "Generate a shell completion script",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE:      runGenerateShellCompletions,
}

var generateManpagesCmd = &cobra.Command{
	Use:   "manpages",
	Short: "Generate manpages for every command into --out-dir",
	RunE:  runGenerateManpages,
}

var generateJSONSchemaCmd = &cobra.Command{
	Use:   "json-schema",
	Short: "Print a JSON Schema for the rule-file YAML format",
	RunE:  runGenerateJSONSchema,
}

func init() {
	generateCmd.AddCommand(generateShellCompletionsCmd)
	generateCmd.AddCommand(generateManpagesCmd)
	generateCmd.AddCommand(generateJSONSchemaCmd)

	generateManpagesCmd.Flags().StringVar(&generateOutDir, "out-dir", ".", "Directory to write manpages into")
}

func runGenerateShellCompletions(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	default:
		return fmt.Errorf("unsupported shell: %s", args[0])
	}
}

func runGenerateManpages(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(generateOutDir, 0755); err != nil {
		return fmt.Errorf("creating manpage output directory: %w", err)
	}

	header := &doc.GenManHeader{
		Title:   "NOSEYPARKER",
		Section: "1",
	}
	if err := doc.GenManTree(rootCmd, header, generateOutDir); err != nil {
		return fmt.Errorf("generating manpages: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote manpages to %s\n", generateOutDir)
	return nil
}

// ruleFileJSONSchema is a hand-written JSON Schema describing the rule-file
// YAML format parsed by pkg/rule/yaml.go, field names matching its `yaml:"..."`
// tags. Hand-written rather than reflected off the Go struct (pkg/rule's
// yamlRule/yamlRuleset types are unexported and the YAML format, not the Go
// struct shape, is the thing consumers actually need a schema for).
const ruleFileJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Nosey Parker rule file",
  "type": "object",
  "properties": {
    "rules": {
      "type": "array",
      "items": { "$ref": "#/definitions/rule" }
    },
    "rulesets": {
      "type": "array",
      "items": { "$ref": "#/definitions/ruleset" }
    }
  },
  "definitions": {
    "rule": {
      "type": "object",
      "required": ["id", "name", "pattern"],
      "properties": {
        "id": { "type": "string", "description": "e.g. np.aws.1" },
        "name": { "type": "string" },
        "pattern": { "type": "string", "description": "RE2-compatible regex with at least one capture group" },
        "description": { "type": "string" },
        "examples": { "type": "array", "items": { "type": "string" } },
        "negative_examples": { "type": "array", "items": { "type": "string" } },
        "references": { "type": "array", "items": { "type": "string" } },
        "categories": { "type": "array", "items": { "type": "string" } },
        "keywords": { "type": "array", "items": { "type": "string" } }
      }
    },
    "ruleset": {
      "type": "object",
      "required": ["id", "name", "include_rule_ids"],
      "properties": {
        "id": { "type": "string" },
        "name": { "type": "string" },
        "description": { "type": "string" },
        "include_rule_ids": { "type": "array", "items": { "type": "string" } }
      }
    }
  }
}
`

func runGenerateJSONSchema(cmd *cobra.Command, args []string) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), ruleFileJSONSchema)
	return err
}
