package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/noseyparker/noseyparker/pkg/store"
	"github.com/spf13/cobra"
)

var (
	summarizeDatastore string
	summarizeFormat    string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print per-rule match/finding counts from a datastore",
	Long: "Read an existing datastore and print the RuleSummary table " +
		"(match and finding counts per rule) without re-scanning anything.",
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeDatastore, "datastore", "noseyparker.ds", "Path to datastore directory or file")
	summarizeCmd.Flags().StringVar(&summarizeFormat, "format", "human", "Output format: human, json")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	storePath := summarizeDatastore
	if info, err := os.Stat(storePath); err == nil && info.IsDir() {
		storePath = filepath.Join(storePath, "datastore.db")
	}

	s, err := store.New(store.Config{Path: storePath})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	summary, err := s.Summary()
	if err != nil {
		return fmt.Errorf("summarizing datastore: %w", err)
	}

	switch summarizeFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	case "human":
		return outputSummarizeHuman(cmd, summary)
	default:
		return fmt.Errorf("unknown output format: %s", summarizeFormat)
	}
}

func outputSummarizeHuman(cmd *cobra.Command, summary []store.RuleSummary) error {
	out := cmd.OutOrStdout()
	if len(summary) == 0 {
		fmt.Fprintln(out, "No matches found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tMATCHES\tFINDINGS")
	totalMatches, totalFindings := 0, 0
	for _, rs := range summary {
		fmt.Fprintf(w, "%s\t%d\t%d\n", rs.RuleName, rs.MatchCount, rs.FindingCount)
		totalMatches += rs.MatchCount
		totalFindings += rs.FindingCount
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%d\n", totalMatches, totalFindings)
	return w.Flush()
}
