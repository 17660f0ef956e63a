package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Queue a directory of CVs for candidate ingestion",
	Long: "ingest reads every PDF and image in a directory, runs each through the upload queue " +
		"(extraction, portrait crop, fit scoring, duplicate check) and prints a summary once the queue settles.",
	RunE:          runIngest,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Directory containing CV files (required)")
	rootCmd.Flags().StringVar(&ingestJobID, "job-id", "", "Job to score candidates against and apply them to")
	rootCmd.Flags().BoolVar(&forceDuplicates, "force-duplicates", false, "Save candidates flagged as duplicates anyway")
	_ = rootCmd.MarkFlagRequired("dir")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
