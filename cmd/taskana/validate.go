package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/pkg/formatting"
)

func newValidateCmd() *cobra.Command {
	var (
		file     string
		baseline string
		absent   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a definition file offline, optionally against an exported baseline",
		Long: "validate runs the full import merge against an in-memory store seeded " +
			"from --baseline and reports what the import would change. Nothing is written. " +
			"Classification rules come from the classifications section of the config.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := classifications.ParseAbsentPolicy(absent)
			if err != nil {
				return err
			}

			batch, err := readDefinitions(file)
			if err != nil {
				return err
			}

			var seed []classifications.Classification
			if baseline != "" {
				if seed, err = readBaseline(baseline); err != nil {
					return err
				}
			}

			cfg, err := config.LoadClassifications()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store := classifications.NewMemoryStore(seed...)
			engine := classifications.NewEngine(rules(cfg))

			var result *classifications.Result
			err = store.RollbackOnly(commandContext(cmd), func(st classifications.Store) error {
				r, err := engine.Merge(commandContext(cmd), st, batch, classifications.ImportOptions{
					Absent: policy,
					DryRun: true,
				})
				result = r
				return err
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "definition file (.json, .yaml, .yml)")
	cmd.Flags().StringVarP(&baseline, "baseline", "b", "", "export file describing the stored classifications")
	cmd.Flags().StringVar(&absent, "absent", string(classifications.AbsentKeep), "policy for baseline classifications missing from the file: keep or invalidate")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readBaseline(path string) ([]classifications.Classification, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	exp, err := formatting.Parse[classifications.Export](content)
	if err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return exp.Classifications, nil
}
