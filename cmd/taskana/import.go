package main

import (
	"github.com/spf13/cobra"

	"github.com/BerndBr/taskana/internal/classifications"
)

func newImportCmd() *cobra.Command {
	var (
		file   string
		absent string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a classification definition file into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := classifications.ParseAbsentPolicy(absent)
			if err != nil {
				return err
			}

			batch, err := readDefinitions(file)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.sys.Import(commandContext(cmd), batch, classifications.ImportOptions{
				Absent: policy,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "definition file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&absent, "absent", string(classifications.AbsentKeep), "policy for stored classifications missing from the file: keep or invalidate")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge inside a rolled-back transaction and report the result")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
