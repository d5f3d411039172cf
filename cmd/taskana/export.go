package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BerndBr/taskana/pkg/formatting"
)

func newExportCmd() *cobra.Command {
	var (
		domain string
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classification definitions of a domain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := exportFormat(format, out)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			exp, err := s.sys.Export(commandContext(cmd), domain)
			if err != nil {
				return err
			}

			b, err := formatting.Marshal(exp, f)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain to export; all domains when omitted")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; stdout when omitted")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml; inferred from --out when omitted")

	return cmd
}

// exportFormat resolves the output format from the flag, then the output path.
func exportFormat(flag, out string) (formatting.Format, error) {
	if flag != "" {
		return formatting.ParseFormat(flag)
	}
	if out != "" {
		return formatting.FormatFromPath(out), nil
	}
	return formatting.FormatJSON, nil
}
