package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIndexCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the gallery index offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, mgr, err := cctx.components()
			if err != nil {
				return err
			}

			report, err := mgr.Create(cmd.Context(), reg)
			if err != nil {
				return err
			}

			fmt.Printf("indexed %d/%d templates in %s\n", report.Succeeded, report.Total, report.Elapsed)
			if !report.Saved {
				fmt.Println("no template added, index not saved")
			}

			if len(report.Failures) > 0 {
				rows := make([][]string, 0, len(report.Failures))
				for _, f := range report.Failures {
					rows = append(rows, []string{strconv.Itoa(f.ID), f.File, f.Err})
				}
				fmt.Println(renderTable(
					[]string{"ID", "Arquivo", "Erro"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}
}
