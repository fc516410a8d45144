package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/high-horse/afis-search/internal/ranking"
)

func newSearchCommand(cctx *commandContext) *cobra.Command {
	var topN int
	var minScore float64

	cmd := &cobra.Command{
		Use:   "search <probe>",
		Short: "Search the gallery for templates similar to a probe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, mgr, err := cctx.components()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("top") {
				topN = cfg.Search.TopN
			}
			if !cmd.Flags().Changed("min-score") {
				minScore = cfg.Search.ScoreMinimo
			}

			raw, err := mgr.SearchOne(cmd.Context(), reg, args[0])
			if err != nil {
				return err
			}

			ranked := ranking.Rank(raw, minScore, topN, reg.Resolve)
			if len(ranked) == 0 {
				fmt.Println("no candidates")
				return nil
			}

			rows := make([][]string, 0, len(ranked))
			for _, r := range ranked {
				rows = append(rows, []string{
					strconv.Itoa(r.Rank),
					strconv.Itoa(r.ID),
					r.File,
					fmt.Sprintf("%.4f", r.Score),
				})
			}
			fmt.Println(renderTable(
				[]string{"Rank", "ID", "Arquivo", "Score"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&topN, "top", 5, "Number of candidates to return")
	cmd.Flags().Float64Var(&minScore, "min-score", 0.001, "Minimum score to keep a candidate")
	return cmd
}
