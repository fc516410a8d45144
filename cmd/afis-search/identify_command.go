package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/high-horse/afis-search/internal/ranking"
)

func newIdentifyCommand(cctx *commandContext) *cobra.Command {
	var threshold, margin float64
	var maxCandidates int

	cmd := &cobra.Command{
		Use:   "identify <probe>",
		Short: "Search and classify the outcome against the decision policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, mgr, err := cctx.components()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Decision.LimiarMatch
			}
			if !cmd.Flags().Changed("margin") {
				margin = cfg.Decision.LimiarAmbiguidade
			}
			if !cmd.Flags().Changed("max-candidates") {
				maxCandidates = cfg.Decision.MaxCandidatos
			}

			raw, err := mgr.SearchOne(cmd.Context(), reg, args[0])
			if err != nil {
				return err
			}

			ranked := ranking.Rank(raw, 0, maxCandidates, reg.Resolve)
			outcome := ranking.Decide(ranked, threshold, margin)

			fmt.Printf("%s: %s\n", outcome.Status, outcome.Message)
			if len(outcome.Candidates) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(outcome.Candidates))
			for _, r := range outcome.Candidates {
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

	cmd.Flags().Float64Var(&threshold, "threshold", 0.80, "Minimum top score to accept a match")
	cmd.Flags().Float64Var(&margin, "margin", 0.10, "Minimum gap between top-1 and top-2")
	cmd.Flags().IntVar(&maxCandidates, "max-candidates", 10, "Candidates considered by the policy")
	return cmd
}
