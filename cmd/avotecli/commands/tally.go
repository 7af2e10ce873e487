package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.anonvote.io/avote/service"
	"go.anonvote.io/avote/tally"
)

var showOutcomes bool

func init() {
	tallyCmd.Flags().BoolVar(&showOutcomes, "outcomes", false, "print the verdict of every ballot")
}

var tallyCmd = &cobra.Command{
	Use:   "tally <electionID>",
	Short: "Recount a finished election with the commission password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		pw, err := getPassword("Please enter the commission password: ")
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			report, err := node.Commission.Tally(cmd.Context(), id, pw)
			if err != nil {
				return err
			}
			stats := report.Statistics
			printKV("processed", stats.TotalVotesProcessed)
			printKV("valid", stats.ValidVotes)
			printKV("duplicate", stats.DuplicateVotes)
			printKV("invalid", stats.InvalidVotes)
			if showOutcomes {
				for _, o := range report.Outcomes {
					line := fmt.Sprintf("%s %s", o.URI, o.Kind)
					if o.Reason != "" {
						line += ": " + o.Reason
					}
					if o.Kind == tally.Valid {
						fmt.Fprintln(Stdout, line)
					} else {
						warnPrint.Fprintln(Stdout, line)
					}
				}
			}
			printRanking(report.Ranking)
			return nil
		})
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results <electionID>",
	Short: "Show the counts stored by the last tally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			ranking, err := node.Commission.Results(cmd.Context(), id)
			if err != nil {
				return err
			}
			printRanking(ranking)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <electionID>",
	Short: "Zero the stored counts and voted flags of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			if err := node.Commission.Reset(cmd.Context(), id); err != nil {
				return err
			}
			infoPrint.Fprintf(Stdout, "election %s reset\n", id)
			return nil
		})
	},
}

func printRanking(r *tally.Ranking) {
	for i, res := range r.Results {
		fmt.Fprintf(Stdout, "%d. %s %s\n", i+1, keysPrint.Sprint(res.Name), valuesPrint.Sprint(res.Votes))
	}
	switch {
	case r.Tie:
		warnPrint.Fprintln(Stdout, "tie between the leading candidates")
	case r.Winner != nil:
		infoPrint.Fprintf(Stdout, "winner %s by %d votes\n", r.Winner.Name, r.Margin)
	default:
		warnPrint.Fprintln(Stdout, "no votes counted")
	}
}
