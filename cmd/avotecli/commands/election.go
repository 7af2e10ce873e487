package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/service"
	"go.anonvote.io/avote/types"
)

var electionCmd = &cobra.Command{
	Use:   "election",
	Short: "Create, inspect and move elections through their lifecycle",
}

var electionCreateCmd = &cobra.Command{
	Use:   "create <name> <candidate> [candidate...]",
	Short: "Create an election and its commission key, sealed with a password",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := getPassword("Please enter the commission password: ")
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			e, cands, err := node.Commission.CreateElection(cmd.Context(), args[0], pw, args[1:])
			if err != nil {
				return err
			}
			infoPrint.Fprintln(Stdout, "election created")
			printElection(e, cands)
			return nil
		})
	},
}

var electionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all elections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(node *service.Node) error {
			elections, err := node.Commission.Elections(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range elections {
				fmt.Fprintf(Stdout, "%s %s %s\n", keysPrint.Sprint(e.ID), e.Name, valuesPrint.Sprint(e.Status))
			}
			return nil
		})
	},
}

var electionShowCmd = &cobra.Command{
	Use:   "show <electionID>",
	Short: "Show an election and its candidates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			e, err := node.Commission.Election(cmd.Context(), id)
			if err != nil {
				return err
			}
			cands, err := node.Commission.Candidates(cmd.Context(), id)
			if err != nil {
				return err
			}
			printElection(e, cands)
			return nil
		})
	},
}

var electionStatusCmd = &cobra.Command{
	Use:   "status <electionID> <NotYetStarted|Active|Finished>",
	Short: "Move an election forward in its lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		status, err := types.ParseElectionStatus(args[1])
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			if err := node.Commission.SetStatus(cmd.Context(), id, status); err != nil {
				return err
			}
			infoPrint.Fprintf(Stdout, "election %s is now %s\n", id, status)
			return nil
		})
	},
}

func printElection(e *election.Election, cands []*election.Candidate) {
	printKV("id", e.ID)
	printKV("name", e.Name)
	printKV("status", e.Status)
	for _, c := range cands {
		printKV("candidate", fmt.Sprintf("%s %s", c.ID, c.Name))
	}
}
