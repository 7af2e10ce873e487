package commands

import (
	"github.com/spf13/cobra"
	"go.anonvote.io/avote/service"
)

var voterCmd = &cobra.Command{
	Use:   "voter",
	Short: "Manage voter credentials",
}

var voterRegisterCmd = &cobra.Command{
	Use:   "register <electionID> <voterID>",
	Short: "Issue the credential of a voter, sealed with the voter password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		pw, err := getPassword("Please enter the voter password: ")
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			reg, uri, err := node.Commission.RegisterVoter(cmd.Context(), id, args[1], pw)
			if err != nil {
				return err
			}
			infoPrint.Fprintln(Stdout, "voter registered")
			printKV("registration", uri)
			printKV("tokenHash", reg.TokenHash)
			return nil
		})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <electionID> <voterID> <candidateID>",
	Short: "Cast the ballot of a registered voter",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("election", args[0])
		if err != nil {
			return err
		}
		candidate, err := parseID("candidate", args[2])
		if err != nil {
			return err
		}
		pw, err := getPassword("Please enter the voter password: ")
		if err != nil {
			return err
		}
		return withNode(func(node *service.Node) error {
			uri, err := node.Commission.CastBallot(cmd.Context(), id, args[1], pw, candidate)
			if err != nil {
				return err
			}
			infoPrint.Fprintln(Stdout, "ballot published")
			printKV("ballot", uri)
			return nil
		})
	},
}
