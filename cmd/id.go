package cmd

import (
	"fmt"

	"storesync/core/globalid"

	"github.com/spf13/cobra"
)

// idCmd groups the composite id helpers.
var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Encode and decode composite record ids",
}

var idEncodeCmd = &cobra.Command{
	Use:   "encode <id> [parent...]",
	Short: "Encode an id and its parent ids, innermost parent first",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), globalid.Encode(args[0], args[1:]...))
	},
}

var idDecodeCmd = &cobra.Command{
	Use:   "decode <global-id>",
	Short: "Decode a global id into its id and parent ids, one per line",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, pids := globalid.Decode(args[0])
		fmt.Fprintln(cmd.OutOrStdout(), id)
		for _, pid := range pids {
			fmt.Fprintln(cmd.OutOrStdout(), pid)
		}
	},
}

func init() {
	idCmd.AddCommand(idEncodeCmd, idDecodeCmd)
	RootCmd.AddCommand(idCmd)
}
