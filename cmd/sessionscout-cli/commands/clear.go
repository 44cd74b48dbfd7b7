package commands

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear <contest>",
	Short: "Drops all collected records for a contest so the next run starts fresh.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := call(cmd.Context(), http.MethodDelete,
			fmt.Sprintf("/api/v1/contests/%s", args[0]), nil, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("contest data cleared")
	},
}
