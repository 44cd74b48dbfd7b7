package commands

import (
	"fmt"
	"log"
	"net/http"

	"sessionscout-backend/internal/api"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(progressCmd)
}

var progressCmd = &cobra.Command{
	Use:   "progress <contest>",
	Short: "Shows the latest progress report for a contest.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var res api.ProgressResponse
		err := call(cmd.Context(), http.MethodGet,
			fmt.Sprintf("/api/v1/contests/%s/progress", args[0]), nil, &res)
		if err != nil {
			log.Fatal(err)
		}

		state := "running"
		if res.Done {
			state = "done"
			if res.IsError {
				state = "failed"
			}
		}
		fmt.Printf("%s: %s (%.1f%%, %s)\n", res.Contest, res.Text, res.Progress, state)
	},
}
