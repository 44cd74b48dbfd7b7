package commands

import (
	"fmt"
	"log"
	"net/http"

	"sessionscout-backend/internal/api"

	"github.com/spf13/cobra"
)

var cancelContest string

func init() {
	cancelCmd.Flags().StringVar(&cancelContest, "contest", "", "only cancel if this contest is the one running")
	rootCmd.AddCommand(cancelCmd)
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancels the collection run currently in progress, if any.",
	Run: func(cmd *cobra.Command, args []string) {
		var res api.CancelRunResponse
		err := call(cmd.Context(), http.MethodPost, "/api/v1/runs/cancel",
			api.CancelRunRequest{Contest: cancelContest}, &res)
		if err != nil {
			log.Fatal(err)
		}

		if res.Cancelled {
			fmt.Println("run cancelled")
		} else {
			fmt.Println("no matching run was active")
		}
	},
}
