package commands

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"sessionscout-backend/internal/api"

	"github.com/spf13/cobra"
)

var (
	runTopN       int
	runMaxPages   int
	runMode       string
	runSelfUser   string
	runWithReview bool
	runTargetMode string
	runTargetK    int
	runTargetN    int
	runTargets    []string
	runWatch      bool
)

func init() {
	runCmd.Flags().IntVar(&runTopN, "top-n", 3, "number of comparison users (legacy shortcut for --target-n)")
	runCmd.Flags().IntVar(&runMaxPages, "max-pages", 3, "listing pages to walk per user")
	runCmd.Flags().StringVar(&runMode, "mode", "all", "submission filter: all, ac or latest-ac")
	runCmd.Flags().StringVar(&runSelfUser, "self-user", "", "treat this handle's submissions as your own")
	runCmd.Flags().BoolVar(&runWithReview, "with-review", false, "generate an AI review after collecting")
	runCmd.Flags().StringVar(&runTargetMode, "target-mode", "", "target selection: absolute, relative or manual")
	runCmd.Flags().IntVar(&runTargetK, "target-k", 0, "start rank (absolute) or distance above you (relative)")
	runCmd.Flags().IntVar(&runTargetN, "target-n", 0, "number of users to select")
	runCmd.Flags().StringSliceVar(&runTargets, "target-user", nil, "explicit handles for manual targeting")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "poll progress until the run is terminal")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <contest>",
	Short: "Starts a full collection run for the given contest.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contest := args[0]

		req := api.StartRunRequest{
			Contest:    contest,
			TopN:       runTopN,
			MaxPages:   runMaxPages,
			Mode:       runMode,
			SelfUser:   runSelfUser,
			WithReview: runWithReview,
		}
		if runTargetMode != "" {
			req.Targets = &api.TargetConfigBody{
				Mode:  runTargetMode,
				K:     runTargetK,
				N:     runTargetN,
				Users: runTargets,
			}
		}

		err := call(cmd.Context(), http.MethodPost, "/api/v1/runs", req, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("run started for %s\n", contest)

		if runWatch {
			watchProgress(cmd, contest)
		}
	},
}

func watchProgress(cmd *cobra.Command, contest string) {
	lastText := ""
	for {
		select {
		case <-cmd.Context().Done():
			return
		case <-time.After(time.Millisecond * 500):
		}

		var progress api.ProgressResponse
		err := call(cmd.Context(), http.MethodGet,
			fmt.Sprintf("/api/v1/contests/%s/progress", contest), nil, &progress)
		if err != nil {
			// a cancelled run clears its progress row
			if lastText != "" {
				fmt.Println("run is no longer tracked")
				return
			}
			continue
		}
		if progress.Text != lastText {
			lastText = progress.Text
			fmt.Printf("[%5.1f%%] %s\n", progress.Progress, progress.Text)
		}
		if progress.Done {
			if progress.IsError {
				log.Fatal(progress.Text)
			}
			return
		}
	}
}
