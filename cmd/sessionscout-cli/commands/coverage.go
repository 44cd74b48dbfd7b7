package commands

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"sessionscout-backend/internal/api"

	"github.com/spf13/cobra"
)

var (
	coverageSelfUser string
	coverageTargets  []string
)

func init() {
	coverageCmd.Flags().StringVar(&coverageSelfUser, "self-user", "", "handle whose own submissions to check")
	coverageCmd.Flags().StringSliceVar(&coverageTargets, "target-user", nil, "handles whose coverage to check")
	rootCmd.AddCommand(coverageCmd)
}

var coverageCmd = &cobra.Command{
	Use:   "coverage <contest>",
	Short: "Reports how much of a contest is already cached locally.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		if coverageSelfUser != "" {
			query.Set("selfUser", coverageSelfUser)
		}
		if len(coverageTargets) > 0 {
			query.Set("targetUsers", strings.Join(coverageTargets, ","))
		}
		path := fmt.Sprintf("/api/v1/contests/%s/coverage", args[0])
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var res api.CoverageResponse
		err := call(cmd.Context(), http.MethodGet, path, nil, &res)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("tasks cached:           %v (%d)\n", res.HasCachedTasks, res.TasksCount)
		fmt.Printf("own submissions cached: %v (%d)\n", res.HasCachedMySubmissions, res.MySubmissionsCount)
		fmt.Printf("target users cached:    %v (%d users, %d submissions)\n",
			res.HasCachedTopUsers, res.TopUsersCount, res.TopSubmissionsCount)
		if len(res.MissingUsers) > 0 {
			fmt.Printf("missing users:          %s\n", strings.Join(res.MissingUsers, ", "))
		}
	},
}
