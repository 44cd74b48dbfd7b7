package commands

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sessionscout-backend/internal/api"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var bundlesShowJson bool

func init() {
	bundlesShowCmd.Flags().BoolVar(&bundlesShowJson, "json", false, "print the raw export payload instead of a summary")
	bundlesCmd.AddCommand(bundlesListCmd)
	bundlesCmd.AddCommand(bundlesShowCmd)
	bundlesCmd.AddCommand(bundlesDeleteCmd)
	rootCmd.AddCommand(bundlesCmd)
}

var bundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "Inspects the export bundles the daemon has materialized.",
}

var bundlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all stored export bundles.",
	Run: func(cmd *cobra.Command, args []string) {
		var res api.ListBundlesResponse
		err := call(cmd.Context(), http.MethodGet, "/api/v1/bundles", nil, &res)
		if err != nil {
			log.Fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Cache Key", "Contest", "Self", "Top Users", "Tasks", "Subs", "Reviews", "Size", "Saved At"})
		for _, b := range res.Bundles {
			t.AppendRow(table.Row{
				b.CacheKey,
				b.Contest,
				b.SelfUser,
				strings.Join(b.TopUserNames, ", "),
				b.TasksCount,
				b.MySubmissionsCount + b.TopSubmissionsCount,
				b.ReviewCount,
				fmt.Sprintf("%.1f KiB", float64(b.Size)/1024),
				time.Unix(b.SavedAt, 0).Format(time.RFC3339),
			})
		}
		t.Render()
	},
}

var bundlesShowCmd = &cobra.Command{
	Use:   "show <cache-key>",
	Short: "Shows one bundle, its payload size and any attached reviews.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var res api.BundleResponse
		err := call(cmd.Context(), http.MethodGet,
			fmt.Sprintf("/api/v1/bundles/%s", url.PathEscape(args[0])), nil, &res)
		if err != nil {
			log.Fatal(err)
		}

		if bundlesShowJson {
			fmt.Println(res.Json)
			return
		}

		b := res.Bundle
		fmt.Printf("contest:  %s\n", b.Contest)
		fmt.Printf("self:     %s\n", b.SelfUser)
		fmt.Printf("targets:  %s\n", strings.Join(b.TopUserNames, ", "))
		fmt.Printf("tasks:    %d\n", b.TasksCount)
		fmt.Printf("subs:     %d own / %d target\n", b.MySubmissionsCount, b.TopSubmissionsCount)
		fmt.Printf("saved:    %s\n", time.Unix(b.SavedAt, 0).Format(time.RFC3339))

		for _, review := range res.Reviews {
			fmt.Printf("\nreview %s (%s %s)\n%s\n", review.ID, review.Provider, review.Model, review.Markdown)
		}
	},
}

var bundlesDeleteCmd = &cobra.Command{
	Use:   "delete <cache-key>",
	Short: "Deletes a bundle and its reviews.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := call(cmd.Context(), http.MethodDelete,
			fmt.Sprintf("/api/v1/bundles/%s", url.PathEscape(args[0])), nil, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("bundle deleted")
	},
}
