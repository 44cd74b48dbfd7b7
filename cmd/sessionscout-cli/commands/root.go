package commands

import (
	"context"
	"fmt"
	"os"

	"sessionscout-backend/internal/api"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var BaseUrl string

var client *resty.Client

var rootCmd = &cobra.Command{
	Use:   "sessionscout-cli",
	Short: "sessionscout-cli drives the sessionscout collection daemon.",
}

func ExecuteContext(ctx context.Context) {
	client = resty.New().SetBaseURL(BaseUrl)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// call posts body to path and decodes into out, turning non-2xx
// responses into errors carrying the server's message.
func call(ctx context.Context, method string, path string, body any, out any) error {
	req := client.R().SetContext(ctx).SetError(&api.ErrorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if res.IsError() {
		if apiErr, ok := res.Error().(*api.ErrorResponse); ok && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", res.Status(), apiErr.Error)
		}
		return fmt.Errorf("%s: %s", res.Status(), res.String())
	}
	return nil
}
