package main

import (
	"os"

	"sessionscout-backend/cmd/sessionscout-cli/commands"
	"sessionscout-backend/lib/serviceutil"
)

func main() {
	baseUrl, ok := os.LookupEnv("SESSIONSCOUT_BASE_URL")
	if !ok {
		baseUrl = "http://localhost:8491"
	}
	commands.BaseUrl = baseUrl

	commands.ExecuteContext(serviceutil.SignalContext())
}
