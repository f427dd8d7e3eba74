package main

import (
	"fmt"
	"os"

	"github.com/settleup/settleup-api/internal/cli"
)

// @title                       SettleUp API
// @version                     1.0
// @description                 Client relationships, payment schedules and notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
