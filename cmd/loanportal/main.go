// Command loanportal runs the loan portal web front end.
//
// @title        Loan Portal
// @version      1.0
// @description  JSON endpoints of the loan portal web front end.
// @BasePath     /
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
