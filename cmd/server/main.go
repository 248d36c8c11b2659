package main

import (
	"fmt"
	"os"

	_ "taskpanel/docs"
)

// @title           Task Panel API
// @version         1.0
// @description     Task API for users and admins of the task panel.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
