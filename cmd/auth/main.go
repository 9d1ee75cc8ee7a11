// Command auth runs the lectern authentication service.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/lectern/internal/auth/app"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(app.BuildVersion)
		return
	}

	application, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("lectern-auth: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("lectern-auth: %v", err)
	}
}
