package main

import (
	"fmt"
	"os"

	"github.com/foliolab/folio-backend/adminservice"
)

func main() {
	if err := adminservice.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "folio-service:", err)
		os.Exit(1)
	}
}
