package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/bizdesk/internal/passwd"
)

func main() {
	if err := passwd.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
