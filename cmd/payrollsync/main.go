package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/payrollsync/internal/payrollsynccli"
)

func main() {
	if err := payrollsynccli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, payrollsynccli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			payrollsynccli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
