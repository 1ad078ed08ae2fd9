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
			fmt.Fprintln(os.Stderr, "usage: payrollsync setup --admin-password <password> [--admin-username admin] [--force]")
			fmt.Fprintln(os.Stderr, "       payrollsync run --site <file> --travel <file> --overtime <file> [--out payroll.json]")
			fmt.Fprintln(os.Stderr, "       payrollsync payload|submit <payroll.json>")
			fmt.Fprintln(os.Stderr, "       payrollsync serve")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
