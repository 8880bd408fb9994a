package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"

	// Register connector implementations.
	_ "github.com/crimson-sun/lookout/internal/connector/metabase"
	_ "github.com/crimson-sun/lookout/internal/connector/tableau"

	// Register catalog backends.
	_ "github.com/crimson-sun/lookout/internal/catalog/memory"
	_ "github.com/crimson-sun/lookout/internal/catalog/redis"
	_ "github.com/crimson-sun/lookout/internal/catalog/rest"
	_ "github.com/crimson-sun/lookout/internal/catalog/sqlite"
)

func main() {
	if _, err := newParser(&Options{}).Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		var problems *problemsError
		if errors.As(err, &problems) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
