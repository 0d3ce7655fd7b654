package main

import (
	"fmt"

	"github.com/kozihq/kozi/core/roster"
)

// checkRoster loads the roster file once, outside any cache, so an
// instructor can sanity-check an export before students hit it.
func (cli *commandLine) checkRoster(path string) error {
	r, err := roster.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d enrolled email(s)\n", path, r.Len())
	return nil
}
