package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// loadCourses reads course files and adds them to the catalog.
func (cli *commandLine) loadCourses(paths []string) error {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		crs, err := cli.courseSvc.CreateFromFile(f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "loading %s", path)
		}
		fmt.Printf("loaded %q (%s) with %d chapters\n", crs.Title, crs.Sym, len(crs.Chapters))
	}
	return nil
}
