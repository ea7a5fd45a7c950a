package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/pace"
)

// setCalendar replaces the session-day calendar and the term divides.
// The days file lists one YYYY-MM-DD per line; blank lines and lines
// starting with '#' are skipped.
func (cli *commandLine) setCalendar(daysPath, fallEnd, springEnd string) error {
	f, err := os.Open(daysPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var days []time.Time
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		day, err := time.Parse("2006-01-02", line)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", daysPath, lineNo)
		}
		days = append(days, day)
	}
	if err = scanner.Err(); err != nil {
		return err
	}

	if err = cli.paceSvc.SetSessionDays(days); err != nil {
		return err
	}
	fmt.Printf("set %d session days\n", len(days))

	for _, divide := range []struct {
		name, value string
	}{
		{pace.DateEndFall, fallEnd},
		{pace.DateEndSpring, springEnd},
	} {
		if divide.value == "" {
			continue
		}
		day, err := time.Parse("2006-01-02", divide.value)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", divide.name)
		}
		if err = cli.paceSvc.SetDate(divide.name, day); err != nil {
			return err
		}
		fmt.Printf("set %s to %s\n", divide.name, day.Format("2006-01-02"))
	}
	return nil
}
