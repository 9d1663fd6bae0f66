// Command beach is the minimal interactive shell over umbrella: it
// reads one line at a time, tokenizes it on whitespace, and dispatches
// to the mounted-session command surface. It does not implement
// pipes, redirection, `&&`/`||` chaining, line editing, or history.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aljce/umbrella/shell"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if os.Getenv("BEACH_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	session := shell.New(log)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprint(os.Stdout, "beach> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		result, err := session.Dispatch(args)
		if err != nil {
			if errors.Is(err, shell.ErrExit) {
				break
			}
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if result.Warning != "" {
			fmt.Fprintln(os.Stderr, result.Warning)
		}
		if result.Output != "" {
			fmt.Fprintln(os.Stdout, result.Output)
		}
	}

	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("reading stdin")
		os.Exit(1)
	}
}
