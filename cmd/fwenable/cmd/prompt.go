package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// PromptFunc asks the user for a secret.
type PromptFunc func(prompt string) (string, error)

// terminalPrompt reads a password from stdin without echo. When stdin is not
// a terminal it reads a single line instead.
func terminalPrompt(stdin *os.File, stderr io.Writer) PromptFunc {
	return func(prompt string) (string, error) {
		fmt.Fprint(stderr, prompt)
		fd := int(stdin.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(stderr)
			if err != nil {
				return "", errors.Wrap(err, "read password")
			}
			return string(b), nil
		}
		return readPasswordLine(stdin)
	}
}

// readPasswordLine reads one line from r. Reaching EOF before any input is
// an error.
func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err == io.EOF && line == "" {
		return "", errors.New("read password: no input")
	}
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
