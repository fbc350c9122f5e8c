package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	in         = bufio.NewReader(os.Stdin)
	out        io.Writer = os.Stdout
	redirected bool
)

// SetIO redirects prompts, mostly for tests
func SetIO(r io.Reader, w io.Writer) {
	in = bufio.NewReader(r)
	out = w
	redirected = true
}

func readLine() (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptString prompts user for a string input
func PromptString(label string) (string, error) {
	fmt.Fprint(out, label)
	return readLine()
}

// PromptPassword reads a password without echo when stdin is a terminal,
// and a plain line otherwise so it can be piped in.
func PromptPassword(label string) (string, error) {
	fmt.Fprint(out, label)

	fd := int(os.Stdin.Fd())
	if redirected || !term.IsTerminal(fd) {
		return readLine()
	}

	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// PromptConfirm prompts user for yes/no confirmation
func PromptConfirm(label string) (bool, error) {
	fmt.Fprint(out, label+" (y/n) ")
	answer, err := readLine()
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// PromptRequired repeats PromptString until the answer is non-empty
func PromptRequired(label string) (string, error) {
	for {
		s, err := PromptString(label)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		fmt.Fprintln(out, "A value is required.")
	}
}
