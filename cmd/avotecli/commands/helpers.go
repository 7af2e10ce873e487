package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"
)

func getPassword(prompt string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(Stdout, prompt)
	// if this is a real terminal (not a test case mocked stdin), use the
	// standard term.ReadPassword() function
	if term.IsTerminal(int(Stdin.Fd())) {
		p, err := term.ReadPassword(int(Stdin.Fd()))
		fmt.Fprintln(Stdout, "")
		if err != nil {
			return "", err
		}
		return string(p), nil
	}
	reader := bufio.NewReader(Stdin)
	p, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(p, "\r\n"), nil
}

func parseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q: %w", kind, s, err)
	}
	return id, nil
}

func printKV(key string, value any) {
	fmt.Fprintf(Stdout, "%s: %s\n", keysPrint.Sprint(key), valuesPrint.Sprint(value))
}
