package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetChoice asks until the answer is one of choices (case-insensitive) or
// empty, in which case def is returned. Read errors end the loop.
func GetChoice(reader *bufio.Reader, prompt string, choices []string, def string, w io.Writer) (string, error) {
	label := fmt.Sprintf("%s [%s]", prompt, strings.Join(choices, "/"))
	if def != "" {
		label += " (" + def + ")"
	}
	for {
		v, err := GetSimpleText(reader, label, w)
		if err != nil {
			return "", err
		}
		if v == "" {
			return def, nil
		}
		for _, c := range choices {
			if strings.EqualFold(v, c) {
				return c, nil
			}
		}
		if _, err := fmt.Fprintf(w, "Please choose one of: %s\n", strings.Join(choices, ", ")); err != nil {
			return "", err
		}
	}
}

// GetPassword reads a password from the terminal without echo.
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
