package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptString asks for a value and returns def on empty input.
func promptString(reader *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}

// promptConfirm asks a yes/no question. Anything but y/yes is a no.
func promptConfirm(reader *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
