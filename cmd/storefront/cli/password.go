package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/auth"
)

// HashPasswordOptions configures the hash-password command.
type HashPasswordOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// HashPasswordCommand reads a password from the first line of stdin and prints
// an ADMIN_PASSWORD_HASH line.
func HashPasswordCommand(opts HashPasswordOptions) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	line, err := bufio.NewReader(opts.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		_, _ = fmt.Fprintf(opts.Stderr, "hash-password: read stdin: %v\n", err)
		return 1
	}
	hashed, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "hash-password: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "ADMIN_PASSWORD_HASH='%s'\n", hashed)
	return 0
}
