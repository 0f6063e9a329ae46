//go:build !linux

package main

import (
	"bufio"
	"io"
	"os"
	"strings"
)

func readInteractiveLine(_ string) (string, error) {
	r := bufio.NewReader(os.Stdin)
	s, err := r.ReadString('\n')
	if err != nil {
		if err != io.EOF || s == "" {
			return "", err
		}
	}
	return strings.TrimRight(s, "\r\n"), nil
}
