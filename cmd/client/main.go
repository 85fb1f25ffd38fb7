// Command client is a minimal interactive terminal client for a GoBBS
// server. It sends one command per input line and prints the response up to
// and including the terminal OK/ERR line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "server address")
	user := flag.String("user", "", "log in as this user after connecting")
	pass := flag.String("pass", "", "password for -user")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	// Greeting is a single line sent before the first request.
	greeting, err := r.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "read greeting: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(greeting)

	if *user != "" {
		if err := exchange(r, w, "LOGIN "+*user+" "+*pass); err != nil {
			fmt.Fprintf(os.Stderr, "login: %v\n", err)
			os.Exit(1)
		}
	}

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if err := exchange(r, w, line); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return
		}
		if strings.EqualFold(line, "LOGOUT") {
			return
		}
	}
}

// exchange sends one command and prints response lines until the terminal
// OK/ERR line.
func exchange(r *bufio.Reader, w *bufio.Writer, cmd string) error {
	if _, err := w.WriteString(cmd + "\n"); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}
		fmt.Print(line)
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(trimmed, "OK") || strings.HasPrefix(trimmed, "ERR") {
			return nil
		}
	}
}
