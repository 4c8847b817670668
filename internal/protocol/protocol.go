// Package protocol implements the newline-delimited text framing shared by
// clients, the proxy, and the backend server.
//
// A request is a single line of the form:
//
//	VERB KEY [PAYLOAD...]
//
// Verbs are case-sensitive. For PUT, every token after the key belongs to
// the payload and is rejoined with single spaces. A response is always
// exactly one newline-terminated line.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel is the exact backend reply that signals an absent key. The
// dispatcher compares against it to decide whether a fetched value may be
// cached.
const Sentinel = "Key does not exist!"

// Recognized verbs. Anything else routes to the unknown-command path.
const (
	VerbPut  = "PUT"
	VerbGet  = "GET"
	VerbDump = "DUMP"
)

var (
	// ErrClientDisconnected reports that the peer closed the connection
	// before a full newline-terminated command arrived.
	ErrClientDisconnected = errors.New("client disconnected before sending a command")

	// ErrLineTooLong reports a command line exceeding the configured limit.
	ErrLineTooLong = errors.New("command line exceeds size limit")
)

// ReadCommand reads one newline-terminated line from r and returns it
// without the terminator. A trailing \r is stripped as well. maxSize bounds
// the accepted line length in bytes, terminator excluded.
func ReadCommand(r io.Reader, maxSize int) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, int64(maxSize)+1))

	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) > maxSize {
				return "", ErrLineTooLong
			}
			return "", ErrClientDisconnected
		}
		return "", fmt.Errorf("read command: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// ParseCommand splits a command line into verb, key and payload. Missing
// positions come back as empty strings; the caller decides whether that is
// legal for the verb at hand. Runs of whitespace between tokens collapse,
// and the payload tokens are rejoined with single spaces.
func ParseCommand(line string) (verb, key, payload string) {
	tokens := strings.Fields(line)
	if len(tokens) > 0 {
		verb = tokens[0]
	}
	if len(tokens) > 1 {
		key = tokens[1]
	}
	if len(tokens) > 2 {
		payload = strings.Join(tokens[2:], " ")
	}
	return verb, key, payload
}

// WriteLine writes s to w followed by a single newline.
func WriteLine(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s+"\n"); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
