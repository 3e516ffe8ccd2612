package realtime

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// STOMP 1.2 commands used by the timer transport.
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandDisconnect  = "DISCONNECT"
	CommandMessage     = "MESSAGE"
	CommandReceipt     = "RECEIPT"
	CommandError       = "ERROR"
)

var (
	ErrHeartbeat      = errors.New("stomp heart-beat")
	errMissingNull    = errors.New("stomp frame missing NUL terminator")
	errMissingCommand = errors.New("stomp frame missing command")
)

// Frame is a single STOMP frame.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with the given header pairs (key, value, key, value...).
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command, Headers: make(map[string]string, len(headers)/2)}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Header returns the value of key, or "".
func (f *Frame) Header(key string) string {
	return f.Headers[key]
}

// Marshal encodes the frame. Headers are written in sorted order; values are
// escaped except on CONNECT and CONNECTED frames.
func (f *Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := f.Command != CommandConnect && f.Command != CommandConnected

	keys := make([]string, 0, len(f.Headers))
	for key := range f.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := f.Headers[key]
		if escape {
			key, value = escapeHeader(key), escapeHeader(value)
		}
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 && f.Headers["content-length"] == "" {
		buf.WriteString("content-length:")
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// ParseFrame decodes one frame. A payload made only of end-of-line bytes is a
// heart-beat and yields ErrHeartbeat.
func ParseFrame(data []byte) (*Frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return nil, ErrHeartbeat
	}

	headerEnd := bytes.Index(data, []byte("\n\n"))
	sepLen := 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf >= 0 && (headerEnd < 0 || crlf < headerEnd) {
		headerEnd, sepLen = crlf, 4
	}
	if headerEnd < 0 {
		return nil, fmt.Errorf("stomp frame missing header terminator")
	}

	lines := strings.Split(strings.ReplaceAll(string(data[:headerEnd]), "\r\n", "\n"), "\n")
	if lines[0] == "" {
		return nil, errMissingCommand
	}

	frame := &Frame{Command: lines[0], Headers: make(map[string]string, len(lines)-1)}
	unescape := frame.Command != CommandConnect && frame.Command != CommandConnected

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed stomp header %q", line)
		}
		if unescape {
			var err error
			if key, err = unescapeHeader(key); err != nil {
				return nil, err
			}
			if value, err = unescapeHeader(value); err != nil {
				return nil, err
			}
		}
		// the first occurrence of a repeated header wins
		if _, seen := frame.Headers[key]; !seen {
			frame.Headers[key] = value
		}
	}

	body := data[headerEnd+sepLen:]
	if cl := frame.Headers["content-length"]; cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid stomp content-length %q", cl)
		}
		if n >= len(body) || body[n] != 0 {
			return nil, errMissingNull
		}
		body = body[:n]
	} else {
		end := bytes.IndexByte(body, 0)
		if end < 0 {
			return nil, errMissingNull
		}
		body = body[:end]
	}

	frame.Body = append([]byte(nil), body...)
	return frame, nil
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("invalid stomp header escape in %q", s)
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("invalid stomp header escape in %q", s)
		}
	}
	return b.String(), nil
}
