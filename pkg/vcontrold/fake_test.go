package vcontrold

import (
	"context"
	"fmt"
	"slices"
	"strconv"
)

const testDevType = "V200KW2 ID=2094 Protokoll:KW"

// fakeTransport plays vcontrold: it greets with the prompt and answers
// every line with reply(line) followed by the next prompt.
type fakeTransport struct {
	reply    func(cmd string) string
	queue    [][]byte
	sent     []string
	closed   int
	failSend string
	// coalesce delivers reply and next prompt in one read.
	coalesce bool
}

func newFakeTransport(reply func(cmd string) string) *fakeTransport {
	return &fakeTransport{
		reply: reply,
		queue: [][]byte{[]byte(Prompt)},
	}
}

func (f *fakeTransport) SendLine(_ context.Context, line string) error {
	if line == f.failSend {
		return fmt.Errorf("%w: broken pipe", ErrIO)
	}
	f.sent = append(f.sent, line)
	answer := f.reply(line) + "\n"
	if f.coalesce {
		f.queue = append(f.queue, []byte(answer+Prompt))
	} else {
		f.queue = append(f.queue, []byte(answer), []byte(Prompt))
	}
	return nil
}

func (f *fakeTransport) Receive(_ context.Context, maxBytes int) ([]byte, error) {
	if len(f.queue) == 0 {
		return nil, fmt.Errorf("%w: read: i/o timeout", ErrConnection)
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	if len(next) > maxBytes {
		next = next[:maxBytes]
	}
	return next, nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

// sentCount returns how often cmd went over the wire.
func (f *fakeTransport) sentCount(cmd string) int {
	n := 0
	for _, s := range f.sent {
		if s == cmd {
			n++
		}
	}
	return n
}

// commandsSent returns the wire traffic without identification requests.
func (f *fakeTransport) commandsSent() []string {
	return slices.DeleteFunc(slices.Clone(f.sent), func(s string) bool { return s == IdentifyCommand })
}

// staticReplies answers from a map and identifies as device 2094.
func staticReplies(replies map[string]string) func(string) string {
	return func(cmd string) string {
		if cmd == IdentifyCommand {
			return testDevType
		}
		if r, ok := replies[cmd]; ok {
			return r
		}
		return "ERR: command unknown"
	}
}

func testCommand(name, unit string, groups ...string) Command {
	return Command{
		Name:        name,
		Description: "Test " + name,
		Unit:        unit,
		Groups:      groups,
		Devices:     []int{2094},
		Status:      StatusEnabled,
	}
}

// numberedCatalog returns n enabled number commands cmd0..cmd{n-1}.
func numberedCatalog(n int) (*MemoryCatalog, map[string]string) {
	cat := NewMemoryCatalog()
	replies := make(map[string]string, n)
	for i := 0; i < n; i++ {
		name := "cmd" + strconv.Itoa(i)
		cat.Add(testCommand(name, "number", "stats"))
		replies[name] = strconv.Itoa(i) + ".5"
	}
	return cat, replies
}
