// Package console implements a chat Adapter over a local terminal, used by
// `agenda chat` to talk to the assistant without a chat platform.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/zulandar/agenda/internal/chat"
)

const prompt = "> "

// Opts configures the console adapter.
type Opts struct {
	In  io.Reader
	Out io.Writer
	// From is the address the local user speaks as. It is also what the
	// auth gate sees as the phone number.
	From string
	Name string
	// Now stamps inbound messages. Defaults to time.Now.
	Now func() time.Time
}

// Adapter reads one message per line from In and prints replies to Out.
// When In is a terminal it is put in raw mode and lines are edited with
// golang.org/x/term.
type Adapter struct {
	in   io.Reader
	out  io.Writer
	from string
	name string
	now  func() time.Time

	mu       sync.Mutex
	term     *term.Terminal
	restore  func()
	inbound  chan chat.InboundMessage
	done     chan struct{}
	seq      int
	sent     int
	closed   bool
	started  bool
	quoteIDs map[int]string
}

var _ chat.Adapter = (*Adapter)(nil)

// New creates a console Adapter.
func New(opts Opts) *Adapter {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.From == "" {
		opts.From = "console"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Adapter{
		in:       opts.In,
		out:      opts.Out,
		from:     opts.From,
		name:     opts.Name,
		now:      opts.Now,
		inbound:  make(chan chat.InboundMessage, 16),
		done:     make(chan struct{}),
		quoteIDs: make(map[int]string),
	}
}

// Connect switches an interactive stdin to raw mode.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("console: adapter already closed")
	}
	f, ok := a.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return fmt.Errorf("console: raw mode: %w", err)
	}
	a.restore = func() { term.Restore(int(f.Fd()), state) }
	a.term = term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, a.out}, prompt)
	a.out = a.term
	return nil
}

// Listen starts reading lines. The channel closes on EOF or when ctx is
// cancelled. After Close it closes once the pending read returns.
//
// A line of the form "^N text" is sent as a reply to the N-th bot message
// printed in this session, which lets quick actions be tried locally.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.InboundMessage, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, fmt.Errorf("console: adapter closed")
	}
	if a.started {
		a.mu.Unlock()
		return nil, fmt.Errorf("console: already listening")
	}
	a.started = true
	a.mu.Unlock()

	go a.read(ctx)
	return a.inbound, nil
}

func (a *Adapter) read(ctx context.Context) {
	defer close(a.inbound)
	next := a.lineReader()
	for {
		line, err := next()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		msg := a.message(line)
		select {
		case a.inbound <- msg:
		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) lineReader() func() (string, error) {
	a.mu.Lock()
	t := a.term
	a.mu.Unlock()
	if t != nil {
		return t.ReadLine
	}
	sc := bufio.NewScanner(a.in)
	return func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return sc.Text(), nil
	}
}

func (a *Adapter) message(line string) chat.InboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	msg := chat.InboundMessage{
		Platform:  "console",
		From:      a.from,
		FromName:  a.name,
		Text:      line,
		MessageID: "console-in-" + strconv.Itoa(a.seq),
		Timestamp: a.now(),
	}
	if strings.HasPrefix(line, "^") {
		head, rest, _ := strings.Cut(line[1:], " ")
		if n, err := strconv.Atoi(head); err == nil {
			if id, ok := a.quoteIDs[n]; ok {
				msg.Text = strings.TrimSpace(rest)
				msg.Quoted = &chat.QuotedMessage{MessageID: id}
			}
		}
	}
	return msg
}

// SendMessage prints text, tagged with the number the user can quote.
func (a *Adapter) SendMessage(ctx context.Context, to, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return "", fmt.Errorf("console: adapter closed")
	}
	a.sent++
	id := "console-out-" + strconv.Itoa(a.sent)
	a.quoteIDs[a.sent] = id
	if _, err := fmt.Fprintf(a.out, "[%d] %s\n", a.sent, text); err != nil {
		return "", fmt.Errorf("console: write: %w", err)
	}
	return id, nil
}

// ReactToMessage prints the reaction on its own line.
func (a *Adapter) ReactToMessage(ctx context.Context, to, messageID, emoji string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("console: adapter closed")
	}
	_, err := fmt.Fprintf(a.out, "  %s\n", emoji)
	return err
}

// Close restores the terminal and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.restore != nil {
		a.restore()
	}
	close(a.done)
	if !a.started {
		close(a.inbound)
	}
	return nil
}
