package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultAttempts is how many answers Confirm and Choice accept before failing.
const DefaultAttempts = 3

// IO writes styled output and reads answers for console commands.
type IO struct {
	in       *bufio.Reader
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	attempts int
	styles   styles
}

type styles struct {
	info, success, warning, error, title, prompt, muted, header lipgloss.Style
}

// Option configures an IO.
type Option func(*IO)

// WithInput sets where answers are read from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(o *IO) {
		if r != nil {
			o.in = bufio.NewReader(r)
		}
	}
}

// WithOutput sets where output is written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *IO) {
		if w != nil {
			o.out = w
		}
	}
}

// WithErrorOutput sets where Error writes. Defaults to os.Stderr.
func WithErrorOutput(w io.Writer) Option {
	return func(o *IO) {
		if w != nil {
			o.errOut = w
		}
	}
}

// WithNoColor disables styling.
func WithNoColor(noColor bool) Option {
	return func(o *IO) {
		o.noColor = noColor
	}
}

// WithAttempts sets how many invalid answers are tolerated.
func WithAttempts(n int) Option {
	return func(o *IO) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// New creates an IO bound to the process streams unless overridden.
func New(opts ...Option) *IO {
	o := &IO{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		errOut:   os.Stderr,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.styles = newStyles(o.out, o.noColor)
	return o
}

func newStyles(w io.Writer, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			info: plain, success: plain, warning: plain, error: plain,
			title: plain, prompt: plain, muted: plain,
			header: plain.Padding(0, 1),
		}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		info:    r.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		success: r.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		error:   r.NewStyle().Foreground(lipgloss.Color("#E53935")).Bold(true),
		title:   r.NewStyle().Bold(true).Underline(true),
		prompt:  r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		header:  r.NewStyle().Bold(true).Padding(0, 1),
	}
}

// Out returns the output writer.
func (o *IO) Out() io.Writer { return o.out }

// Line writes an unstyled line.
func (o *IO) Line(format string, args ...any) {
	fmt.Fprintln(o.out, sprintf(format, args))
}

// Newline writes an empty line.
func (o *IO) Newline() { fmt.Fprintln(o.out) }

// Info writes an informational line.
func (o *IO) Info(format string, args ...any) {
	fmt.Fprintln(o.out, o.styles.info.Render(sprintf(format, args)))
}

// Success writes a success line.
func (o *IO) Success(format string, args ...any) {
	fmt.Fprintln(o.out, o.styles.success.Render(sprintf(format, args)))
}

// Warning writes a warning line.
func (o *IO) Warning(format string, args ...any) {
	fmt.Fprintln(o.out, o.styles.warning.Render(sprintf(format, args)))
}

// Error writes an error line to the error output.
func (o *IO) Error(format string, args ...any) {
	fmt.Fprintln(o.errOut, o.styles.error.Render(sprintf(format, args)))
}

// Title writes s title-cased followed by a blank line.
func (o *IO) Title(s string) {
	fmt.Fprintln(o.out, o.styles.title.Render(cases.Title(language.Und).String(s)))
	fmt.Fprintln(o.out)
}

// Table renders rows under headers. Short rows are padded.
func (o *IO) Table(headers []string, rows [][]string) {
	t := table.New().
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.styles.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if o.noColor {
		t = t.Border(lipgloss.NormalBorder())
	} else {
		t = t.Border(lipgloss.RoundedBorder()).BorderStyle(o.styles.muted)
	}
	for _, row := range rows {
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		}
		t = t.Row(row...)
	}
	fmt.Fprintln(o.out, t.Render())
}

// Ask prompts for a line of input. An empty answer yields def.
func (o *IO) Ask(question, def string) (string, error) {
	prompt := question
	if def != "" {
		prompt += " " + o.styles.muted.Render("["+def+"]")
	}
	answer, err := o.prompt(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Secret prompts for a value such as a password. Input is not masked.
func (o *IO) Secret(question string) (string, error) {
	return o.prompt(question)
}

// Confirm asks a yes/no question. Accepts y, yes, n and no in any case;
// an empty answer yields def.
func (o *IO) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for range o.attempts {
		answer, err := o.prompt(question + " " + o.styles.muted.Render(hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		o.Warning("Please answer yes or no.")
	}
	return false, ErrInvalidAnswer
}

// Choice asks the user to pick one of options, by index or by value.
// An empty answer yields def when def is one of the options.
func (o *IO) Choice(question string, options []string, def string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	prompt := question
	if def != "" {
		prompt += " " + o.styles.muted.Render("["+def+"]")
	}
	for range o.attempts {
		fmt.Fprintln(o.out, o.styles.prompt.Render(prompt))
		for i, opt := range options {
			fmt.Fprintf(o.out, "  [%d] %s\n", i, opt)
		}
		answer, err := o.prompt("")
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = def
		}
		if choice, ok := pick(options, answer); ok {
			return choice, nil
		}
		o.Warning("Value %q is invalid.", answer)
	}
	return "", ErrInvalidChoice
}

func pick(options []string, answer string) (string, bool) {
	if answer == "" {
		return "", false
	}
	if i, err := strconv.Atoi(answer); err == nil && i >= 0 && i < len(options) {
		return options[i], true
	}
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt, true
		}
	}
	return "", false
}

// prompt writes question and reads one trimmed line. End of input counts
// as an empty answer.
func (o *IO) prompt(question string) (string, error) {
	if question != "" {
		fmt.Fprint(o.out, o.styles.prompt.Render(question)+" ")
	}
	fmt.Fprint(o.out, "> ")
	line, err := o.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cli: read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
