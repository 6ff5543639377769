package coconutrisk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"coconut-risk/internal/models"
)

// Controls is what the console drives
type Controls interface {
	Refresh(ctx context.Context) (models.Assessment, error)
	SubmitCoordinates(ctx context.Context, latText, lonText string) (models.Assessment, bool)
	SetManualMode(manual bool) models.Assessment
	ManualMode() bool
	SetTreeOverride(ctx context.Context, count *int) (models.Assessment, error)
	SetExposure(ctx context.Context, minutes int) (models.Assessment, error)
	Current() models.Assessment
}

const consoleHelp = `Commands:
  manual on|off          toggle manual coordinates
  coords <lat> <lon>     submit manual coordinates
  trees <count>|auto     override the nearby tree count
  exposure <minutes>     minutes under palms per day
  refresh                re-run the risk check
  show                   print the current assessment
  history                print the midday wind trend
  fact                   print the current coconut fact
  help                   print this help
  quit                   leave
`

// Console is a line-oriented front end for the risk controls
type Console struct {
	controls Controls
	facts    *FactRotator
	in       io.Reader
	mu       sync.Mutex
	out      io.Writer
}

func NewConsole(controls Controls, facts *FactRotator, in io.Reader, out io.Writer) *Console {
	return &Console{
		controls: controls,
		facts:    facts,
		in:       in,
		out:      out,
	}
}

// Printf writes to the console output; safe to call from the fact rotator
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run reads commands until quit, end of input or context cancellation
func (c *Console) Run(ctx context.Context) error {
	c.Printf("🥥 Coconut risk console. Type 'help' for commands.\n")

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := c.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

func (c *Console) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "quit", "exit":
		return true

	case "help":
		c.Printf("%s", consoleHelp)

	case "manual":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			c.Printf("usage: manual on|off\n")
			return false
		}
		c.controls.SetManualMode(args[0] == "on")
		c.Printf("Manual coordinates %s\n", args[0])

	case "coords":
		if !c.controls.ManualMode() {
			c.Printf("Turn on manual mode first: manual on\n")
			return false
		}
		if len(args) != 2 {
			return false
		}
		// Invalid submissions are ignored without comment
		if a, ok := c.controls.SubmitCoordinates(ctx, args[0], args[1]); ok {
			c.Printf("%s", RenderText(a))
		}

	case "trees":
		if len(args) != 1 {
			c.Printf("usage: trees <count>|auto\n")
			return false
		}
		var override *int
		if args[0] != "auto" {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				c.Printf("usage: trees <count>|auto\n")
				return false
			}
			override = &n
		}
		a, err := c.controls.SetTreeOverride(ctx, override)
		if err != nil {
			c.Printf("%v\n", err)
			return false
		}
		c.Printf("%s", RenderText(a))

	case "exposure":
		if len(args) != 1 {
			c.Printf("usage: exposure <minutes>\n")
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			c.Printf("usage: exposure <minutes>\n")
			return false
		}
		a, err := c.controls.SetExposure(ctx, n)
		if err != nil {
			c.Printf("%v\n", err)
			return false
		}
		c.Printf("%s", RenderText(a))

	case "refresh":
		a, err := c.controls.Refresh(ctx)
		if err != nil {
			c.Printf("Location unavailable; keeping the last result.\n")
		}
		c.Printf("%s", RenderText(a))

	case "show":
		c.Printf("%s", RenderText(c.controls.Current()))

	case "history":
		c.Printf("%s", RenderHistory(c.controls.Current().History))

	case "fact":
		if c.facts != nil {
			c.Printf("🥥 %s\n", c.facts.Current())
		}

	default:
		c.Printf("Unknown command %q. Type 'help' for commands.\n", cmd)
	}
	return false
}
