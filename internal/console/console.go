// Package console is the interactive terminal client over the link service.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/darkodi/link-shortener/internal/model"
	"github.com/darkodi/link-shortener/internal/service"
)

const menu = `Choose an action:
1. Create a short link
2. Follow a short link
3. Edit a short link
4. Delete a short link
5. Show my links
6. Switch user
7. Exit`

// Console reads commands line by line and prints results
type Console struct {
	svc  *service.LinkService
	in   *bufio.Scanner
	out  io.Writer
	user model.User
}

// New creates a console reading from in and writing to out
func New(svc *service.LinkService, in io.Reader, out io.Writer) *Console {
	return &Console{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Run loops until the user exits, the input ends or ctx is cancelled
func (c *Console) Run(ctx context.Context) error {
	if !c.login(ctx) {
		return c.in.Err()
	}

	for ctx.Err() == nil {
		c.println(menu)
		choice, ok := c.readLine()
		if !ok {
			return c.in.Err()
		}

		switch choice {
		case "1":
			c.create(ctx)
		case "2":
			c.follow(ctx)
		case "3":
			c.edit(ctx)
		case "4":
			c.delete(ctx)
		case "5":
			c.list(ctx)
		case "6":
			if !c.login(ctx) {
				return c.in.Err()
			}
		case "7":
			c.println("Goodbye!")
			return nil
		default:
			c.println("Unknown choice, try again.")
		}
	}
	return ctx.Err()
}

func (c *Console) login(ctx context.Context) bool {
	for {
		name, ok := c.prompt("Enter your name (letters only):")
		if !ok {
			return false
		}

		user, created, err := c.svc.Authenticate(ctx, name)
		if errors.Is(err, service.ErrInvalidName) {
			c.println("Name must contain letters only.")
			continue
		}
		if err != nil {
			c.printf("Login failed: %v\n", err)
			continue
		}

		c.user = user
		if created {
			c.printf("New user created. Your UUID: %s\n", user.ID)
		} else {
			c.printf("Welcome back, %s! Your UUID: %s\n", user.Name, user.ID)
		}
		return true
	}
}

func (c *Console) create(ctx context.Context) {
	dest, ok := c.prompt("Enter the destination URL:")
	if !ok {
		return
	}
	durText, ok := c.prompt("Enter the lifetime (e.g. 1d 2h 30m):")
	if !ok {
		return
	}
	limit, ok := c.promptLimit("Enter the visit limit (empty for unlimited):")
	if !ok {
		return
	}

	resp, err := c.svc.CreateLink(ctx, c.user.ID, dest, durText, limit)
	if err != nil {
		c.printError(err)
		return
	}

	for _, w := range resp.Warnings {
		c.printf("Skipped %s\n", w)
	}
	c.printf("Short link: %s (expires %s)\n", resp.ShortURL, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
}

func (c *Console) follow(ctx context.Context) {
	link, ok := c.prompt("Enter the short link:")
	if !ok {
		return
	}

	dest, err := c.svc.Resolve(ctx, link)
	if err != nil {
		c.printError(err)
		return
	}
	c.printf("Destination: %s\n", dest)
}

func (c *Console) edit(ctx context.Context) {
	link, ok := c.prompt("Enter the short link to edit:")
	if !ok {
		return
	}

	var req model.EditLinkRequest
	if dest, ok := c.prompt("New destination URL (empty to keep):"); !ok {
		return
	} else if dest != "" {
		req.Destination = &dest
	}
	if durText, ok := c.prompt("New lifetime from now (empty to keep):"); !ok {
		return
	} else if durText != "" {
		req.Duration = &durText
	}
	limit, ok := c.promptLimit("New visit limit (empty to keep):")
	if !ok {
		return
	}
	req.VisitLimit = limit

	if req.IsEmpty() {
		c.println("Nothing changed.")
		return
	}

	updated, err := c.svc.EditLink(ctx, c.user.ID, link, req)
	if err != nil {
		c.printError(err)
		return
	}
	c.println("Link updated.")
	c.printLink(updated)
}

func (c *Console) delete(ctx context.Context) {
	link, ok := c.prompt("Enter the short link to delete:")
	if !ok {
		return
	}

	if c.svc.DeleteLink(ctx, c.user.ID, link) {
		c.println("Link deleted.")
	} else {
		c.println("Link does not exist or belongs to another user.")
	}
}

func (c *Console) list(ctx context.Context) {
	links, err := c.svc.ListLinks(ctx, c.user.ID)
	if err != nil {
		c.printError(err)
		return
	}
	if len(links) == 0 {
		c.println("You have no links.")
		return
	}

	c.println("Your links:")
	for _, l := range links {
		c.printLink(l)
	}
}

// ============ HELPERS ============

func (c *Console) printLink(l model.Link) {
	r := c.svc.ToResponse(l)
	visits := "unlimited"
	if r.RemainingVisits != nil {
		visits = strconv.Itoa(*r.RemainingVisits)
	}
	c.printf("%s - %s (expires in %s, visits left %s, visited %d)\n",
		r.ShortURL, r.Destination, r.ExpiresIn, visits, r.VisitCount)
}

func (c *Console) printError(err error) {
	switch {
	case errors.Is(err, service.ErrUnreachableURL):
		c.println("The URL is unreachable or does not exist.")
	case errors.Is(err, service.ErrInvalidDuration):
		c.println("Invalid lifetime, use units d, h and m, e.g. 1d 2h 30m.")
	case errors.Is(err, service.ErrAlreadyExpired):
		c.println("The new lifetime would expire the link immediately.")
	case errors.Is(err, service.ErrNotFound):
		c.println("Link is invalid or has expired.")
	case errors.Is(err, service.ErrNotOwned):
		c.println("You are not the owner of this link.")
	default:
		c.printf("Error: %v\n", err)
	}
}

func (c *Console) promptLimit(question string) (*int, bool) {
	for {
		text, ok := c.prompt(question)
		if !ok {
			return nil, false
		}
		if text == "" {
			return nil, true
		}
		n, err := strconv.Atoi(text)
		if err == nil && n > 0 {
			return &n, true
		}
		c.println("Enter a positive whole number.")
	}
}

func (c *Console) prompt(question string) (string, bool) {
	c.println(question)
	return c.readLine()
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
