package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/shopper"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

type repl struct {
	sess     *shopper.Session
	out      io.Writer
	commands map[string]command
}

func newREPL(sess *shopper.Session, out io.Writer) *repl {
	r := &repl{sess: sess, out: out}
	r.commands = map[string]command{
		"browse": {"browse [text]", r.browse},
		"sort":   {"sort popularity|price-low|price-high|newest|rating|discount", r.sort},
		"filter": {"filter category=a,b brand=c min=0 max=50000 rating=4", r.filter},
		"reset":  {"reset", r.reset},
		"show":   {"show <id>", r.show},
		"recent": {"recent [limit]", r.recent},
		"signup": {"signup <name> <email> <password>", r.signup},
		"login":  {"login <email> <password>", r.login},
		"logout": {"logout", r.logout},
		"whoami": {"whoami", r.whoami},
		"cart":   {"cart", r.cart},
		"add":    {"add <id> <qty> [size] [color]", r.add},
		"qty":    {"qty <id> <qty> [size] [color]", r.qty},
		"remove": {"remove <id> [size] [color]", r.lineOp(r.sess.Cart.RemoveFromCart)},
		"save":   {"save <id> [size] [color]", r.lineOp(r.sess.Cart.SaveForLater)},
		"move":   {"move <id> [size] [color]", r.lineOp(r.sess.Cart.MoveToCart)},
		"unsave": {"unsave <id> [size] [color]", r.lineOp(r.sess.Cart.RemoveSavedItem)},
		"empty":  {"empty", r.empty},
		"help":   {"help", r.help},
	}
	return r
}

// run reads commands until EOF, "quit" or cancellation.
func (r *repl) run(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	r.printf("> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 {
			if fields[0] == "quit" || fields[0] == "exit" {
				return
			}
			r.exec(ctx, fields[0], fields[1:])
		}
		r.printf("> ")
	}
}

func (r *repl) exec(ctx context.Context, name string, args []string) {
	cmd, ok := r.commands[name]
	if !ok {
		r.printf("unknown command %q, try help\n", name)
		return
	}
	if err := cmd.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			r.printf("usage: %s\n", cmd.usage)
			return
		}
		r.printf("error: %v\n", err)
	}
}

func (r *repl) printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

func (r *repl) printProducts(products []domain.Product) {
	if len(products) == 0 {
		r.printf("no products\n")
		return
	}
	for _, p := range products {
		stock := ""
		if !p.InStock {
			stock = " (out of stock)"
		}
		r.printf("%-4s %-28s %-14s ₹%d  ★%.1f%s\n", p.ID, p.Name, p.Brand, p.Price, p.Rating, stock)
	}
}

func (r *repl) browse(ctx context.Context, args []string) error {
	products, err := r.sess.Browser.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.printProducts(products)
	return nil
}

func (r *repl) sort(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	products, err := r.sess.Browser.SetSort(ctx, domain.ParseSortKey(args[0]))
	if err != nil {
		return err
	}
	r.printProducts(products)
	return nil
}

func (r *repl) filter(ctx context.Context, args []string) error {
	c, err := parseCriteria(args)
	if err != nil {
		return err
	}
	products, err := r.sess.Browser.SetCriteria(ctx, c)
	if err != nil {
		return err
	}
	r.printf("%d active filters\n", r.sess.Browser.ActiveFiltersCount())
	r.printProducts(products)
	return nil
}

func (r *repl) reset(ctx context.Context, _ []string) error {
	products, err := r.sess.Browser.Clear(ctx)
	if err != nil {
		return err
	}
	r.printProducts(products)
	return nil
}

func (r *repl) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	p, err := r.sess.ViewProduct(ctx, args[0])
	if err != nil {
		return err
	}
	r.printProducts([]domain.Product{*p})
	if p.Description != "" {
		r.printf("     %s\n", p.Description)
	}
	if len(p.Sizes) > 0 {
		r.printf("     sizes: %s\n", strings.Join(p.Sizes, ", "))
	}
	if len(p.Colors) > 0 {
		r.printf("     colors: %s\n", strings.Join(p.Colors, ", "))
	}
	return nil
}

func (r *repl) recent(ctx context.Context, args []string) error {
	limit := domain.MaxRecentlyViewed
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errUsage
		}
		limit = n
	}
	products, err := r.sess.RecentlyViewed(ctx, limit)
	if err != nil {
		return err
	}
	r.printProducts(products)
	return nil
}

func (r *repl) signup(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	u, err := r.sess.Signup(ctx, domain.Registration{Name: args[0], Email: args[1], Password: args[2]})
	if err != nil {
		return err
	}
	r.printf("welcome, %s\n", u.Name)
	return nil
}

func (r *repl) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	u, err := r.sess.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	r.printf("signed in as %s\n", u.Email)
	return nil
}

func (r *repl) logout(ctx context.Context, _ []string) error {
	if err := r.sess.Logout(ctx); err != nil {
		return err
	}
	r.printf("signed out\n")
	return nil
}

func (r *repl) whoami(context.Context, []string) error {
	u, ok := r.sess.Gate.User()
	if !ok {
		r.printf("guest\n")
		return nil
	}
	r.printf("%s <%s>\n", u.Name, u.Email)
	return nil
}

func (r *repl) cart(context.Context, []string) error {
	s := r.sess.Cart.Summary()
	printLines := func(title string, items []domain.CartLineItem) {
		r.printf("%s:\n", title)
		if len(items) == 0 {
			r.printf("  (empty)\n")
		}
		for _, li := range items {
			r.printf("  %d x %-28s %-6s %-10s ₹%d\n", li.Quantity, li.Product.Name, li.Size, li.Color, li.Subtotal())
		}
	}
	printLines("cart", s.Cart)
	printLines("saved for later", s.SavedForLater)
	r.printf("%d items, total ₹%d\n", s.TotalItems, s.TotalPrice)
	return nil
}

func (r *repl) add(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	k := parseKey(args[0], args[2:])
	p, err := r.sess.ViewProduct(ctx, k.ProductID)
	if err != nil {
		return err
	}
	if err := r.sess.Cart.AddToCart(ctx, *p, k.Size, k.Color, qty); err != nil {
		return err
	}
	return r.cart(ctx, nil)
}

func (r *repl) qty(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	if err := r.sess.Cart.UpdateQuantity(ctx, parseKey(args[0], args[2:]), qty); err != nil {
		return err
	}
	return r.cart(ctx, nil)
}

func (r *repl) lineOp(op func(context.Context, domain.LineKey) error) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) < 1 {
			return errUsage
		}
		if err := op(ctx, parseKey(args[0], args[1:])); err != nil {
			return err
		}
		return r.cart(ctx, nil)
	}
}

func (r *repl) empty(ctx context.Context, _ []string) error {
	if err := r.sess.Cart.ClearCart(ctx); err != nil {
		return err
	}
	return r.cart(ctx, nil)
}

func (r *repl) help(context.Context, []string) error {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		r.printf("  %s\n", r.commands[name].usage)
	}
	r.printf("  quit\n")
	return nil
}

func parseKey(id string, rest []string) domain.LineKey {
	k := domain.LineKey{ProductID: id}
	if len(rest) > 0 {
		k.Size = rest[0]
	}
	if len(rest) > 1 {
		k.Color = strings.Join(rest[1:], " ")
	}
	return k
}

// parseCriteria reads key=value pairs. Unset keys keep their defaults.
func parseCriteria(args []string) (domain.FilterCriteria, error) {
	c := domain.DefaultFilterCriteria()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return c, errUsage
		}
		var err error
		switch key {
		case "category":
			c.Categories = strings.Split(value, ",")
		case "brand":
			c.Brands = strings.Split(value, ",")
		case "min":
			c.PriceRange.Min, err = strconv.ParseInt(value, 10, 64)
		case "max":
			c.PriceRange.Max, err = strconv.ParseInt(value, 10, 64)
		case "rating":
			c.Rating, err = strconv.ParseFloat(value, 64)
		default:
			return c, errUsage
		}
		if err != nil {
			return c, fmt.Errorf("%s: %w", key, err)
		}
	}
	return c, nil
}
