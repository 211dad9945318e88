package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/portal/internal/client"
	"github.com/MrSnakeDoc/portal/internal/domain"
)

// synced reports the outcome of a mirrored mutation. An unreachable API is
// not a failure: the change stays in the local cache as pending.
func (c *cli) synced(err error, format string, args ...any) error {
	switch {
	case err == nil:
		done(c.out, format, args...)
		return nil
	case client.Rejected(err):
		return err
	default:
		notice(c.errOut, "API unreachable, change kept locally as pending (%v)", err)
		return nil
	}
}

// loaded warns when a container is not showing live server state.
func (c *cli) loaded(name string, src client.Source, diverged bool) {
	if src != client.SourceAPI {
		notice(c.errOut, "API unreachable, showing %s copy of %s", src, name)
	}
	if diverged {
		notice(c.errOut, "local %s copy was out of date and has been replaced with server state", name)
	}
}

func (c *cli) readLine(prompt string) (string, error) {
	fmt.Fprint(c.errOut, prompt)
	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) newServicesCmd() *cobra.Command {
	var query, category string

	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"ls"},
		Short:   "List dashboard services with status and health",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := c.client.API.Services(cmd.Context(), query, category)
			if err != nil {
				return err
			}

			rows := make([][]cell, 0, len(page.Services))
			for _, s := range page.Services {
				star := ""
				if c.client.Favorites.Has(s.ID) {
					star = "★"
				}
				var flags []string
				if s.Custom {
					flags = append(flags, "custom")
				}
				if s.AdminOnly {
					flags = append(flags, "admin-only")
				}
				health := s.Health
				if health == "" {
					health = domain.HealthChecking
				}
				rows = append(rows, []cell{
					styled(star, warnStyle),
					plain(s.ID),
					plain(s.Name),
					plain(strconv.Itoa(s.Port) + s.Path),
					styled(string(s.Status), statusStyle(s.Status)),
					styled(string(health), healthStyle(health)),
					styled(strings.Join(flags, ","), mutedStyle),
				})
			}
			writeTable(c.out, []string{"", "ID", "NAME", "PORT", "STATUS", "HEALTH", "FLAGS"}, rows)

			sum := page.Summary
			fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("%d online · %d maintenance · %d inactive · %d total",
				sum.Online, sum.Maintenance, sum.Inactive, sum.Total)))
			if page.Admin {
				fmt.Fprintln(c.out, mutedStyle.Render("admin view"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter on name, description or port")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show this category id")
	return cmd
}

func (c *cli) newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and their services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := c.client.API.Categories(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]cell, 0, len(cats))
			for _, cat := range cats {
				rows = append(rows, []cell{
					plain(cat.ID),
					plain(cat.Label),
					plain(strconv.Itoa(len(cat.Services))),
					styled(strings.Join(cat.Services, ","), mutedStyle),
				})
			}
			writeTable(c.out, []string{"ID", "LABEL", "COUNT", "SERVICES"}, rows)
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Manage status overrides",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List status overrides",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st := c.client.Status
				st.Load(cmd.Context())
				c.loaded("status overrides", st.Source(), st.Diverged())

				overrides := st.Value()
				ids := make([]string, 0, len(overrides))
				for id := range overrides {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				rows := make([][]cell, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []cell{plain(id), styled(string(overrides[id]), statusStyle(overrides[id]))})
				}
				writeTable(c.out, []string{"ID", "STATUS"}, rows)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <id> <online|maintenance|inactive>",
			Short: "Override the status shown for a service",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				status := domain.Status(strings.ToLower(args[1]))
				if !status.Valid() {
					return fmt.Errorf("status must be online, maintenance, or inactive")
				}
				c.client.Status.Load(cmd.Context())
				err := c.client.Status.Set(cmd.Context(), args[0], status)
				return c.synced(err, "%s is now %s", args[0], status)
			},
		},
		&cobra.Command{
			Use:   "clear <id>",
			Short: "Remove the override of a service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c.client.Status.Load(cmd.Context())
				err := c.client.Status.Clear(cmd.Context(), args[0])
				return c.synced(err, "override of %s cleared", args[0])
			},
		},
		&cobra.Command{
			Use:   "clear-all",
			Short: "Remove every status override",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c.client.Status.Load(cmd.Context())
				err := c.client.Status.ClearAll(cmd.Context())
				return c.synced(err, "all overrides cleared")
			},
		},
	)
	return cmd
}

// newSetCmd builds the ls/toggle commands of an id set. set is resolved
// lazily because the client only exists once flags are parsed.
func (c *cli) newSetCmd(name, short string, set func() *client.IDSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List the ids in the set",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s := set()
				s.Load(cmd.Context())
				c.loaded(name, s.Source(), s.Diverged())
				for _, id := range s.Value() {
					fmt.Fprintln(c.out, id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Add or remove a service id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := set()
				s.Load(cmd.Context())
				err := s.Toggle(cmd.Context(), args[0])
				state := "removed from"
				if s.Has(args[0]) {
					state = "added to"
				}
				return c.synced(err, "%s %s %s", args[0], state, name)
			},
		},
	)
	return cmd
}

// customFlags binds the custom service fields. Only flags set on the
// command line end up in the payload.
type customFlags struct {
	name, description, path, status, icon, category string
	port                                            int
}

func (f *customFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "display name")
	fl.IntVar(&f.port, "port", 0, "local port (1-65535)")
	fl.StringVar(&f.path, "path", "", "reverse-proxy path, e.g. /grafana")
	fl.StringVar(&f.description, "description", "", "short description")
	fl.StringVar(&f.status, "status", "", "default status (online, maintenance, inactive)")
	fl.StringVar(&f.icon, "icon", "", "icon name")
	fl.StringVar(&f.category, "category", "", "category id")
}

func (f *customFlags) fields(cmd *cobra.Command) (client.CustomFields, error) {
	var out client.CustomFields
	changed := cmd.Flags().Changed

	if changed("name") {
		out.Name = &f.name
	}
	if changed("port") {
		if f.port < 1 || f.port > 65535 {
			return out, fmt.Errorf("port must be an integer between 1 and 65535")
		}
		out.Port = &f.port
	}
	if changed("path") {
		out.Path = &f.path
	}
	if changed("description") {
		out.Description = &f.description
	}
	if changed("status") {
		st := domain.Status(strings.ToLower(f.status))
		if !st.Valid() {
			return out, fmt.Errorf("status must be online, maintenance, or inactive")
		}
		out.DefaultStatus = &st
	}
	if changed("icon") {
		out.IconName = &f.icon
	}
	if changed("category") {
		out.Category = &f.category
	}
	return out, nil
}

func (c *cli) newCustomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Manage custom services",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List custom services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs := c.client.Custom
			cs.Load(cmd.Context())
			c.loaded("custom services", cs.Source(), cs.Diverged())

			services := cs.Value()
			rows := make([][]cell, 0, len(services))
			for _, s := range services {
				rows = append(rows, []cell{
					plain(s.ID),
					plain(s.Name),
					plain(strconv.Itoa(s.Port) + s.Path),
					plain(s.Category),
					styled(string(s.DefaultStatus), statusStyle(s.DefaultStatus)),
					styled(s.CreatedAt.Local().Format(time.DateTime), mutedStyle),
				})
			}
			writeTable(c.out, []string{"ID", "NAME", "PORT", "CATEGORY", "DEFAULT", "CREATED"}, rows)
			if cs.Pending() {
				notice(c.errOut, "local changes not yet on the server")
			}
			return nil
		},
	}

	var addFlags customFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a custom service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := addFlags.fields(cmd)
			if err != nil {
				return err
			}
			c.client.Custom.Load(cmd.Context())
			id, err := c.client.Custom.Add(cmd.Context(), f)
			return c.synced(err, "created %s", id)
		},
	}
	addFlags.bind(add)
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("port")

	var updateFlags customFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a custom service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := updateFlags.fields(cmd)
			if err != nil {
				return err
			}
			c.client.Custom.Load(cmd.Context())
			err = c.client.Custom.Update(cmd.Context(), args[0], f)
			return c.synced(err, "updated %s", args[0])
		},
	}
	updateFlags.bind(update)

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a custom service",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.client.Custom.Load(cmd.Context())
			err := c.client.Custom.Remove(cmd.Context(), args[0])
			return c.synced(err, "deleted %s", args[0])
		},
	}

	cmd.AddCommand(ls, add, update, rm)
	return cmd
}

func (c *cli) newHealthCmd() *cobra.Command {
	var recheck bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the live reachability board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := c.client.Health
			if recheck {
				err := h.Recheck(cmd.Context())
				switch {
				case err == nil:
					done(c.out, "full health check queued")
				case client.IsStatus(err, http.StatusTooManyRequests):
					notice(c.errOut, "a health check is already queued")
				default:
					return err
				}
			}

			h.Load(cmd.Context())
			c.loaded("health", h.Source(), false)

			snap := h.Value()
			ports := make([]int, 0, len(snap.Statuses))
			for p := range snap.Statuses {
				ports = append(ports, p)
			}
			sort.Ints(ports)

			rows := make([][]cell, 0, len(ports))
			for _, p := range ports {
				st := snap.Statuses[p]
				rows = append(rows, []cell{plain(strconv.Itoa(p)), styled(string(st), healthStyle(st))})
			}
			writeTable(c.out, []string{"PORT", "HEALTH"}, rows)

			switch {
			case snap.LastChecked == nil:
				fmt.Fprintln(c.out, mutedStyle.Render("no check completed yet"))
			default:
				fmt.Fprintln(c.out, mutedStyle.Render("last checked "+snap.LastChecked.Local().Format(time.DateTime)))
			}
			if snap.IsChecking {
				fmt.Fprintln(c.out, mutedStyle.Render("a check is running"))
			}
			if snap.NetworkAvailable != nil && !*snap.NetworkAvailable {
				notice(c.out, "no service answered: the network path looks down")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&recheck, "recheck", false, "queue a full check first")
	return cmd
}

// parseTarget reads "port" or "port:/path".
func parseTarget(s string) (domain.Target, error) {
	portStr, path, _ := strings.Cut(s, ":")
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return domain.Target{}, fmt.Errorf("invalid target %q: port must be an integer between 1 and 65535", s)
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return domain.Target{Port: port, Path: path}, nil
}

func (c *cli) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <port[:path]>...",
		Short: "Probe ports once from the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]domain.Target, 0, len(args))
			for _, a := range args {
				t, err := parseTarget(a)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}

			results, err := c.client.API.CheckTargets(cmd.Context(), targets)
			if err != nil {
				return err
			}

			classes := domain.Classify(results)
			rows := make([][]cell, 0, len(results))
			for _, r := range results {
				st := classes[r.Port]
				rows = append(rows, []cell{plain(strconv.Itoa(r.Port)), styled(string(st), healthStyle(st))})
			}
			writeTable(c.out, []string{"PORT", "HEALTH"}, rows)
			return nil
		},
	}
}

func (c *cli) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start an admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := c.readLine("Admin password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			ok, err := c.client.Session.Login(cmd.Context(), password)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("invalid password")
			}

			tok, _ := c.client.Session.Current()
			done(c.out, "logged in until %s", tok.ExpiresAt.Local().Format(time.DateTime))
			return nil
		},
	}
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.client.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			done(c.out, "logged out")
			return nil
		},
	}
}

func (c *cli) newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the admin password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := c.readLine("Current password: ")
			if err != nil {
				return err
			}
			next, err := c.readLine("New password: ")
			if err != nil {
				return err
			}
			confirm, err := c.readLine("Repeat new password: ")
			if err != nil {
				return err
			}
			if next == "" {
				return errors.New("new password cannot be empty")
			}
			if next != confirm {
				return errors.New("passwords do not match")
			}

			err = c.client.Session.ChangePassword(cmd.Context(), current, next)
			if client.IsStatus(err, http.StatusForbidden) {
				return errors.New("current password is incorrect")
			}
			if err != nil {
				return err
			}
			done(c.out, "password changed")
			return nil
		},
	}
}

func (c *cli) newFavCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage local favorites",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List favorite service ids",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				for _, id := range c.client.Favorites.List() {
					fmt.Fprintln(c.out, id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Add or remove a favorite",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				on, err := c.client.Favorites.Toggle(args[0])
				if err != nil {
					return err
				}
				if on {
					done(c.out, "%s added to favorites", args[0])
				} else {
					done(c.out, "%s removed from favorites", args[0])
				}
				return nil
			},
		},
	)
	return cmd
}
