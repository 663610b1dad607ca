package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/noteweave/internal"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/parser"
	"github.com/starford/noteweave/internal/styles"
)

// withCore opens and syncs the workspace for one-shot commands. Logs go to
// stderr so that stdout only carries command output.
func withCore(ctx context.Context, cmd *cli.Command, fn func(*internal.Core) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, os.Stderr)
	core, err := internal.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()
	if _, err := core.Sync(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return fn(core)
}

// noteArgs reads the <vault> <fname> arguments.
func noteArgs(cmd *cli.Command) (vault, fname string, err error) {
	if cmd.NArg() < 2 {
		return "", "", cli.Exit("expected <vault> <fname>", 2)
	}
	return cmd.Args().Get(0), cmd.Args().Get(1), nil
}

func noteName(vault, fname string) string {
	return styles.NoteStyle.Render(vault + "/" + fname)
}

func position(line, col int) string {
	return styles.DimStyle.Render(fmt.Sprintf("%d:%d", line, col))
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Index every vault and drop notes that no longer exist",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(ctx, cmd, func(c *internal.Core) error {
				res, err := c.Service.Sync(ctx)
				if err != nil {
					return err
				}
				fmt.Println(styles.SuccessStyle.Render("✓ Index up to date"))
				fmt.Println(styles.DimStyle.Render(fmt.Sprintf("  indexed %d, unchanged %d, removed %d, failed %d",
					res.Indexed, res.Unchanged, res.Removed, res.Failed)))
				return nil
			})
		},
	}
}

func linksCommand() *cli.Command {
	return &cli.Command{
		Name:      "links",
		Usage:     "List the wikilinks and note references of a note",
		ArgsUsage: "<vault> <fname>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Only links of this type (wiki, ref)"},
			&cli.StringFlag{Name: "to", Usage: "Only links to this fname"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			filter := link.Filter{To: link.Location{Fname: cmd.String("to")}}
			if s := cmd.String("type"); s != "" {
				t, err := link.ParseType(s)
				if err != nil {
					return err
				}
				filter.Type = &t
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				links, err := c.Service.Links(ctx, vault, fname, filter)
				if err != nil {
					return err
				}
				for _, l := range links {
					target := styles.TargetStyle.Render(parser.Target{
						Vault: l.To.Vault, XVault: l.XVault, Fname: l.To.Fname, Anchor: l.To.Anchor,
					}.String())
					fmt.Printf("%s  %-10s %s\n", position(l.Line, l.Column), l.SyntaxName(), target)
				}
				if len(links) == 0 {
					fmt.Println(styles.DimStyle.Render("no links"))
				}
				return nil
			})
		},
	}
}

func backlinksCommand() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "List the links pointing at a note",
		ArgsUsage: "<vault> <fname>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				rows, err := c.Service.Backlinks(ctx, vault, fname)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Printf("%s:%s  %s\n", noteName(r.SrcVault, r.SrcFname),
						styles.DimStyle.Render(fmt.Sprint(r.Line)), styles.TargetStyle.Render(r.Raw))
				}
				if len(rows) == 0 {
					fmt.Println(styles.DimStyle.Render("no backlinks"))
				}
				return nil
			})
		},
	}
}

func anchorsCommand() *cli.Command {
	return &cli.Command{
		Name:      "anchors",
		Usage:     "List the heading and block anchors of a note",
		ArgsUsage: "<vault> <fname>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				anchors, err := c.Service.Anchors(ctx, vault, fname)
				if err != nil {
					return err
				}
				for _, a := range anchors {
					fmt.Printf("%s  %-7s %s %s\n", position(a.Line, a.Column), a.Kind,
						styles.AnchorStyle.Render(a.Ref()), styles.DimStyle.Render(a.Text))
				}
				return nil
			})
		},
	}
}

func blocksCommand() *cli.Command {
	return &cli.Command{
		Name:      "blocks",
		Usage:     "List the referenceable blocks of a note",
		ArgsUsage: "<vault> <fname>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				blocks, err := c.Service.Blocks(ctx, vault, fname)
				if err != nil {
					return err
				}
				for _, b := range blocks {
					fmt.Printf("%s  %-9s %s\n", styles.DimStyle.Render(fmt.Sprintf("%4d", b.Line)), b.Kind,
						styles.AnchorStyle.Render(b.Anchor.Ref()))
				}
				return nil
			})
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show which notes a link denotes",
		ArgsUsage: "<link>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Note the link is written in, as vault/fname"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return cli.Exit("expected <link>", 2)
			}
			raw := strings.TrimSpace(cmd.Args().First())
			raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(raw, "!"), "[["), "]]")
			t := parser.ParseTarget(raw, true)
			to := link.Location{Vault: t.Vault, Fname: t.Fname, Anchor: t.Anchor}

			var from link.Location
			if f := cmd.String("from"); f != "" {
				v, n, ok := strings.Cut(f, "/")
				if !ok {
					return cli.Exit("--from must be vault/fname", 2)
				}
				from = link.Location{Vault: v, Fname: n}
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				res, err := c.Service.Resolve(ctx, to, from)
				if err != nil {
					return err
				}
				for _, cand := range res.Candidates {
					fmt.Println(styles.DimStyle.Render("  candidate ") + noteName(cand.Vault, cand.Fname))
				}
				switch {
				case res.Error != "":
					fmt.Println(styles.ErrorStyle.Render("✗ " + res.Error))
				case res.AnchorFound != nil && !*res.AnchorFound:
					fmt.Println(styles.WarningStyle.Render(fmt.Sprintf("! %s has no anchor %q",
						res.Note.Vault+"/"+res.Note.Fname, to.Anchor)))
				default:
					fmt.Println(styles.SuccessStyle.Render("✓ ") + noteName(res.Note.Vault, res.Note.Fname))
				}
				return nil
			})
		},
	}
}

func expandCommand() *cli.Command {
	return &cli.Command{
		Name:      "expand",
		Usage:     "Print a note with every note reference replaced by its content",
		ArgsUsage: "<vault> <fname>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				exp, err := c.Service.Expand(ctx, vault, fname)
				if err != nil {
					return err
				}
				fmt.Print(exp.Body)
				return nil
			})
		},
	}
}

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Convert legacy ((ref: ...)) references to ![[...]]",
		ArgsUsage: "<vault> <fname>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Write the result back to the note"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vault, fname, err := noteArgs(cmd)
			if err != nil {
				return err
			}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				res, err := c.Service.NormalizeRefs(ctx, vault, fname, cmd.Bool("write"))
				if err != nil {
					return err
				}
				if !res.Written {
					fmt.Print(res.Body)
					return nil
				}
				fmt.Println(styles.SuccessStyle.Render(fmt.Sprintf("✓ Converted %d references in ", res.Converted)) +
					noteName(vault, fname))
				return nil
			})
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a note and update every link to it",
		ArgsUsage: "<vault> <fname> <new-fname>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to-vault", Usage: "Move the note into another vault"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 3 {
				return cli.Exit("expected <vault> <fname> <new-fname>", 2)
			}
			args := cmd.Args()
			from := link.Location{Vault: args.Get(0), Fname: args.Get(1)}
			to := link.Location{Vault: cmd.String("to-vault"), Fname: args.Get(2)}
			return withCore(ctx, cmd, func(c *internal.Core) error {
				res, err := c.Service.RenameNote(ctx, from, to)
				if err != nil {
					return err
				}
				fmt.Println(styles.SuccessStyle.Render("✓ Renamed ") + noteName(res.From.Vault, res.From.Fname) +
					" → " + noteName(res.To.Vault, res.To.Fname))
				for _, u := range res.Updated {
					fmt.Println(styles.DimStyle.Render(fmt.Sprintf("  %d links in ", u.Links)) + noteName(u.Vault, u.Fname))
				}
				for _, s := range res.Skipped {
					fmt.Println(styles.WarningStyle.Render("  skipped " + s))
				}
				return nil
			})
		},
	}
}
