package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/cache"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/extract"
	"github.com/ZaguanLabs/gotlm/pofile"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/server"
	"github.com/ZaguanLabs/gotlm/translation"
)

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

func readObject(cmd *cobra.Command, schema *content.Schema, path string) (*content.Object, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	obj, err := schema.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func (c *cli) writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(c.stdout)
	}
	f, err := os.Create(path) // #nosec G304 - CLI tool writes user-specified files
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.stdout, "%s %s\n", gotlm.Name, gotlm.FullVersion())
			fmt.Fprintf(c.stdout, "  commit:  %s\n", gotlm.Commit())
			fmt.Fprintf(c.stdout, "  built:   %s\n", gotlm.Built())
			return nil
		},
	}
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the translation memory database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := c.openStore()
			if err != nil {
				return err
			}
			closeDB()
			fmt.Fprintf(c.stdout, "Database ready: %s\n", c.cfg.DBPath)
			return nil
		},
	}
}

func describe(v segment.Value) string {
	switch v := v.(type) {
	case segment.StringValue:
		return fmt.Sprintf("%q", truncate(v.Source.HTML(), 60))
	case segment.TemplateValue:
		return fmt.Sprintf("%s template, %d strings", v.Format, v.SegmentCount)
	case segment.RelatedObjectValue:
		return v.ContentType + " " + v.TranslationKey
	}
	return ""
}

func newExtractCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the segments of an object without storing them",
		Long:  "Print the segments of an object. FILE is an object JSON document, or - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := c.schema()
			if err != nil {
				return err
			}
			obj, err := readObject(cmd, schema, args[0])
			if err != nil {
				return err
			}
			segs, err := extract.Segments(obj)
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := segment.Encode(segs)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, data, "", "  "); err != nil {
					return err
				}
				buf.WriteByte('\n')
				_, err = buf.WriteTo(c.stdout)
				return err
			}

			fmt.Fprintf(c.stdout, "%s %s (%s): %d segments\n\n",
				obj.Model().Name, obj.TranslationKey(), obj.Locale(), len(segs))
			for i, v := range segs {
				fmt.Fprintf(c.stdout, "%3d. %-8s %-30s %s\n", i+1, segment.ToRecord(v).Type, v.Path(), describe(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print segments as JSON")
	return cmd
}

func newDiffCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare the segments of two revisions of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := c.schema()
			if err != nil {
				return err
			}
			var revs [2][]segment.Value
			for i, path := range args {
				obj, err := readObject(cmd, schema, path)
				if err != nil {
					return err
				}
				if revs[i], err = extract.Segments(obj); err != nil {
					return err
				}
			}

			diff := segment.Diff(revs[0], revs[1])
			stats := diff.Stats()
			needs := diff.NeedsTranslation()

			if jsonOut {
				type diffOutput struct {
					Previous         string            `json:"previous"`
					Current          string            `json:"current"`
					Stats            segment.DiffStats `json:"stats"`
					NeedsTranslation []string          `json:"needs_translation"`
				}
				out := diffOutput{Previous: filepath.Base(args[0]), Current: filepath.Base(args[1]), Stats: stats}
				for _, s := range needs {
					out.NeedsTranslation = append(out.NeedsTranslation, s.Source.HTML())
				}
				return writeJSON(c.stdout, out)
			}

			fmt.Fprintf(c.stdout, "Diff: %s vs %s\n\n", filepath.Base(args[1]), filepath.Base(args[0]))
			fmt.Fprintf(c.stdout, "Summary:\n")
			fmt.Fprintf(c.stdout, "  Unchanged: %d\n", stats.Unchanged)
			fmt.Fprintf(c.stdout, "  Added:     %d\n", stats.Added)
			fmt.Fprintf(c.stdout, "  Removed:   %d\n", stats.Removed)
			fmt.Fprintf(c.stdout, "  Modified:  %d\n\n", stats.Modified)

			if !diff.HasChanges() {
				fmt.Fprintf(c.stdout, "No changes detected. All translations are up to date.\n")
				return nil
			}
			fmt.Fprintf(c.stdout, "Needs translation: %d strings\n\n", len(needs))

			for _, v := range diff.Added {
				fmt.Fprintf(c.stdout, "  + %s %s\n", v.Path(), describe(v))
			}
			for _, m := range diff.Modified {
				fmt.Fprintf(c.stdout, "  ~ %s %s -> %s\n", m.New.Path(), describe(m.Old), describe(m.New))
			}
			for _, v := range diff.Removed {
				fmt.Fprintf(c.stdout, "  - %s %s\n", v.Path(), describe(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the diff as JSON")
	return cmd
}

func newSubmitCmd(c *cli) *cobra.Command {
	var (
		locales  []string
		related  []string
		withDeps bool
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Store an object as a translation source and open translations",
		Long: `Store an object as a translation source and open a translation for each
target locale (default: GOTLM_LOCALES without GOTLM_SOURCE_LOCALE).

Objects given with --related are submitted first when the object refers to
them. --with-deps looks related objects up among stored sources instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(locales) == 0 {
				locales = c.cfg.TargetLocales()
			}
			if len(locales) == 0 {
				return errors.New("no target locales: set --locale or GOTLM_LOCALES")
			}

			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			obj, err := readObject(cmd, svc.Schema(), args[0])
			if err != nil {
				return err
			}

			var subs []*translation.Submission
			switch {
			case len(related) > 0:
				reg := content.NewRegistry()
				for _, path := range related {
					rel, err := readObject(cmd, svc.Schema(), path)
					if err != nil {
						return err
					}
					reg.Add(rel)
				}
				subs, err = svc.SubmitWithDependencies(ctx, obj, reg, locales...)
			case withDeps:
				subs, err = svc.SubmitWithDependencies(ctx, obj, svc.Resolver(), locales...)
			default:
				var sub *translation.Submission
				sub, err = svc.Submit(ctx, obj, locales...)
				subs = []*translation.Submission{sub}
			}
			if err != nil {
				return err
			}

			if jsonOut {
				type translationOutput struct {
					ID     string `json:"id"`
					Locale string `json:"locale"`
				}
				type submissionOutput struct {
					ContentType    string              `json:"content_type"`
					TranslationKey string              `json:"translation_key"`
					Segments       int                 `json:"segments"`
					Translations   []translationOutput `json:"translations"`
				}
				out := make([]submissionOutput, len(subs))
				for i, sub := range subs {
					out[i] = submissionOutput{
						ContentType:    sub.Source.ContentType,
						TranslationKey: sub.Source.TranslationKey,
						Segments:       sub.Segments,
					}
					for _, t := range sub.Translations {
						out[i].Translations = append(out[i].Translations, translationOutput{ID: t.UUID, Locale: t.TargetLocale})
					}
				}
				return writeJSON(c.stdout, out)
			}

			for _, sub := range subs {
				fmt.Fprintf(c.stdout, "%s %s: %d segments\n", sub.Source.ContentType, sub.Source.TranslationKey, sub.Segments)
				for _, t := range sub.Translations {
					fmt.Fprintf(c.stdout, "  %-8s %s\n", t.TargetLocale, t.UUID)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&locales, "locale", "l", nil, "target locales (repeatable or comma separated)")
	f.StringArrayVar(&related, "related", nil, "object file the submitted object refers to (repeatable)")
	f.BoolVar(&withDeps, "with-deps", false, "submit related objects found among stored sources first")
	f.BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	var (
		showStrings bool
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "status TRANSLATION_ID",
		Short: "Show the progress of a translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			t, err := svc.Translation(ctx, args[0])
			if err != nil {
				return err
			}
			p, err := svc.Progress(ctx, args[0])
			if err != nil {
				return err
			}
			var strs []translation.StringStatus
			if showStrings {
				if strs, err = svc.Strings(ctx, args[0]); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(c.stdout, map[string]any{
					"id":       t.UUID,
					"locale":   t.TargetLocale,
					"progress": p,
					"complete": p.Complete(),
					"strings":  strs,
				})
			}

			fmt.Fprintf(c.stdout, "Translation %s (%s)\n", t.UUID, t.TargetLocale)
			fmt.Fprintf(c.stdout, "  Strings:    %d\n", p.Total)
			fmt.Fprintf(c.stdout, "  Translated: %d\n", p.Translated)
			fmt.Fprintf(c.stdout, "  Errors:     %d\n", p.Errors)
			if t.PublishedAt.Valid {
				fmt.Fprintf(c.stdout, "  Published:  %s\n", t.PublishedAt.Time.Format("2006-01-02 15:04:05"))
			}
			if len(strs) > 0 {
				fmt.Fprintln(c.stdout)
			}
			for _, s := range strs {
				mark := " "
				switch {
				case s.HasError:
					mark = "!"
				case s.Translation != "":
					mark = "*"
				}
				fmt.Fprintf(c.stdout, "  %s %-30s %q\n", mark, s.Path, truncate(s.Source, 50))
				if s.FieldError != "" {
					fmt.Fprintf(c.stdout, "      %s\n", s.FieldError)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showStrings, "strings", false, "list the strings and their state")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the status as JSON")
	return cmd
}

func newEditCmd(c *cli) *cobra.Command {
	var edit translation.Edit
	cmd := &cobra.Command{
		Use:   "edit TRANSLATION_ID",
		Short: "Save a manual translation of one string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			edit.ToolName = "cli"
			if _, err := svc.SaveString(ctx, args[0], edit); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Saved translation of %s\n", edit.Path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&edit.Path, "path", "", "context path of the string")
	f.StringVar(&edit.Source, "source", "", "source string, when the path holds several")
	f.StringVar(&edit.Data, "data", "", "translation as HTML with ids")
	f.StringVar(&edit.TranslatedBy, "user", "", "translator recorded on the string")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newTranslateCmd(c *cli) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "translate TRANSLATION_ID",
		Short: "Machine translate the untranslated strings of a translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, requireMT)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.MachineTranslate(ctx, args[0], user)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Translated: %d\n", res.Translated)
			fmt.Fprintf(c.stdout, "From cache: %d\n", res.Cached)
			fmt.Fprintf(c.stdout, "Skipped:    %d\n", res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user recorded as requesting the translation")
	return cmd
}

func newPOCmd(c *cli) *cobra.Command {
	po := &cobra.Command{
		Use:   "po",
		Short: "Exchange translations as gettext PO files",
	}

	var output string
	export := &cobra.Command{
		Use:   "export TRANSLATION_ID",
		Short: "Write the strings of a translation as a PO file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := svc.ExportPO(ctx, args[0])
			if err != nil {
				return err
			}
			return c.writeOutput(output, func(w io.Writer) error { return pofile.Encode(w, f) })
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	var user string
	imp := &cobra.Command{
		Use:   "import TRANSLATION_ID FILE",
		Short: "Save the translated entries of a PO file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			f, err := pofile.Decode(bytes.NewReader(data))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.ImportPO(ctx, args[0], f, user)
			var missing *gotlm.MissingSegmentsError
			if err != nil && !errors.As(err, &missing) {
				return err
			}
			fmt.Fprintf(c.stdout, "Imported: %d\n", res.Imported)
			fmt.Fprintf(c.stdout, "Missing:  %d\n", res.Missing)
			fmt.Fprintf(c.stdout, "Invalid:  %d\n", res.Invalid)
			fmt.Fprintf(c.stdout, "Unknown:  %d\n", res.Unknown)
			if missing != nil {
				fmt.Fprintf(c.stderr, "warning: %v\n", missing)
			}
			return nil
		},
	}
	imp.Flags().StringVar(&user, "user", "", "translator recorded on imported strings")

	po.AddCommand(export, imp)
	return po
}

func newPublishCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "publish TRANSLATION_ID",
		Short: "Build the translated object and record it as published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := c.service(ctx, withoutMT)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Publish(ctx, args[0])
			if err != nil {
				return err
			}
			for _, fe := range res.FieldErrors {
				fmt.Fprintf(c.stderr, "warning: %v (source value kept)\n", fe)
			}
			data, err := content.EncodeObject(res.Instance)
			if err != nil {
				return err
			}
			return c.writeOutput(output, func(w io.Writer) error {
				var buf bytes.Buffer
				if err := json.Indent(&buf, data, "", "  "); err != nil {
					return err
				}
				buf.WriteByte('\n')
				_, err := buf.WriteTo(w)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := c.service(ctx, optionalMT)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = c.cfg.ServerAddr()
			}
			return server.New(svc, c.logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: GOTLM_SERVER_HOST:GOTLM_SERVER_PORT)")
	return cmd
}

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Back up and restore the lookup cache",
		Long: `Back up and restore the lookup cache. The in-memory cache lives only as long
as one command, so these are useful with GOTLM_REDIS_URL set.`,
	}

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the cache contents to a JSON lines snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := c.openCache(cmd.Context())
			if err != nil {
				return err
			}
			if cl, ok := tc.(io.Closer); ok {
				defer cl.Close()
			}
			lister, ok := tc.(cache.Lister)
			if !ok {
				return errors.New("cache backend cannot list its entries")
			}
			meta := map[string]string{"exported_by": gotlm.UserAgent()}
			n, err := cache.SaveSnapshot(cmd.Context(), lister, args[0], meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Wrote %d entries to %s\n", n, args[0])
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a cache snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := c.openCache(cmd.Context())
			if err != nil {
				return err
			}
			if cl, ok := tc.(io.Closer); ok {
				defer cl.Close()
			}
			res, err := cache.LoadSnapshot(args[0], tc)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Imported %d entries (%d failed)\n", res.Imported, res.Failed)
			return nil
		},
	}

	cacheCmd.AddCommand(export, imp)
	return cacheCmd
}
