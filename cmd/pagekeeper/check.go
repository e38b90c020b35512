package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/pagekeeper/pkg/dom/memdom"
	"github.com/entrhq/pagekeeper/pkg/reconcile"
	"github.com/entrhq/pagekeeper/pkg/settings"
	"github.com/entrhq/pagekeeper/pkg/watch"
)

// settleLimit bounds the number of mutation deliveries a check waits for.
const settleLimit = 10

type checkOptions struct {
	*globalOptions

	printHTML bool
	set       []string
}

func newCheckCmd(global *globalOptions) *cobra.Command {
	opts := &checkOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "check <file.html>",
		Short: "Apply the enabled patches to a saved page",
		Long: `Apply the enabled patches to an HTML file without a browser and report
which ones ran. Use '-' to read the page from standard input.

Examples:
  pagekeeper check shipment.html
  pagekeeper check --html --set autoPackEnabled=true shipment.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.printHTML, "html", false, "Print the patched document")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Override a setting for this check (key=value)")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions, path string) error {
	store, err := opts.openStoreOrDefaults("", func(format string, v ...interface{}) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", v...)
	})
	if err != nil {
		return err
	}
	snap, err := settings.Read(store)
	if err != nil {
		return err
	}
	for _, assignment := range opts.set {
		key, value, err := settings.ParseAssignment(assignment)
		if err != nil {
			return err
		}
		snap = snap.With(key, value)
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()
		in = f
	}

	report, err := checkDocument(in, snap)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.String())
	if opts.printHTML {
		fmt.Fprintln(out, report.HTML)
	}
	if len(report.Result.Failed) > 0 {
		return fmt.Errorf("%d patch(es) failed", len(report.Result.Failed))
	}
	return nil
}

// checkReport is the outcome of patching one saved page.
type checkReport struct {
	Snapshot settings.Snapshot
	Result   reconcile.Result
	Rounds   int
	Stable   bool
	Watcher  watch.State
	HTML     string
}

// checkDocument runs the same sequence as the agent on a parsed page: one
// pass, then the watcher, then mutation deliveries until the page is at rest.
func checkDocument(r io.Reader, snap settings.Snapshot) (*checkReport, error) {
	doc, err := memdom.Parse(r)
	if err != nil {
		return nil, err
	}

	rec := reconcile.New()
	w := watch.New(doc, rec)

	result := rec.Reconcile(doc, snap)
	w.Arm(snap)
	rounds, stable := doc.Settle(settleLimit)
	state := w.State()
	w.Disarm()

	return &checkReport{
		Snapshot: snap,
		Result:   result,
		Rounds:   rounds,
		Stable:   stable,
		Watcher:  state,
		HTML:     doc.HTML(),
	}, nil
}

func (r *checkReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "enabled:  %s\n", r.Snapshot)
	fmt.Fprintf(&b, "applied:  %s\n", joinOrNone(r.Result.Applied))

	failed := make([]string, 0, len(r.Result.Failed))
	for id := range r.Result.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(&b, "failed:   %s: %v\n", id, r.Result.Failed[id])
	}

	fmt.Fprintf(&b, "watcher:  %s\n", r.Watcher)
	if r.Stable {
		fmt.Fprintf(&b, "settled:  after %d delivery(ies)\n", r.Rounds)
	} else {
		fmt.Fprintf(&b, "settled:  no, still changing after %d deliveries\n", r.Rounds)
	}
	return b.String()
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
