package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"unveil/cmd/unveil/app"
	"unveil/cmd/unveil/ui"
)

var (
	historyClear bool
	historyLimit int
	aboutWidth   int
	configForce  bool
)

// historyCmd lists what is kept in the local database
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches and the reports you submitted",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "About Unveil",
	Args:  cobra.NoArgs,
	RunE:  runAbout,
}

// configCmd inspects and creates the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Forget recent searches")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Entries per list (default from config)")
	aboutCmd.Flags().IntVar(&aboutWidth, "width", 80, "Wrap width")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	st := openStore(cfg)
	if st == nil {
		return errors.New("local store unavailable")
	}
	defer closeStore(st)

	if historyClear {
		if err := st.ClearSearches(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Search history cleared")
		return nil
	}

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.Search.HistoryLimit
	}
	searches, err := st.RecentSearches(ctx, limit)
	if err != nil {
		return err
	}
	reports, err := st.Reports(ctx, limit)
	if err != nil {
		return err
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	if len(searches) == 0 {
		fmt.Fprintln(out, "No recent searches")
	} else {
		t := ui.NewSimpleTable("Recent searches", []string{"Query", "Filter", "Results", "Count", "Last searched"})
		t.MaxWidth = []int{40, 12, 8, 6, 20}
		for _, s := range searches {
			t.AddRow(s.Query, s.Filter.Label(), strconv.FormatInt(s.TotalResults, 10),
				strconv.Itoa(s.SearchCount), s.SearchedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out, t.View(styles))
	}

	if len(reports) == 0 {
		fmt.Fprintln(out, "No submitted reports")
		return nil
	}
	t := ui.NewSimpleTable("Your reports", []string{"Case", "Subject", "Type", "Submitted"})
	t.MaxWidth = []int{10, 32, 22, 20}
	for _, r := range reports {
		t.AddRow("#"+strconv.FormatInt(r.CaseID, 10), r.Subject, r.Actions, r.SubmittedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(out, t.View(styles))
	return nil
}

func runAbout(cmd *cobra.Command, args []string) error {
	md := app.AboutMarkdown(cfg.Contact)
	fmt.Fprint(cmd.OutOrStdout(), app.RenderMarkdown(md, aboutWidth, cfg.UI.Theme))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", resolvedConfigPath(), data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
