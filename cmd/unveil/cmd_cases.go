package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unveil/cmd/unveil/ui"
	"unveil/internal/api"
	"unveil/internal/report"
	"unveil/internal/search"
	"unveil/internal/store"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/validation"
	"unveil/internal/verification"
)

var (
	searchFilter string
	searchPage   int
	searchSize   int

	voteEmail string
	voteToken string

	reportName          string
	reportEmail         string
	reportPhone         string
	reportCompany       string
	reportActions       string
	reportDescription   string
	reportReporterEmail string
	reportReporterName  string
	reportToken         string
)

// searchCmd queries the case database
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search reported cases by name, email, phone or company",
	Long: `Searches the community database. --filter restricts the match to one
field (all, name, email, phone, company); pages are zero-based.

Example:
  unveil search --filter email scammer@example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// voteCmd casts a verdict vote
var voteCmd = &cobra.Command{
	Use:   "vote <case-id> guilty|not_guilty",
	Short: "Vote on a case verdict (requires a verified email)",
	Long: `Records a guilty or not_guilty vote. Pass --email and --token from
"unveil verify code", or enable verification.remember in the config to reuse
the last verification.`,
	Args: cobra.ExactArgs(2),
	RunE: runVote,
}

// reportCmd submits a new case
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a scam (requires a verified email)",
	Long: `Submits a new case. At least one of --name, --email or --phone is
required, along with the scam type, a description of at least 20 characters
and your own name and email.

Example:
  unveil report --phone "555 123 4567" --actions "Phone Scam" \
    --description "Claimed to be my bank and asked for a card PIN" \
    --reporter-email me@example.com --reporter-name "Jane Doe" --token $TOKEN`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	searchCmd.Flags().StringVarP(&searchFilter, "filter", "f", string(types.FilterAll), "Field to match: all, name, email, phone, company")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 0, "Zero-based result page")
	searchCmd.Flags().IntVarP(&searchSize, "size", "s", 0, "Results per page (default from config)")

	voteCmd.Flags().StringVar(&voteEmail, "email", "", "Verified email address")
	voteCmd.Flags().StringVar(&voteToken, "token", "", "Verification token")

	reportCmd.Flags().StringVar(&reportName, "name", "", "Scammer name")
	reportCmd.Flags().StringVar(&reportEmail, "email", "", "Scammer email")
	reportCmd.Flags().StringVar(&reportPhone, "phone", "", "Scammer phone")
	reportCmd.Flags().StringVar(&reportCompany, "company", "", "Company the scammer claimed")
	reportCmd.Flags().StringVar(&reportActions, "actions", "", "Scam type, e.g. \"Phone Scam\"")
	reportCmd.Flags().StringVar(&reportDescription, "description", "", "What happened")
	reportCmd.Flags().StringVar(&reportReporterEmail, "reporter-email", "", "Your email")
	reportCmd.Flags().StringVar(&reportReporterName, "reporter-name", "", "Your name")
	reportCmd.Flags().StringVar(&reportToken, "token", "", "Verification token")
}

// credentials resolves who is voting or reporting: an explicit token, or
// the remembered verification when that is enabled.
func credentials(ctx context.Context, client verification.OTPService, st *store.Store, notify toast.Notifier, email, token string) search.VerificationSource {
	if token != "" {
		return staticCredentials{email: validation.NormalizeEmail(email), token: token}
	}
	v := verification.NewVerifier(client, notify)
	if cfg.Verification.Remember && st != nil {
		if err := v.Remember(ctx, st); err != nil {
			logger.Warn("could not restore verification", zap.Error(err))
		}
	}
	return v
}

type staticCredentials struct {
	email, token string
}

func (s staticCredentials) IsVerificationRequired() bool { return false }

func (s staticCredentials) Credentials() (string, string) { return s.email, s.token }

var errNotVerified = errors.New(`not verified: run "unveil verify send <email>" and "unveil verify code <email> <code>", then pass --email and --token`)

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filter, ok := types.ParseFilter(searchFilter)
	if !ok {
		return fmt.Errorf("unknown filter %q", searchFilter)
	}

	st := openStore(cfg)
	defer closeStore(st)

	opts := search.Options{Rules: cfg.ValidationRules(), PageSize: cfg.Search.DefaultPageSize}
	if st != nil {
		opts.History = st
	}
	size := searchSize
	if size > cfg.Search.MaxPageSize {
		size = cfg.Search.MaxPageSize
	}

	notify := toast.NewPrinter(cmd.ErrOrStderr())
	session := search.NewSession(newClient(cfg), nil, notify, opts)
	session.UpdateFilter(filter)
	session.UpdateQuery(strings.Join(args, " "))

	logger.Info("searching", zap.String("filter", string(filter)), zap.Int("page", searchPage))
	if err := session.PerformSearch(ctx, searchPage, size); err != nil {
		// Invalid queries were already reported; backend failures only
		// leave their message on the session.
		if msg := session.State().Error; msg != "" {
			notify.Notify(toast.KindError, "Search Failed", msg)
		}
		return err
	}

	printResults(cmd, session.State())
	return nil
}

func printResults(cmd *cobra.Command, state search.State) {
	out := cmd.OutOrStdout()
	if len(state.Results) == 0 {
		fmt.Fprintln(out, "No matching cases found.")
		return
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	t := ui.NewSimpleTable("", []string{"ID", "Name", "Email", "Phone", "Company", "Type", "Verdict", "Votes"})
	t.MaxWidth = []int{8, 20, 28, 16, 20, 20, 13, 6}
	for _, c := range state.Results {
		t.AddRow(strconv.FormatInt(c.ID, 10), c.Name, c.Email, validation.FormatPhoneNumber(c.Phone), c.Company,
			c.Actions, c.Verdict(), strconv.Itoa(c.TotalVotes))
	}
	fmt.Fprint(out, t.View(styles))

	if p := state.Pagination; p != nil {
		from, to := p.Range()
		fmt.Fprintf(out, "Showing %d-%d of %d (page %d of %d)\n", from, to, p.TotalElements, p.CurrentPage+1, max(p.TotalPages, 1))
	}
}

func runVote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	caseID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || caseID <= 0 {
		return fmt.Errorf("invalid case id %q", args[0])
	}
	vote := types.Vote(args[1])
	if !vote.Valid() {
		return fmt.Errorf("vote must be %q or %q", types.VoteGuilty, types.VoteNotGuilty)
	}
	if !cfg.Features.EnableVoting {
		return errors.New("voting is disabled in this configuration")
	}

	st := openStore(cfg)
	defer closeStore(st)

	client := newClient(cfg)
	notify := toast.NewPrinter(cmd.ErrOrStderr())
	source := credentials(ctx, client, st, notify, voteEmail, voteToken)
	if source.IsVerificationRequired() {
		return errNotVerified
	}

	session := search.NewSession(client, source, notify, search.Options{Rules: cfg.ValidationRules()})
	if !session.CastVote(ctx, caseID, vote) {
		return fmt.Errorf("vote on case %d was not recorded", caseID)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !cfg.Features.EnableReports {
		return errors.New("reporting is disabled in this configuration")
	}

	st := openStore(cfg)
	defer closeStore(st)

	client := newClient(cfg)
	notify := toast.NewPrinter(cmd.ErrOrStderr())
	source := credentials(ctx, client, st, notify, reportReporterEmail, reportToken)

	var recorder report.Recorder
	if st != nil {
		recorder = st
	}
	form := report.NewForm(client, source, notify, cfg.ValidationRules(), recorder)
	for field, value := range map[report.Field]string{
		report.FieldName:          reportName,
		report.FieldEmail:         reportEmail,
		report.FieldPhone:         reportPhone,
		report.FieldCompany:       reportCompany,
		report.FieldActions:       reportActions,
		report.FieldDescription:   reportDescription,
		report.FieldReporterEmail: reportReporterEmail,
		report.FieldReporterName:  reportReporterName,
	} {
		form.UpdateField(field, value)
	}

	caseID, err := form.Submit(ctx)
	if err != nil {
		var fieldErrs report.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, f := range report.Fields {
				if msg, ok := fieldErrs[f]; ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Label(), msg)
				}
			}
		}
		if errors.Is(err, report.ErrVerificationRequired) && api.StatusOf(err) == 0 {
			return errNotVerified
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Case #%d created\n", caseID)
	return nil
}
