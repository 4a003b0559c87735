package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unveil/internal/toast"
	"unveil/internal/verification"
)

// verifyCmd groups the email verification steps
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify your email with a one-time code",
	Long: `Voting and reporting need a verified email. "verify send" emails a
6-digit code; "verify code" exchanges it for a token. With
verification.remember enabled the token is stored and reused by later
commands.`,
}

var verifySendCmd = &cobra.Command{
	Use:   "send <email>",
	Short: "Email a verification code",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifySend,
}

var verifyCodeCmd = &cobra.Command{
	Use:   "code <email> <code>",
	Short: "Exchange a verification code for a token",
	Args:  cobra.ExactArgs(2),
	RunE:  runVerifyCode,
}

var verifyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the remembered verification",
	Args:  cobra.NoArgs,
	RunE:  runVerifyClear,
}

func init() {
	verifyCmd.AddCommand(verifySendCmd)
	verifyCmd.AddCommand(verifyCodeCmd)
	verifyCmd.AddCommand(verifyClearCmd)
}

func runVerifySend(cmd *cobra.Command, args []string) error {
	rules := cfg.ValidationRules()
	if err := rules.ValidateEmail(args[0]); err != nil {
		return err
	}

	v := verification.NewVerifier(newClient(cfg), toast.NewPrinter(cmd.ErrOrStderr()))
	if !v.RequestVerification(cmd.Context(), args[0]) {
		return errors.New("verification code was not sent")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Code sent. It expires in %s; run: unveil verify code %s <code>\n",
		cfg.GetOTPExpiry(), v.State().Email)
	return nil
}

func runVerifyCode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, code := args[0], args[1]
	rules := cfg.ValidationRules()
	if err := rules.ValidateEmail(email); err != nil {
		return err
	}
	if err := rules.ValidateOTP(code); err != nil {
		return err
	}

	v := verification.NewVerifier(newClient(cfg), toast.NewPrinter(cmd.ErrOrStderr()))
	if cfg.Verification.Remember {
		if st := openStore(cfg); st != nil {
			defer closeStore(st)
			if err := v.Remember(ctx, st); err != nil {
				logger.Warn("could not restore verification", zap.Error(err))
			}
		}
	}

	v.Resume(email)
	if !v.VerifyCode(ctx, code) {
		return errors.New(v.State().Error)
	}

	verified, token := v.Credentials()
	fmt.Fprintf(cmd.OutOrStdout(), "Verified %s\ntoken: %s\n", verified, token)
	return nil
}

func runVerifyClear(cmd *cobra.Command, args []string) error {
	st := openStore(cfg)
	if st == nil {
		return errors.New("local store unavailable")
	}
	defer closeStore(st)

	if err := st.ClearVerification(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Verification cleared")
	return nil
}
