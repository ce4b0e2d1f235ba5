package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "stocksim/internal/cli"
	"stocksim/internal/config"
	"stocksim/internal/game"
	"stocksim/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLI()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "stocksim",
		Short:        "Virtual stock trading from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newPortfolioCmd(&apiBase),
		newMarketCmd(&apiBase),
		newQuoteCmd(&apiBase),
		newBuyCmd(&apiBase),
		newSellCmd(&apiBase),
		newTransactionsCmd(&apiBase),
		newGamifyCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newProfileCmd(&apiBase),
		newResetCmd(&apiBase),
		newMentorCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			firstName, err := promptOptional("First name (optional)")
			if err != nil {
				return err
			}
			lastName, err := promptOptional("Last name (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, firstName, lastName)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `stocksim login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newPortfolioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"dash"},
		Short:   "Show cash, holdings and total value",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Portfolio(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderPortfolio(view)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "market [range]",
		Short: "Show top movers and index history (1h, 10h, 1d, 1m, 1y, 10y)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			timeRange := ""
			if len(args) > 0 {
				timeRange = strings.ToLower(strings.TrimSpace(args[0]))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			overview, err := newClient(apiBase).Market(ctx, sess.AccessToken, timeRange)
			if err != nil {
				return err
			}
			renderMarket(overview, top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 15, "number of movers to show")
	return cmd
}

func newQuoteCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quote [symbol]",
		Short: "Quote one symbol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			quote, err := newClient(apiBase).Quote(ctx, sess.AccessToken, symbol)
			if err != nil {
				return err
			}
			renderQuote(quote)
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [symbol] [quantity]",
		Short: "Buy shares",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return placeOrderCommand(cmd, apiBase, "buy", args)
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [symbol] [quantity]",
		Short: "Sell shares",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return placeOrderCommand(cmd, apiBase, "sell", args)
		},
	}
}

func placeOrderCommand(cmd *cobra.Command, apiBase *string, side string, args []string) error {
	sess, err := cl.LoadSession()
	if err != nil {
		return fmt.Errorf("login required: %w", err)
	}
	symbol, err := symbolFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	var qty int64
	if len(args) > 1 {
		qty, err = strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
		if err != nil || qty <= 0 {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	} else {
		qty, err = promptInt64("Shares to "+side, 1)
		if err != nil {
			return err
		}
	}

	idem := uuid.NewString()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	result, err := newClient(apiBase).PlaceOrder(ctx, sess.AccessToken, symbol, side, qty, idem)
	if err != nil {
		return queueOnNetworkError(err, syncq.Command{
			Method: "POST",
			Path:   "/v1/orders",
			Body: map[string]any{
				"symbol":   symbol,
				"side":     side,
				"quantity": qty,
			},
			IdempotencyKey: idem,
		})
	}
	renderTradeResult(result, side, symbol, qty)
	return nil
}

func newTransactionsCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Show trade history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			txns, err := newClient(apiBase).Transactions(ctx, sess.AccessToken, limit)
			if err != nil {
				return err
			}
			renderTransactions(txns)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newGamifyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "gamify",
		Aliases: []string{"xp"},
		Short:   "Show XP, level, streaks and badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			state, err := newClient(apiBase).Gamification(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderGamification(state)
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show users ranked by total portfolio value",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Leaderboard(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderLeaderboard(rows)
			return nil
		},
	}
}

func newProfileCmd(apiBase *string) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			p, err := newClient(apiBase).Profile(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderProfile(p)
			return nil
		},
	}

	var firstName, lastName, avatarURL string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			update := game.ProfileUpdate{}
			if cmd.Flags().Changed("first-name") {
				update.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				update.LastName = &lastName
			}
			if cmd.Flags().Changed("avatar-url") {
				update.AvatarURL = &avatarURL
			}
			if update.FirstName == nil && update.LastName == nil && update.AvatarURL == nil {
				printWarn("Nothing to update. Pass --first-name, --last-name or --avatar-url.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			p, err := newClient(apiBase).UpdateProfile(ctx, sess.AccessToken, update)
			if err != nil {
				return err
			}
			printSuccess("Profile updated.")
			renderProfile(p)
			return nil
		},
	}
	set.Flags().StringVar(&firstName, "first-name", "", "first name")
	set.Flags().StringVar(&lastName, "last-name", "", "last name")
	set.Flags().StringVar(&avatarURL, "avatar-url", "", "avatar URL")
	profile.AddCommand(set)
	return profile
}

func newResetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the account to a fresh balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			choice, err := promptChoice("Wipe positions, history and badges?", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if choice != "yes" {
				printInfo("Reset cancelled.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).ResetAccount(ctx, sess.AccessToken); err != nil {
				return err
			}
			printSuccess("Account reset to starting balance.")
			return nil
		},
	}
}

func newMentorCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mentor [message...]",
		Short: "Ask the trading mentor",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				message, err = promptRequired("Message")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			reply, err := newClient(apiBase).MentorChat(ctx, sess.AccessToken, message)
			if err != nil {
				return err
			}
			renderMentorReply(reply)
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					if cl.IsAPIError(err) {
						// The server saw it and said no; replaying again
						// will never succeed.
						printError(fmt.Sprintf("Dropped %s %s: %v", q.Method, q.Path, err))
						continue
					}
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError stores the write for `sync` when the server never
// answered. Rejections the server did answer are surfaced directly.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if cl.IsAPIError(err) {
		return err
	}
	if qErr := syncq.Push(cmd); qErr != nil {
		return fmt.Errorf("request failed (%v) and queueing failed: %w", err, qErr)
	}
	printWarn(fmt.Sprintf("API unreachable (%v). Order queued; run `stocksim sync` when back online.", err))
	return nil
}

func symbolFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		symbol := game.NormalizeSymbol(args[0])
		if err := game.ValidateSymbol(symbol); err != nil {
			return "", err
		}
		return symbol, nil
	}
	return promptSymbol("Symbol")
}
