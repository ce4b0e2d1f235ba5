package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stocksim/internal/cli"
	"stocksim/internal/game"
	"stocksim/internal/market"
	"stocksim/internal/mentor"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptSymbol(label string) (string, error) {
	for {
		symbol, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		symbol = game.NormalizeSymbol(symbol)
		if err := game.ValidateSymbol(symbol); err != nil {
			printWarn(err.Error())
			continue
		}
		return symbol, nil
	}
}

func renderPortfolio(view game.PortfolioView) {
	accent.Println("\n== PORTFOLIO ==")
	fmt.Printf("Cash:        %s\n", money(view.Cash))
	fmt.Printf("Stock Value: %s\n", money(view.StockValue))
	fmt.Printf("Total Value: %s\n", money(view.TotalValue))
	fmt.Printf("Open P/L:    %s\n", colorizeMoney(view.TotalProfitLoss))

	fmt.Println()
	accent.Println("Positions")
	if len(view.Positions) == 0 {
		printInfo("No open positions yet.")
		fmt.Println()
		return
	}
	fmt.Printf("%-12s %8s %12s %12s %14s %14s\n", "SYMBOL", "QTY", "AVG", "NOW", "VALUE", "P/L")
	for _, p := range view.Positions {
		fmt.Printf("%-12s %8d %12s %12s %14s %14s\n",
			p.Symbol,
			p.Quantity,
			money(p.AvgPrice),
			money(p.CurrentPrice),
			money(p.CurrentValue),
			colorizeMoney(p.ProfitLoss),
		)
	}
	fmt.Println()
}

func renderMarket(overview cli.MarketOverview, top int) {
	accent.Println("\n== INDICES ==")
	for _, idx := range overview.Indices {
		fmt.Printf("%-10s %12.2f %12s %10s\n",
			idx.Name,
			idx.Value,
			colorizeFloat(idx.Change),
			colorizePercent(idx.ChangePercent),
		)
		if len(idx.History) > 1 {
			first := idx.History[0].Value
			last := idx.History[len(idx.History)-1].Value
			fmt.Printf("  %s range: %.2f -> %.2f over %d points\n",
				overview.Range, first, last, len(idx.History))
		}
	}

	fmt.Println()
	accent.Println("Top Movers")
	if top <= 0 || top > len(overview.Stocks) {
		top = len(overview.Stocks)
	}
	fmt.Printf("%-12s %-26s %12s %12s %10s\n", "SYMBOL", "NAME", "PRICE", "CHANGE", "CHANGE%")
	for _, s := range overview.Stocks[:top] {
		fmt.Printf("%-12s %-26s %12.2f %12s %10s\n",
			s.Symbol,
			truncate(s.Name, 26),
			s.Price,
			colorizeFloat(s.Change),
			colorizePercent(s.ChangePercent),
		)
	}
	fmt.Println()
}

func renderQuote(q market.Quote) {
	accent.Printf("\n== %s ==\n", q.Symbol)
	fmt.Printf("Price: %.2f\n", q.Price)
	fmt.Printf("As of: %s\n", q.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()
}

func renderTradeResult(result game.TradeResult, side, symbol string, qty int64) {
	accent.Printf("\n== ORDER %s ==\n", strings.ToUpper(side))
	fmt.Printf("Symbol:   %s\n", symbol)
	fmt.Printf("Shares:   %d\n", qty)
	fmt.Printf("Price:    %s\n", money(result.Transaction.Price))
	fmt.Printf("Total:    %s\n", money(result.Transaction.Total))
	fmt.Printf("Balance:  %s\n", money(result.Balance))
	if result.Position != nil {
		fmt.Printf("Holding:  %d @ %s avg\n", result.Position.Quantity, money(result.Position.AvgPrice))
	} else if side == "sell" {
		printInfo("Position closed.")
	}
	fmt.Printf("XP:       %d (level %d)\n", result.XP, result.Level)
	for _, b := range result.NewBadges {
		printSuccess("Badge earned: " + b.Name)
	}
	fmt.Println()
}

func renderTransactions(txns []game.Transaction) {
	accent.Println("\n== TRANSACTIONS ==")
	if len(txns) == 0 {
		printInfo("No trades yet.")
		fmt.Println()
		return
	}
	fmt.Printf("%-20s %-12s %-6s %8s %12s %14s\n", "TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "TOTAL")
	for _, t := range txns {
		fmt.Printf("%-20s %-12s %-6s %8d %12s %14s\n",
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Symbol,
			t.Side,
			t.Quantity,
			money(t.Price),
			money(t.Total),
		)
	}
	fmt.Println()
}

func renderGamification(state game.GamificationState) {
	accent.Println("\n== PROGRESS ==")
	fmt.Printf("Level:          %d\n", state.Level)
	fmt.Printf("XP:             %d (%d into level, %d per level)\n",
		state.XP, state.XP%game.XPPerLevel, game.XPPerLevel)
	fmt.Printf("Daily streak:   %d (best %d)\n", state.DailyStreak, state.LongestDailyStreak)
	fmt.Printf("Trade streak:   %d (best %d)\n", state.TradeStreak, state.LongestTradeStreak)
	if !state.LastActive.IsZero() {
		fmt.Printf("Last active:    %s\n", state.LastActive.Local().Format("2006-01-02 15:04"))
	}

	fmt.Println()
	accent.Println("Badges")
	if len(state.Badges) == 0 {
		printInfo("No badges yet. Trade to earn your first one.")
		fmt.Println()
		return
	}
	for _, b := range state.Badges {
		fmt.Printf("  %-14s %s\n", b.Name, b.AwardedAt.Local().Format("2006-01-02"))
	}
	fmt.Println()
}

func renderLeaderboard(rows []game.LeaderboardRow) {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		fmt.Println()
		return
	}
	fmt.Printf("%-6s %-22s %14s %14s %14s\n", "RANK", "PLAYER", "CASH", "STOCKS", "TOTAL")
	for _, row := range rows {
		fmt.Printf("%-6d %-22s %14s %14s %14s\n",
			row.Rank,
			truncate(row.Name, 22),
			money(row.Cash),
			money(row.StockValue),
			money(row.TotalValue),
		)
	}
	fmt.Println()
}

func renderProfile(p game.Profile) {
	accent.Println("\n== PROFILE ==")
	fmt.Printf("Name:   %s\n", p.DisplayName())
	fmt.Printf("Email:  %s\n", p.Email)
	if p.AvatarURL != "" {
		fmt.Printf("Avatar: %s\n", p.AvatarURL)
	}
	fmt.Println()
}

func renderMentorReply(reply mentor.Reply) {
	accent.Println("\n== MENTOR ==")
	fmt.Println(strings.TrimSpace(reply.Message))
	fmt.Println()
}

func colorizeMoney(v decimal.Decimal) string {
	text := money(v)
	if v.Sign() > 0 {
		text = "+" + text
	}
	switch {
	case v.Sign() > 0:
		return success.Sprint(text)
	case v.Sign() < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeFloat(v float64) string {
	text := fmt.Sprintf("%+.2f", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

// money renders a decimal as 1,234.56 with comma grouping.
func money(v decimal.Decimal) string {
	text := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign = "-"
		text = text[1:]
	}
	whole, frac, _ := strings.Cut(text, ".")
	return sign + comma(whole) + "." + frac
}

func comma(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
