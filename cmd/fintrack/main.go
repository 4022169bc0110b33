package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/storage"
)

const loginTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg.StateDBPath)
	defer store.Close()

	mgr := session.NewManager(session.Options{
		BaseURL:    cfg.APIBaseURL,
		Store:      store,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     logger.WithComponent(log.ComponentSession),
	})
	client := api.New(mgr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = runLogin(ctx, mgr, cfg.LoginCallbackPort, args)
	case "logout":
		mgr.Logout()
		fmt.Println("Logged out.")
	case "status":
		err = runStatus(ctx, mgr)
	case "workspaces":
		err = runWorkspaces(ctx, mgr, args)
	case "accounts":
		err = requireSession(ctx, mgr, func() error { return runAccounts(ctx, client, args) })
	case "categories":
		err = requireSession(ctx, mgr, func() error { return runCategories(ctx, client, args) })
	case "transactions":
		err = requireSession(ctx, mgr, func() error { return runTransactions(ctx, client, args) })
	case "stats":
		err = requireSession(ctx, mgr, func() error { return runStats(ctx, client, args) })
	case "shopping":
		err = requireSession(ctx, mgr, func() error { return runShopping(ctx, client, args) })
	case "recurring":
		err = requireSession(ctx, mgr, func() error { return runRecurring(ctx, client, args) })
	case "currencies":
		err = requireSession(ctx, mgr, func() error { return runCurrencies(ctx, client, args) })
	case "theme":
		err = runTheme(store, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fintrack <command> [args]

commands:
  login [--code CODE]       sign in with Google (opens a local callback server)
  logout                    clear the stored session
  status                    show session, profile and active workspace
  workspaces list           list workspaces
  workspaces use <id>       switch the active workspace
  accounts list             list accounts
  categories list [type]    list categories, optionally income|expense
  transactions list [acct]  list transactions, optionally for one account
  stats balances|total|summary <start> <end>
  shopping list             list shopping lists
  recurring list|pending    list recurring transactions
  currencies list           list currencies
  theme get|set <value>     read or persist the UI theme`)
}

// requireSession hydrates from stored tokens before running an API command.
func requireSession(ctx context.Context, mgr *session.Manager, run func() error) error {
	if err := mgr.Hydrate(ctx, ""); err != nil {
		return err
	}
	if mgr.Status() != session.StatusAuthenticated {
		return fmt.Errorf("not logged in, run: fintrack login")
	}
	return run()
}

func runLogin(ctx context.Context, mgr *session.Manager, callbackPort string, args []string) error {
	code := ""
	if len(args) == 2 && args[0] == "--code" {
		code = args[1]
	}

	if code == "" {
		authURL, err := mgr.StartGoogleLogin(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Open this URL to authorize:\n%s\n", authURL)

		code, err = waitForAuthCode(ctx, callbackPort)
		if err != nil {
			return err
		}
	}

	if err := mgr.Hydrate(ctx, code); err != nil {
		return err
	}
	user := mgr.User()
	fmt.Printf("Logged in as %s (%s), workspace %d\n", user.Name, user.Email, mgr.ActiveWorkspace())
	return nil
}

// waitForAuthCode runs a one-shot local HTTP server on the OAuth redirect
// port and returns the authorization code delivered by the provider.
func waitForAuthCode(ctx context.Context, port string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errStr)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			code = r.URL.Query().Get("auth_code")
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- code
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer srv.Close()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

func runStatus(ctx context.Context, mgr *session.Manager) error {
	if err := mgr.Hydrate(ctx, ""); err != nil {
		return err
	}
	fmt.Println("status:", mgr.Status())
	if mgr.Status() != session.StatusAuthenticated {
		return nil
	}
	user := mgr.User()
	fmt.Printf("user:   %s <%s>\n", user.Name, user.Email)
	for _, ws := range mgr.Workspaces() {
		marker := " "
		if ws.ID == mgr.ActiveWorkspace() {
			marker = "*"
		}
		fmt.Printf("%s %4d  %-10s %s\n", marker, ws.ID, ws.Kind, ws.Name)
	}
	return nil
}

func runWorkspaces(ctx context.Context, mgr *session.Manager, args []string) error {
	if err := mgr.Hydrate(ctx, ""); err != nil {
		return err
	}
	if mgr.Status() != session.StatusAuthenticated {
		return fmt.Errorf("not logged in, run: fintrack login")
	}

	switch {
	case len(args) == 0 || args[0] == "list":
		if err := mgr.RefreshWorkspaces(ctx); err != nil {
			return err
		}
		for _, ws := range mgr.Workspaces() {
			marker := " "
			if ws.ID == mgr.ActiveWorkspace() {
				marker = "*"
			}
			fmt.Printf("%s %4d  %-10s %s\n", marker, ws.ID, ws.Kind, ws.Name)
		}
		return nil
	case args[0] == "use" && len(args) == 2:
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid workspace id %q", args[1])
		}
		if err := mgr.SetActiveWorkspace(id); err != nil {
			return err
		}
		fmt.Printf("Active workspace is now %d.\n", id)
		return nil
	default:
		return fmt.Errorf("usage: fintrack workspaces [list|use <id>]")
	}
}

func runAccounts(ctx context.Context, client *api.Client, args []string) error {
	accounts, err := client.Accounts.List(ctx, 0, 100)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		fmt.Printf("%4d  %-20s %s\n", a.ID, a.Name, a.CurrencyCode)
	}
	return nil
}

func runCategories(ctx context.Context, client *api.Client, args []string) error {
	categoryType := ""
	if len(args) > 1 {
		categoryType = args[1]
	}
	categories, err := client.Categories.List(ctx, api.CategoryType(categoryType), 0, 100)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Printf("%4d  %-8s %s\n", c.ID, c.Type, c.Name)
	}
	return nil
}

func runTransactions(ctx context.Context, client *api.Client, args []string) error {
	var (
		transactions []api.Transaction
		err          error
	)
	if len(args) > 1 {
		accountID, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid account id %q", args[1])
		}
		transactions, err = client.Transactions.ListByAccount(ctx, accountID, 0, 100)
	} else {
		transactions, err = client.Transactions.List(ctx, 0, 100)
	}
	if err != nil {
		return err
	}
	for _, t := range transactions {
		fmt.Printf("%6d  %s  %-8s %10s  %s\n",
			t.ID, t.TransactionDate.Format("2006-01-02"), t.Type, t.Amount, strDeref(t.Description))
	}
	return nil
}

func runStats(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: fintrack stats balances|total|summary <start> <end>")
	}
	switch args[0] {
	case "balances":
		balances, err := client.Statistics.Balances(ctx)
		if err != nil {
			return err
		}
		for _, b := range balances {
			fmt.Printf("%4d  %-20s %s %s\n", b.AccountID, b.AccountName, b.Balance, b.CurrencyCode)
		}
		return nil
	case "total":
		currency := ""
		if len(args) > 1 {
			currency = args[1]
		}
		total, err := client.Statistics.TotalBalance(ctx, currency)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", total.TotalBalance, total.CurrencyCode)
		return nil
	case "summary":
		if len(args) < 3 {
			return fmt.Errorf("usage: fintrack stats summary <start> <end>")
		}
		start, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return fmt.Errorf("invalid start date %q", args[1])
		}
		end, err := time.Parse("2006-01-02", args[2])
		if err != nil {
			return fmt.Errorf("invalid end date %q", args[2])
		}
		summary, err := client.Statistics.Summary(ctx, start, end, nil, "")
		if err != nil {
			return err
		}
		fmt.Printf("income:  %s\nexpense: %s\nnet:     %s\n", summary.TotalIncome, summary.TotalExpense, summary.NetChange)
		for _, c := range summary.ExpenseByCategory {
			fmt.Printf("  %-20s %s\n", c.CategoryName, c.Amount)
		}
		return nil
	default:
		return fmt.Errorf("usage: fintrack stats balances|total|summary <start> <end>")
	}
}

func runShopping(ctx context.Context, client *api.Client, args []string) error {
	lists, err := client.Shopping.List(ctx, 0, 100)
	if err != nil {
		return err
	}
	for _, l := range lists {
		fmt.Printf("%4d  %-10s %s (%d items)\n", l.ID, l.Status, l.Name, len(l.Items))
	}
	return nil
}

func runRecurring(ctx context.Context, client *api.Client, args []string) error {
	var (
		recurring []api.RecurringTransaction
		err       error
	)
	if len(args) > 0 && args[0] == "pending" {
		recurring, err = client.Recurring.ListPending(ctx)
	} else {
		recurring, err = client.Recurring.List(ctx, 0, 100)
	}
	if err != nil {
		return err
	}
	for _, r := range recurring {
		active := " "
		if r.IsActive {
			active = "*"
		}
		fmt.Printf("%s %4d  %-9s %10s  %s\n", active, r.ID, r.Frequency, r.Amount, strDeref(r.Description))
	}
	return nil
}

func runCurrencies(ctx context.Context, client *api.Client, args []string) error {
	currencies, err := client.Currencies.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range currencies {
		fmt.Printf("%-4s %-3s %s\n", c.Code, c.Symbol, c.Name)
	}
	return nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// runTheme reads or writes the persisted UI theme preference.
func runTheme(store *storage.Store, args []string) error {
	switch {
	case len(args) == 1 && args[0] == "get":
		theme, ok, err := store.Get(storage.KeyTheme)
		if err != nil {
			return err
		}
		if !ok {
			theme = "system"
		}
		fmt.Println(theme)
		return nil
	case len(args) == 2 && args[0] == "set":
		return store.Set(storage.KeyTheme, args[1])
	default:
		return fmt.Errorf("usage: fintrack theme get|set <value>")
	}
}
