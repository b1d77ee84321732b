package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"threadscraper/pkg/auth"
	"threadscraper/pkg/xapi"
)

var (
	skipVerify bool
	logoutAll  bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage X API credentials",
	Long: `Manage stored X API access tokens.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (THREADSCRAPER_ACCESS_TOKEN, read only)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an X API access token securely",
	Long: `Store an X API bearer token in the system keychain or an encrypted file.

The token is verified against the X API before it is stored. When no username
is given, the handle of the authenticated account is used.`,
	Example: `  # Interactive login
  threadscraper auth login

  # Store the token under a custom name, without contacting X
  threadscraper auth login research --skip-verify`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored X API credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from.`,
	Example: `  # Interactive logout
  threadscraper auth logout

  # Logout a specific account
  threadscraper auth logout gopher

  # Remove every stored account
  threadscraper auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked tokens.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store the token without verifying it")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove all stored accounts")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" && skipVerify {
		fail("A username is required with --skip-verify", nil)
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowTokenGuide(os.Stdout)

	fmt.Print("Ready to enter your token? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'threadscraper auth login' when you're ready.")
		return
	}

	fmt.Print("\nBearer token (hidden): ")
	token, err := readPassword(reader)
	if err != nil {
		fail("Failed to read token", err)
	}
	if len(token) < 20 {
		fail("That doesn't look like a valid bearer token", nil)
	}

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	if !skipVerify {
		cfg, err := loadConfig(nil)
		if err != nil {
			fail("Failed to load configuration", err)
		}
		log := initLogger(cfg)

		client := xapi.NewClient(xapi.Options{
			BaseURL:     cfg.X.BaseURL,
			AccessToken: token,
			UserAgent:   userAgent,
			Timeout:     cfg.X.Timeout,
		}, log)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		me, err := client.Me(ctx)
		cancel()
		if err != nil {
			fail("X rejected the token", err)
		}
		console.Info("Authenticated as", "@"+me.Username)
		if username == "" {
			username = me.Username
		}
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Update token? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	account := &auth.Account{
		Username:    username,
		AccessToken: token,
		UserAgent:   userAgent,
	}

	if err := manager.Store(account); err != nil {
		fail("Failed to store credentials", err)
	}

	console.Success("Account saved: " + username)
	fmt.Println("\nYour token is stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("  • System keychain (primary)")
	}
	fmt.Println("  • Encrypted file (backup)")

	fmt.Println("\nReconstruct threads with:")
	fmt.Println("  $ threadscraper search <query>")
	fmt.Printf("  $ threadscraper search <query> --account %s\n", username)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			fail("Failed to remove all accounts", err)
		}
		console.Success("All accounts removed")
		return
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			fail("Failed to remove account", err)
		}
		console.Success("Account removed: " + args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		console.Warning("No stored accounts found")
		return
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  0. Cancel\n\n")
	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice > 0 && choice <= len(accounts):
		name := accounts[choice-1].Username
		if err := manager.Delete(name); err != nil {
			fail("Failed to remove account", err)
		}
		console.Success("Account removed: " + name)
	default:
		fail("Invalid choice", nil)
	}
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	accounts, err := manager.List()
	if err != nil {
		fail("Failed to list accounts", err)
	}

	if len(accounts) == 0 {
		console.Info("No stored accounts", "Use 'threadscraper auth login' to add an account")
		return
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Token: %s\n", sanitized.AccessToken)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

// readPassword reads a secret from stdin without echoing it when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
