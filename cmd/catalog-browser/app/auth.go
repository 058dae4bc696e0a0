package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/httpclient"
)

func newLoginCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the catalog API token in the system keyring",
		Long: `Store the bearer token sent with every catalog request in the system keyring.

Log in with --email to exchange your catalog account's password for a token. The
password is prompted for on a terminal and read from standard input otherwise.
Pass an existing token with --token, or --token - to read it from standard input.`,
		Example: `  catalog-browser login --email curator@example.org
  echo "$CATALOG_TOKEN" | catalog-browser login --token -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			store := newKeyringStore(cfg)

			if email, _ := cmd.Flags().GetString("email"); email != "" {
				password, err := readPassword(cmd)
				if err != nil {
					return err
				}
				endpoint, err := cfg.AuthURL()
				if err != nil {
					return err
				}

				ctx := cmd.Context()
				if ctx == nil {
					ctx = context.Background()
				}
				client := httpclient.NewDefaultClient(cfg.GetRequestTimeout())
				user, err := auth.Login(ctx, client, endpoint, auth.Credentials{Email: email, Password: password}, store)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s. Token stored.\n", displayName(user))
				return err
			}

			token, _ := cmd.Flags().GetString("token")
			if token == "-" {
				if token, err = readLine(cmd.InOrStdin(), "token"); err != nil {
					return err
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("token is required")
			}
			if err := store.SetToken(token); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
			return err
		},
	}
	cmd.Flags().String("token", "", "API token, or - to read it from standard input")
	cmd.Flags().String("email", "", "Log in with this account's email and password")
	cmd.MarkFlagsMutuallyExclusive("token", "email")
	cmd.MarkFlagsOneRequired("token", "email")
	return cmd
}

func newLogoutCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the catalog API token from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := newKeyringStore(cfg).SetToken(""); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return err
		},
	}
}

// readPassword prompts without echo when stdin is a terminal and reads one
// line otherwise
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}
	line, err := readLine(cmd.InOrStdin(), "password")
	if err != nil {
		return "", err
	}
	// Only the line ending is stripped; spaces may be part of the password
	return strings.TrimRight(line, "\r\n"), nil
}

func readLine(r io.Reader, what string) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", what, err)
	}
	return line, nil
}

func displayName(u auth.User) string {
	switch {
	case strings.TrimSpace(u.FullName) != "":
		return strings.TrimSpace(u.FullName)
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
