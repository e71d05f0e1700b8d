package main

import (
	"content-storefront/internal/client"
	"content-storefront/internal/dto"
	"content-storefront/internal/grantcache"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type accessFlags struct {
	cacheDir string
}

func (f *accessFlags) cache() (*grantcache.Cache, error) {
	dir := f.cacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache dir: %w", err)
		}
		dir = filepath.Join(base, "content-storefront")
	}
	return grantcache.New(grantcache.NewFileStorage(dir)), nil
}

func accessCmd() *cobra.Command {
	flags := &accessFlags{}

	cmd := &cobra.Command{
		Use:   "access",
		Short: "Redeem access links as a visitor and inspect the cached grant",
	}
	cmd.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "grant cache directory (defaults to the user cache dir)")

	cmd.AddCommand(accessRedeemCmd(flags))
	cmd.AddCommand(accessStatusCmd(flags))
	cmd.AddCommand(accessClearCmd(flags))

	return cmd
}

// tokenFromArg accepts a raw token or a full /access/<token> link.
func tokenFromArg(arg string) string {
	u, err := url.Parse(arg)
	if err != nil || u.Scheme == "" {
		return arg
	}
	last := path.Base(u.EscapedPath())
	if unescaped, err := url.PathUnescape(last); err == nil {
		return unescaped
	}
	return last
}

func accessRedeemCmd(flags *accessFlags) *cobra.Command {
	var apiURL, bearer, name, email string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "redeem [token-or-link]",
		Short: "Redeem an access link and cache the resulting grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := flags.cache()
			if err != nil {
				return err
			}

			sf := client.NewStorefrontClient(apiURL, bearer, timeout)
			resp, err := sf.Consume(cmd.Context(), &dto.ConsumeRequest{
				Token:        tokenFromArg(strings.TrimSpace(args[0])),
				VisitorName:  name,
				VisitorEmail: email,
			})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s: %s", resp.Code, resp.Message)
			}

			stored, err := cache.Save(resp.Grant)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stored)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "storefront API base URL")
	cmd.Flags().StringVar(&bearer, "bearer", os.Getenv("STOREFRONT_BEARER"), "session token, required for grant links")
	cmd.Flags().StringVar(&name, "name", "", "visitor name")
	cmd.Flags().StringVar(&email, "email", "", "visitor email, required for grant links")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")

	return cmd
}

func accessStatusCmd(flags *accessFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached grant, if it is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := flags.cache()
			if err != nil {
				return err
			}
			grant, err := cache.Read()
			if err != nil {
				return err
			}
			if grant == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no active grant")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), grant)
		},
	}
}

func accessClearCmd(flags *accessFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached grant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := flags.cache()
			if err != nil {
				return err
			}
			return cache.Clear()
		},
	}
}
