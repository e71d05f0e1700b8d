package main

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/events"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"content-storefront/internal/service"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// withApp runs fn against a wired app with the database timeout applied.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger, events.NoopPublisher{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.Timeout)
	defer cancel()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Issue and manage access links",
	}

	cmd.AddCommand(linksCreateCmd())
	cmd.AddCommand(linksListCmd())
	cmd.AddCommand(linksDisableCmd())
	cmd.AddCommand(linksVisitsCmd())

	return cmd
}

func linksCreateCmd() *cobra.Command {
	var (
		scope, linkType, modelID, productID, label, createdBy string
		expiresIn                                             time.Duration
		maxUses                                               int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new access link and print its token once",
		Example: `  storefront links create --scope model --model model-1 --max-uses 50 --expires-in 72h
  storefront links create --scope product --type grant --product prodA`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.IssueLinkInput{
				Scope:     model.Scope(scope),
				LinkType:  model.LinkType(linkType),
				ModelID:   modelID,
				ProductID: productID,
				Label:     label,
				CreatedBy: createdBy,
			}
			if expiresIn > 0 {
				at := time.Now().Add(expiresIn).UTC()
				in.ExpiresAt = &at
			}
			if cmd.Flags().Changed("max-uses") {
				in.MaxUses = &maxUses
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				issued, err := a.grantService.IssueLink(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), &dto.CreateLinkResponse{
					Link:  dto.NewLink(issued.Link),
					Token: issued.Token,
					URL:   issued.URL,
				})
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(model.ScopeGlobal), "global, model or product")
	cmd.Flags().StringVar(&linkType, "type", string(model.LinkTypeAccess), "access or grant")
	cmd.Flags().StringVar(&modelID, "model", "", "model id for model-scoped links")
	cmd.Flags().StringVar(&productID, "product", "", "product id for product-scoped links")
	cmd.Flags().StringVar(&label, "label", "", "free-form label shown to admins")
	cmd.Flags().StringVar(&createdBy, "created-by", "cli", "issuer recorded on the link")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime of the link, 0 for no expiry")
	cmd.Flags().IntVar(&maxUses, "max-uses", 0, "redemption cap, unlimited when unset")

	return cmd
}

func linksListCmd() *cobra.Command {
	var filter repository.LinkFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List access links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				links, err := a.grantService.ListLinks(ctx, filter)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSCOPE\tTYPE\tTARGET\tUSES\tACTIVE\tEXPIRES\tLABEL")
				for _, l := range links {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
						l.ID, l.Scope, l.LinkType, target(l), uses(l), l.Active, expires(l), l.Label)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "only active links")
	cmd.Flags().StringVar(&filter.ModelID, "model", "", "only links for this model")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "maximum rows")

	return cmd
}

func target(l *model.AccessLink) string {
	switch {
	case l.ProductID != nil:
		return *l.ProductID
	case l.ModelID != nil:
		return *l.ModelID
	}
	return "-"
}

func uses(l *model.AccessLink) string {
	if l.MaxUses == nil {
		return fmt.Sprintf("%d", l.Uses)
	}
	return fmt.Sprintf("%d/%d", l.Uses, *l.MaxUses)
}

func expires(l *model.AccessLink) string {
	if l.ExpiresAt == nil {
		return "never"
	}
	return l.ExpiresAt.UTC().Format(time.RFC3339)
}

func linksDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [link-id]",
		Short: "Disable an access link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.grantService.DisableLink(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "link %s disabled\n", args[0])
				return nil
			})
		},
	}
}

func linksVisitsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "visits [link-id]",
		Short: "Show redemption attempts of a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				visits, err := a.grantService.ListVisits(ctx, args[0], limit)
				if err != nil {
					return err
				}

				out := make([]*dto.Visit, 0, len(visits))
				for _, v := range visits {
					out = append(out, dto.NewVisit(v))
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")

	return cmd
}
