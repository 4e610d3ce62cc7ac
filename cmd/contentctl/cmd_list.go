package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/content-dashboard/internal/app"
	"github.com/content-dashboard/internal/models"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var page int
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list <category-id> <subcategory-id>",
		Short: "List one page of a subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, subcategoryID, err := parseScope(args[0], args[1])
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				list := a.Services.List.Page
				if refresh {
					list = a.Services.List.Retry
				}
				view, err := list(ctx, session, categoryID, subcategoryID, page)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), view)
				}
				return printListView(cmd, view)
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the query cache")
	return cmd
}

func printListView(cmd *cobra.Command, view *models.ListView) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHEADING\tAUTHOR\tDATE\tSTATUS")
	for _, row := range view.Rows {
		status := string(row.Item.Status)
		if !row.StatusKnown {
			status = "-"
		}
		if row.Pending {
			status += " (pending)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			row.Item.ID, truncate(row.Item.Heading, 48), row.Item.Author, row.Item.Date, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s (page %d of %d)\n", view.Summary, view.Page, view.TotalPages)
	return nil
}

func newStatusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "Print the status values content can move between",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := models.AllStatuses()
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), statuses)
			}
			for _, s := range statuses {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [category-id]",
		Short: "List categories, or the subcategories of one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				defer w.Flush()

				if len(args) == 0 {
					categories, err := a.Services.Taxonomy.Categories(ctx, session)
					if err != nil {
						return err
					}
					if jsonOutput {
						return printJSON(cmd.OutOrStdout(), categories)
					}
					fmt.Fprintln(w, "ID\tNAME")
					for _, c := range categories {
						fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
					}
					return nil
				}

				categoryID, err := parseID("category-id", args[0])
				if err != nil {
					return err
				}
				subcategories, err := a.Services.Taxonomy.Subcategories(ctx, session, categoryID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), subcategories)
				}
				fmt.Fprintln(w, "ID\tNAME")
				for _, s := range subcategories {
					fmt.Fprintf(w, "%d\t%s\n", s.ID, s.Name)
				}
				return nil
			})
		},
	}
}

func parseScope(category, subcategory string) (int64, int64, error) {
	categoryID, err := parseID("category-id", category)
	if err != nil {
		return 0, 0, err
	}
	subcategoryID, err := parseID("subcategory-id", subcategory)
	if err != nil {
		return 0, 0, err
	}
	return categoryID, subcategoryID, nil
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
