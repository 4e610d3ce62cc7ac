package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/content-dashboard/internal/app"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// contentFlags are shared by create and update
type contentFlags struct {
	categoryID      int64
	subcategoryID   int64
	page            int
	heading         string
	subHeading      string
	body            string
	author          string
	date            string
	tags            []string
	metaTitle       string
	metaDescription string
	images          []string
}

func (f *contentFlags) register(fs *pflag.FlagSet) {
	fs.Int64Var(&f.categoryID, "category", 0, "Category ID")
	fs.Int64Var(&f.subcategoryID, "subcategory", 0, "Subcategory ID")
	fs.StringVar(&f.heading, "heading", "", "Heading")
	fs.StringVar(&f.subHeading, "sub-heading", "", "Sub heading")
	fs.StringVar(&f.body, "body", "", "Body (HTML allowed)")
	fs.StringVar(&f.author, "author", "", "Author")
	fs.StringVar(&f.date, "date", "", "Publication date, YYYY-MM-DD (default today)")
	fs.StringArrayVar(&f.tags, "tag", nil, "Tag (repeatable)")
	fs.StringVar(&f.metaTitle, "meta-title", "", "Meta title")
	fs.StringVar(&f.metaDescription, "meta-description", "", "Meta description")
	fs.StringArrayVar(&f.images, "image", nil, "Image URL or local file path (repeatable, order kept)")
}

// apply copies every flag the user set onto form
func (f *contentFlags) apply(ctx context.Context, fs *pflag.FlagSet, uploads service.ImageStager, form *models.ContentForm) error {
	if fs.Changed("category") {
		form.CategoryID = f.categoryID
	}
	if fs.Changed("subcategory") {
		form.SubcategoryID = f.subcategoryID
	}
	if fs.Changed("heading") {
		form.Heading = f.heading
	}
	if fs.Changed("sub-heading") {
		form.SubHeading = f.subHeading
	}
	if fs.Changed("body") {
		form.Body = f.body
	}
	if fs.Changed("author") {
		form.Author = f.author
	}
	if fs.Changed("date") {
		d, err := models.ParseDate(f.date)
		if err != nil {
			return err
		}
		form.Date = d
	}
	if fs.Changed("tag") {
		form.Tags = nil
		for _, tag := range f.tags {
			form.Tags.Add(tag)
		}
	}
	if fs.Changed("meta-title") {
		form.MetaTitle = f.metaTitle
	}
	if fs.Changed("meta-description") {
		form.MetaDescription = f.metaDescription
	}
	if fs.Changed("image") {
		images, err := stageImages(ctx, uploads, f.images)
		if err != nil {
			return err
		}
		form.Images = images
	}
	return nil
}

// stageImages keeps URLs as they are and stages everything else from disk
func stageImages(ctx context.Context, uploads service.ImageStager, refs []string) ([]models.ImageRef, error) {
	images := make([]models.ImageRef, 0, len(refs))
	for _, ref := range refs {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			images = append(images, models.URLImage(ref))
			continue
		}
		file, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		staged, err := uploads.Stage(ctx, ref, file)
		file.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, models.UploadImage(staged))
	}
	return images, nil
}

func newCreateCmd() *cobra.Command {
	flags := &contentFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a content item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				loc, err := a.Config.Location()
				if err != nil {
					return err
				}
				form := &models.ContentForm{Date: models.Today(time.Now(), loc)}
				if err := flags.apply(ctx, cmd.Flags(), a.Services.Uploads, form); err != nil {
					return err
				}
				return submitForm(ctx, cmd, a, session, form)
			})
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func newUpdateCmd() *cobra.Command {
	flags := &contentFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a content item, changing only the fields given",
		Long: `update loads the item from the listing page it appears on, then
overrides only the flags passed on the command line before submitting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				form, err := a.Services.List.EditForm(ctx, session, flags.categoryID, flags.subcategoryID, flags.page, id)
				if err != nil {
					return err
				}
				if err := flags.apply(ctx, cmd.Flags(), a.Services.Uploads, form); err != nil {
					return err
				}
				return submitForm(ctx, cmd, a, session, form)
			})
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().IntVarP(&flags.page, "page", "p", 1, "Listing page the item appears on")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("subcategory")
	return cmd
}

func submitForm(ctx context.Context, cmd *cobra.Command, a *app.Application, session models.Session, form *models.ContentForm) error {
	item, err := a.Services.Form.Submit(ctx, session, form)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), item)
	}
	if item == nil || item.ID == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Content saved")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved content %d: %s\n", item.ID, item.Heading)
	return nil
}

func newStatusCmd() *cobra.Command {
	var (
		current       string
		categoryID    int64
		subcategoryID int64
	)

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of a content item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			target, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}

			change := models.StatusChange{
				ContentID:     id,
				Current:       models.Status(current),
				Target:        target,
				CategoryID:    categoryID,
				SubcategoryID: subcategoryID,
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				state, err := a.Services.Status.Change(ctx, session, change)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), state)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Status updated to %s\n", state.Displayed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Status currently shown, restored if the change fails")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category ID of the listing to refresh")
	cmd.Flags().Int64Var(&subcategoryID, "subcategory", 0, "Subcategory ID of the listing to refresh")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var (
		yes           bool
		categoryID    int64
		subcategoryID int64
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a content item after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app.Application, session models.Session) error {
				pending, err := a.Services.Deletions.Request(session, id, categoryID, subcategoryID)
				if err != nil {
					return err
				}

				if !yes && !confirm(cmd, fmt.Sprintf("Delete content %d?", id)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return a.Services.Deletions.Cancel(pending.Token)
				}

				if err := a.Services.Deletions.Confirm(ctx, session, pending.Token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted content %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category ID of the listing to refresh")
	cmd.Flags().Int64Var(&subcategoryID, "subcategory", 0, "Subcategory ID of the listing to refresh")
	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
