package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/page"
)

const submitCommandLong = `Submit a form the page marks with data-ajax.

USAGE:
    urbanmd submit <page-path> [--form <id|index>] [-f key=value...]

The page is fetched with the session cookies, the form's current values are
collected and the given fields replace them. The form posts to its action, or
to the page itself when it has none.

OPTIONS:
    --form <id|index>    Form id, or zero-based index among data-ajax forms (default 0)
    -f, --field          Field override as key=value; repeatable
    -h, --help           Show this help`

// NewSubmitCmd creates the submit command.
func NewSubmitCmd() *cobra.Command {
	var formRef string
	var fieldFlags []string
	submitCmd := &cobra.Command{
		Use:   "submit <page-path>",
		Short: "Submit an AJAX form",
		Long:  submitCommandLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			overrides, err := parseFields(fieldFlags)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(c.Context())
			defer stop()

			rt, err := oneShot(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			pagePath := args[0]
			doc, err := rt.page(ctx, pagePath)
			if err != nil {
				return fmt.Errorf("load %s: %w", pagePath, err)
			}
			f, err := selectForm(doc, formRef)
			if err != nil {
				return err
			}
			for _, field := range overrides {
				f.Set(field.Name, field.Value)
			}
			rt.forms.Submit(ctx, pagePath, f)
			rt.settle(ctx)
			return nil
		},
	}
	submitCmd.Flags().StringVar(&formRef, "form", "", "Form id or zero-based index among data-ajax forms")
	submitCmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "Field override as key=value")
	return submitCmd
}

// selectForm picks a data-ajax form by id, falling back to an index.
func selectForm(doc *page.Document, ref string) (page.Form, error) {
	forms := doc.AjaxForms()
	if len(forms) == 0 {
		return page.Form{}, fmt.Errorf("submit: page has no data-ajax form")
	}
	if ref == "" {
		return forms[0], nil
	}
	for _, f := range forms {
		if f.ID == ref {
			return f, nil
		}
	}
	i, err := strconv.Atoi(ref)
	if err != nil || i < 0 || i >= len(forms) {
		return page.Form{}, fmt.Errorf("submit: no data-ajax form %q (page has %d)", ref, len(forms))
	}
	return forms[i], nil
}

func init() {
	cmd.RootCmd.AddCommand(NewSubmitCmd())
}
