package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

func newIdentityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the client user id that scopes your analyses",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current user id, creating one if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.ids.GetUserID(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return writeJSON(a.out, map[string]string{"user_id": id, "file": a.store.Path()})
			}
			fmt.Fprintln(a.out, id)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Replace the stored user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateUserID(args[0]); err != nil {
				return appErrors.Clone(appErrors.ErrValidation, err.Error())
			}
			if err := a.ids.SetUserID(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "User id set to %s\n", args[0])
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored user id",
		Long:  "Forgets the stored user id. Analyses made under it stay on the backend but no longer appear in your gallery.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ids.ClearUserData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "User id cleared; a new one is created on next use.")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}
