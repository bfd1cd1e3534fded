package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

// NewCreateUserCommand creates staff accounts from the command line. It is
// how the first ADMIN gets into a fresh database.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	var req user.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			req.Role = user.Role(role)
			u, err := user.NewService(user.NewPostgresRepository(rt.db), rt.logger).RegisterUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password, at least 8 characters (required)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&role, "role", string(user.RoleAdmin), "CASHIER, SHIFT_MANAGER, STORE_MANAGER or ADMIN")
	cmd.Flags().StringVar(&req.StoreID, "store", "", "store id, required for non-admin roles")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
