package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/modules/shift"
	"github.com/georgemunganga/tillkeeper/internal/modules/store"
)

// NewBackfillCommand creates the backfill-business-days command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	var storeID string

	cmd := &cobra.Command{
		Use:   "backfill-business-days",
		Short: "Link shifts without a business day to the day of their local date",
		Long: `Link every shift of a store whose business day is still empty to the
business day of the shift's local date, creating historical days as needed.
Shifts that fail are logged and skipped; rerunning is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			stores := store.NewStorePostgresRepository(rt.db)
			terminals := store.NewTerminalPostgresRepository(rt.db)
			cashiers := store.NewCashierPostgresRepository(rt.db)
			svc := shift.NewService(shift.Dependencies{
				Shifts: shift.NewPostgresRepository(rt.db),
				UnitOfWork: shift.NewPostgresUnitOfWork(rt.db, nil, shift.Timeouts{
					Tx:        time.Minute,
					Lock:      rt.cfg.LockTimeout,
					Statement: rt.cfg.StatementTimeout,
				}, rt.logger),
				Directory:  store.NewDirectory(stores, terminals, cashiers),
				Access:     auth.NewRoleAccessControl(),
				Associator: businessday.NewAssociator(rt.logger),
				Logger:     rt.logger,
			})

			res, err := svc.BackfillBusinessDays(cmd.Context(), auth.System(), storeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked %d shift(s)\n", res.Linked)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeID, "store", "", "store id (required)")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}
