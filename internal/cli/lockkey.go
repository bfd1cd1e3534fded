package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/georgemunganga/tillkeeper/internal/modules/shift"
)

// NewLockKeyCommand prints the advisory lock key of a terminal so operators
// can find its holder in pg_locks.
func NewLockKeyCommand() *cobra.Command {
	var terminal string

	cmd := &cobra.Command{
		Use:   "lock-key",
		Short: "Print the terminal lock key used for shift numbering",
		Example: `  shiftctl lock-key --terminal 6f1c...
  psql -c "SELECT pid FROM pg_locks WHERE locktype = 'advisory' AND objid = <low 32 bits>"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(terminal)
			if err != nil {
				return fmt.Errorf("invalid terminal id %q: %w", terminal, err)
			}
			key := shift.TerminalLockKey(id)
			fmt.Fprintf(cmd.OutOrStdout(), "namespace=%s key=%d classid=%d objid=%d\n",
				shift.LockNamespace, key, uint32(uint64(key)>>32), uint32(uint64(key)))
			return nil
		},
	}

	cmd.Flags().StringVar(&terminal, "terminal", "", "terminal id (required)")
	_ = cmd.MarkFlagRequired("terminal")

	return cmd
}
