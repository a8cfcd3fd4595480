package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/tonkit/internal/core/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [address]",
	Short: "Validate a TON address and print its raw form",
	Args:  cobra.ExactArgs(1),
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	address, err := domain.ParseAddress(args[0])
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(address.Raw())
}
