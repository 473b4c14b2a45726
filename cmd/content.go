package cmd

import (
	"fmt"
	"os"

	"github.com/readkode/readkode/internal/content"
	"github.com/spf13/cobra"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Inspect and validate content packs",
}

var contentValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a content pack against the schema and the built-in packs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		pack, err := content.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		builtin, err := content.Builtin()
		if err != nil {
			return err
		}
		if _, err := content.NewLibrary(append(builtin.Packs(), pack)...); err != nil {
			return fmt.Errorf("%s conflicts with built-in content: %w", args[0], err)
		}

		exercises := 0
		for _, lv := range pack.Levels {
			exercises += len(lv.Exercises)
		}
		fmt.Printf("%s: %q v%s ok (%d levels, %d exercises)\n",
			args[0], pack.Title, pack.Version, len(pack.Levels), exercises)
		return nil
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in levels",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := content.Builtin()
		if err != nil {
			return err
		}
		for _, lv := range lib.Levels() {
			fmt.Printf("%-6s %-32s %2d exercises  %3d XP\n", lv.ID, lv.Title, len(lv.Exercises), lv.TotalXP())
		}
		return nil
	},
}

func init() {
	contentCmd.AddCommand(contentValidateCmd)
	contentCmd.AddCommand(contentListCmd)
}
