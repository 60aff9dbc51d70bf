package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"strata/internal/engine/checks"
)

var (
	ruleHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	ruleCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	ruleSilentStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#64748B"))
)

func newRulesCommand(global *globalOptions) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the registered checks",
		Long: `List every registered check with its level and identifier. With --level only
the checks enabled at that level are shown. Silent checks are registered so
their identifiers can be ignored and baselined, but never report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := checks.Default()
			list := registry.Checks()
			if cmd.Flags().Changed("level") {
				n, err := parseLevel(level)
				if err != nil {
					return err
				}
				list = registry.ForLevel(n)
			}
			fmt.Fprintln(global.stdout, renderRules(list))
			return nil
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "Only show checks enabled at this level (0..10 or max)")
	return cmd
}

func ruleStatus(c checks.Check) string {
	if checks.IsSilent(c) {
		return "silent"
	}
	return "implemented"
}

func renderRules(list []checks.Check) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{strconv.Itoa(c.Level()), c.ID(), ruleStatus(c), c.Description()})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LEVEL", "IDENTIFIER", "STATUS", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return ruleHeaderStyle
			case row >= 0 && row < len(rows) && rows[row][2] == "silent":
				return ruleSilentStyle
			}
			return ruleCellStyle
		})
	return t.Render()
}
