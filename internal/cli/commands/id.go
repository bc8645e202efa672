package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/docjoin/internal/cli/output"
	"github.com/leapstack-labs/docjoin/internal/sfid"
)

// NewIDCommand creates the id command.
func NewIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "id <id>...",
		Short: "Show the 15- and 18-character forms of record IDs",
		Long: `Normalize Salesforce record IDs the same way export matches them.

A 15-character ID is case-sensitive; the 18-character form appends a checksum
of the case and may be compared case-insensitively. Use this to check what an
identifier column will match.`,
		Example: `  docjoin id 069D000000IqhSL 069d000000iqhslIAZ`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return renderIDs(cmdCtx.Renderer, DescribeIDs(args))
		},
	}
}

// DescribeIDs normalizes each input.
func DescribeIDs(inputs []string) []output.IDInfo {
	infos := make([]output.IDInfo, 0, len(inputs))
	for _, in := range inputs {
		info := output.IDInfo{Input: in, Valid: sfid.Valid(in)}
		if info.Valid {
			info.ID18 = sfid.Normalize(in)
			info.ID15 = sfid.To15(in)
		}
		infos = append(infos, info)
	}
	return infos
}

func renderIDs(r *output.Renderer, infos []output.IDInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		valid := "yes"
		if !info.Valid {
			valid = "no"
		}
		rows = append(rows, []string{strings.TrimSpace(info.Input), info.ID15, info.ID18, valid})
	}
	r.Table([]string{"Input", "15-char", "18-char", "Valid"}, rows)
	return nil
}
