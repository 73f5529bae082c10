package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return "-"
	}
	return formatFloat(*f)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
