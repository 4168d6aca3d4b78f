package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regions scans will cover",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, region := range settings.AllRegions() {
			marker := ""
			if region == settings.Region {
				marker = " (default)"
			}
			fmt.Printf("%s%s\n", region, marker)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
