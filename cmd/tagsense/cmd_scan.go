package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tagsense/tagsense/providers/aws"
	"github.com/tagsense/tagsense/scanner"
	"github.com/tagsense/tagsense/types"
)

var (
	scanRegion       string
	scanType         string
	scanStates       string
	scanUntaggedOnly bool
	scanOutput       string
	scanAllRegions   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan resources and report tag compliance",
	Example: `  tagsense scan --type ec2                      # Scan EC2 in the default region
  tagsense scan --type s3 --region eu-west-1    # Scan buckets in one region
  tagsense scan --type rds --all-regions        # Fan out over configured regions
  tagsense scan --type ec2 --untagged-only -o json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanRegion, "region", "r", "", "AWS region (defaults to configured region)")
	scanCmd.Flags().StringVarP(&scanType, "type", "t", "ec2", "Resource type: ec2, lambda, s3, rds, ebs")
	scanCmd.Flags().StringVar(&scanStates, "states", "", "Comma-separated lifecycle states to include")
	scanCmd.Flags().BoolVar(&scanUntaggedOnly, "untagged-only", false, "Show only resources with no tags")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	scanCmd.Flags().BoolVar(&scanAllRegions, "all-regions", false, "Scan every configured region in parallel")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOutput != "table" && scanOutput != "json" {
		return fmt.Errorf("invalid output format %q (must be table or json)", scanOutput)
	}
	rt, err := types.ParseResourceType(scanType)
	if err != nil {
		return err
	}
	filter := buildFilter()
	ctx := cmd.Context()

	if scanAllRegions {
		multi := scanner.NewMultiRegionScanner(aws.ScannerFactory(logger), 0, logger)
		result := multi.ScanRegions(ctx, settings.AllRegions(), rt, filter)
		return renderMultiRegion(result)
	}

	region := scanRegion
	if region == "" {
		region = settings.Region
	}
	provider, err := aws.NewProvider(ctx, region, logger)
	if err != nil {
		return err
	}
	s, err := provider.Scanner(rt)
	if err != nil {
		return err
	}
	result, err := s.Scan(ctx, filter)
	if err != nil {
		return err
	}
	return renderScan(result)
}

func buildFilter() scanner.Filter {
	f := scanner.Filter{UntaggedOnly: scanUntaggedOnly}
	if scanStates != "" {
		f.States = strings.Split(scanStates, ",")
	}
	return f
}

func renderScan(result *types.ScanResult) error {
	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tTAGS")
	for _, r := range result.Resources {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.ID, r.Name, r.State, len(r.Tags))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s in %s: %d resources, %d untagged (%.0f%% compliant)\n",
		result.ResourceType, result.Region, result.TotalCount, result.UntaggedCount,
		result.ComplianceRate()*100)
	return nil
}

func renderMultiRegion(result *scanner.MultiRegionResult) error {
	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tTOTAL\tUNTAGGED\tSTATUS")
	for _, rr := range result.Regions {
		if rr.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\tfailed: %v\n", rr.Region, rr.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\tok\n", rr.Region, rr.Result.TotalCount, rr.Result.UntaggedCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s across %d regions: %d resources, %d untagged\n",
		result.ResourceType, len(result.Regions), result.TotalCount, result.UntaggedCount)
	if failed := result.FailedRegions(); len(failed) > 0 {
		fmt.Printf("partial results: %s did not complete\n", strings.Join(failed, ", "))
	}
	return nil
}
