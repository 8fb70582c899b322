package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/placescan/internal/model"
	"github.com/sells-group/placescan/internal/scan"
)

var exportFormat string

var locationHeader = []string{
	"type", "code", "country_code", "country_name", "region_name", "photo_count", "earliest_date",
}

var exportCmd = &cobra.Command{
	Use:   "export <result.json> <output>",
	Short: "Export a completed scan result to CSV or XLSX",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resultPath, outPath := args[0], args[1]

		data, err := os.ReadFile(resultPath)
		if err != nil {
			return eris.Wrap(err, "read scan result")
		}
		var state scan.State
		if err := json.Unmarshal(data, &state); err != nil {
			return eris.Wrap(err, "parse scan result")
		}
		if len(state.Locations) == 0 {
			return eris.New("scan result contains no locations")
		}

		format := exportFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
		}

		switch format {
		case "csv":
			return exportCSV(state.Locations, outPath)
		case "xlsx":
			return exportXLSX(state.Locations, outPath)
		default:
			return eris.Errorf("unsupported export format %q (want csv or xlsx)", format)
		}
	},
}

func locationRow(loc model.DiscoveredLocation) []string {
	earliest := ""
	if loc.EarliestDate != nil {
		earliest = loc.EarliestDate.Format("2006-01-02")
	}
	return []string{
		string(loc.Key.Type),
		loc.Key.Code,
		loc.CountryCode,
		loc.CountryName,
		loc.RegionName,
		strconv.Itoa(loc.PhotoCount),
		earliest,
	}
}

func exportCSV(locations []model.DiscoveredLocation, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(locationHeader); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, loc := range locations {
		if err := w.Write(locationRow(loc)); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func exportXLSX(locations []model.DiscoveredLocation, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Locations")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	row := sheet.AddRow()
	for _, h := range locationHeader {
		row.AddCell().Value = h
	}
	for _, loc := range locations {
		row = sheet.AddRow()
		for _, v := range locationRow(loc) {
			row.AddCell().Value = v
		}
	}

	return eris.Wrap(f.Save(path), "save xlsx")
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: csv or xlsx (default from output extension)")
	rootCmd.AddCommand(exportCmd)
}
