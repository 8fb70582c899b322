package boundary

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Natural Earth public-domain boundary archives. The admin-0 set supplies
// country polygons; the admin-1 set is a single global file that gets split
// into per-country subdivision shapefiles on import.
const (
	countriesURL = "https://naciscdn.org/naturalearth/110m/cultural/ne_110m_admin_0_countries.zip"
	statesURL    = "https://naciscdn.org/naturalearth/50m/cultural/ne_50m_admin_1_states_provinces.zip"

	admin1CountryAttr = "iso_a2"
)

// shapefile sidecar extensions that must travel together.
var shapefileExts = []string{".shp", ".shx", ".dbf", ".prj"}

// Fetch downloads country and subdivision boundary data into dataDir, laid
// out the way NewIndex expects it. subdivisionCountries lists the ISO 3166-1
// alpha-2 codes whose admin-1 polygons should be extracted from the global
// archive.
func Fetch(ctx context.Context, client *http.Client, dataDir string, subdivisionCountries []string) error {
	log := zap.L().With(zap.String("component", "boundary.fetch"))

	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return eris.Wrap(err, "boundary: create data dir")
	}

	tempDir, err := os.MkdirTemp("", "placescan-boundaries-*")
	if err != nil {
		return eris.Wrap(err, "boundary: create temp dir")
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	log.Info("downloading country boundaries", zap.String("url", countriesURL))
	countryDir, err := fetchArchive(ctx, client, countriesURL, filepath.Join(tempDir, "countries"))
	if err != nil {
		return err
	}
	if err := installShapefile(countryDir, dataDir, "countries"); err != nil {
		return err
	}

	if len(subdivisionCountries) == 0 {
		log.Info("boundary data installed", zap.String("dir", dataDir))
		return nil
	}

	log.Info("downloading subdivision boundaries", zap.String("url", statesURL))
	statesDir, err := fetchArchive(ctx, client, statesURL, filepath.Join(tempDir, "states"))
	if err != nil {
		return err
	}
	src, err := findFileByExt(statesDir, ".shp")
	if err != nil {
		return err
	}

	for _, cc := range subdivisionCountries {
		cc = strings.ToUpper(strings.TrimSpace(cc))
		if cc == "" {
			continue
		}
		dest := filepath.Join(dataDir, statesPrefix+strings.ToLower(cc)+".shp")
		n, err := splitSubdivisions(src, dest, cc)
		if err != nil {
			return eris.Wrapf(err, "boundary: extract subdivisions for %s", cc)
		}
		log.Info("subdivision set installed", zap.String("country", cc), zap.Int("polygons", n))
	}

	log.Info("boundary data installed", zap.String("dir", dataDir))
	return nil
}

// fetchArchive downloads a ZIP archive and extracts it into destDir,
// returning the extraction directory.
func fetchArchive(ctx context.Context, client *http.Client, url, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create extract dir")
	}
	zipPath := destDir + ".zip"
	if err := downloadFile(ctx, client, url, zipPath); err != nil {
		return "", err
	}
	if err := extractZIP(zipPath, destDir); err != nil {
		return "", err
	}
	return destDir, nil
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "boundary: build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "boundary: download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("boundary: download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "boundary: create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "boundary: write file")
	}

	return nil
}

// extractZIP extracts a ZIP archive to the destination directory, flattening
// any internal directory structure.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "boundary: open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "boundary: open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "boundary: create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "boundary: extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "boundary: read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("boundary: no %s file found in %s", ext, dir)
}

// installShapefile copies a shapefile and its sidecars from srcDir into
// dataDir under the given base name.
func installShapefile(srcDir, dataDir, baseName string) error {
	src, err := findFileByExt(srcDir, ".shp")
	if err != nil {
		return err
	}
	srcBase := strings.TrimSuffix(src, filepath.Ext(src))

	for _, ext := range shapefileExts {
		from := srcBase + ext
		if _, err := os.Stat(from); err != nil {
			if ext == ".prj" {
				continue
			}
			return eris.Wrapf(err, "boundary: missing sidecar %s", filepath.Base(from))
		}
		if err := copyFile(from, filepath.Join(dataDir, baseName+ext)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "boundary: open %s", filepath.Base(src))
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "boundary: create %s", filepath.Base(dest))
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, in); err != nil {
		return eris.Wrapf(err, "boundary: copy %s", filepath.Base(dest))
	}
	return nil
}

// splitSubdivisions copies the records of one country out of the global
// admin-1 shapefile into a standalone shapefile carrying only the code and
// name attributes the loader reads.
func splitSubdivisions(src, dest, countryCode string) (int, error) {
	reader, err := shp.Open(src)
	if err != nil {
		return 0, eris.Wrap(err, "open source")
	}
	defer func() { _ = reader.Close() }()

	countryIdx := fieldIndex(reader, admin1CountryAttr)
	codeIdx := fieldIndex(reader, stateCodeAttr)
	nameIdx := fieldIndex(reader, stateNameAttr)
	if countryIdx < 0 || codeIdx < 0 || nameIdx < 0 {
		return 0, eris.Errorf("required fields not found in %s", filepath.Base(src))
	}

	writer, err := shp.Create(dest, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrap(err, "create destination")
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{
		shp.StringField(stateCodeAttr, 10),
		shp.StringField(stateNameAttr, 80),
	})

	written := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(reader.Attribute(countryIdx)), countryCode) {
			continue
		}

		row := int(writer.Write(poly))
		writer.WriteAttribute(row, 0, strings.TrimSpace(reader.Attribute(codeIdx)))
		writer.WriteAttribute(row, 1, strings.TrimSpace(reader.Attribute(nameIdx)))
		written++
	}

	return written, nil
}
