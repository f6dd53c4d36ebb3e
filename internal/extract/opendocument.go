package extract

import (
	"fmt"
	"regexp"
)

const odfContentPath = "content.xml"

var (
	odpPage  = regexp.MustCompile(`(?s)<draw:page[ >].*?</draw:page>`)
	odsTable = regexp.MustCompile(`(?s)<table:table[ >].*?</table:table>`)
)

// extractODP returns one segment per presentation page.
func extractODP(content []byte) ([]string, error) {
	return extractODF(content, "ODP", odpPage)
}

// extractODS returns one segment per spreadsheet table.
func extractODS(content []byte) ([]string, error) {
	return extractODF(content, "ODS", odsTable)
}

// extractODF splits content.xml at unit and strips markup from each unit.
func extractODF(content []byte, kind string, unit *regexp.Regexp) ([]string, error) {
	zr, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	xml, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	var out []string
	for _, u := range unit.FindAllString(string(xml), -1) {
		out = append(out, stripTags(u))
	}
	return out, nil
}
