// Package htmlreport extracts typed records from the fixed-layout HTML
// report produced by the DataGuard daily report script. It is not a general
// HTML parser: sections are located by heading anchors and tables are read
// positionally.
package htmlreport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrSectionNotFound is returned when a heading anchor is absent.
	ErrSectionNotFound = errors.New("section not found")
	// ErrNoQualifyingRow is returned when a section exists but holds no data
	// row with enough columns for the requested record shape.
	ErrNoQualifyingRow = errors.New("no qualifying data row")
)

// Heading identifies a section anchor such as <h3>Tablespace usage:</h3>.
type Heading struct {
	Level int
	Title string
}

// Section anchors used by the daily report layout.
var (
	StandbyHeading       = Heading{Level: 2, Title: "Standby Database"}
	ProductionHeading    = Heading{Level: 2, Title: "Production Database"}
	GeneralInfoHeading   = Heading{Level: 3, Title: "General Database Information:"}
	BackupHeading        = Heading{Level: 3, Title: "List of last 3 days backups:"}
	OperaVersionHeading  = Heading{Level: 3, Title: "Opera Version Information:"}
	OracleVersionHeading = Heading{Level: 3, Title: "Oracle version Information:"}
)

var (
	rowRE    = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRE   = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	headerRE = regexp.MustCompile(`(?i)<th[\s>]`)
)

func (h Heading) String() string {
	return fmt.Sprintf("<h%d>%s</h%d>", h.Level, h.Title, h.Level)
}

func (h Heading) anchor() *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?is)<h%d[^>]*>\s*%s\s*</h%d>`,
		h.Level, regexp.QuoteMeta(h.Title), h.Level))
}

// boundary matches the start of the next heading of equal or higher rank,
// the end of the body, or any of the extra terminators.
func (h Heading) boundary(extra []string) *regexp.Regexp {
	alts := []string{fmt.Sprintf(`<h[1-%d][\s>]`, h.Level), `</body>`}
	for _, e := range extra {
		alts = append(alts, regexp.QuoteMeta(e))
	}
	return regexp.MustCompile(`(?i)` + strings.Join(alts, "|"))
}

// ExtractSection returns the text following the first occurrence of heading,
// up to the next heading of equal or higher rank, </body>, or the end of doc.
// Additional terminators (matched case-insensitively) may end the section
// earlier.
func ExtractSection(doc string, heading Heading, terminators ...string) (string, error) {
	loc := heading.anchor().FindStringIndex(doc)
	if loc == nil {
		return "", fmt.Errorf("%s: %w", heading, ErrSectionNotFound)
	}
	rest := doc[loc[1]:]
	if end := heading.boundary(terminators).FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return rest, nil
}

// ExtractNestedSection locates inner within the section opened by outer, for
// example the General Database Information table of the Standby Database.
func ExtractNestedSection(doc string, outer, inner Heading) (string, error) {
	outerText, err := ExtractSection(doc, outer)
	if err != nil {
		return "", err
	}
	text, err := ExtractSection(outerText, inner)
	if err != nil {
		return "", fmt.Errorf("%s: %w", outer.Title, err)
	}
	return text, nil
}

// ExtractTableRows returns the data rows of section in document order. Rows
// containing a header cell are dropped and every cell is reduced to its
// trimmed text content.
func ExtractTableRows(section string) [][]string {
	var rows [][]string
	for _, m := range rowRE.FindAllStringSubmatch(section, -1) {
		if headerRE.MatchString(m[1]) {
			continue
		}
		cells := cellRE.FindAllStringSubmatch(m[1], -1)
		row := make([]string, 0, len(cells))
		for _, c := range cells {
			row = append(row, CellText(c[1]))
		}
		rows = append(rows, row)
	}
	return rows
}

// CellText strips markup from a cell fragment and decodes entities.
func CellText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
